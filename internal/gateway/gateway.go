// Package gateway es el único camino autorizado de los handlers al
// almacenamiento. Toda lectura se filtra y toda escritura se fuerza al scope
// resuelto; los handlers nunca consultan tablas de recursos directamente.
package gateway

import (
	"errors"

	"joyeria-backend/internal/scope"

	"gorm.io/gorm"
)

var (
	// ErrNotFound cubre tanto filas inexistentes como filas de otra
	// sucursal: el caller no puede distinguirlas, para no filtrar la
	// existencia de datos ajenos.
	ErrNotFound = errors.New("registro no encontrado")

	// ErrBranchRequired: un create con scope ilimitado necesita branch_id
	// explícito en el payload.
	ErrBranchRequired = errors.New("branch_id es requerido")
)

// BranchOwned lo implementan los modelos que pertenecen a una sucursal
// (vía models.BranchOwned incrustado).
type BranchOwned interface {
	GetBranchID() uint
	SetBranchID(id uint)
}

type Gateway struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// DB expone la conexión para agregaciones de solo lectura (reportes) que
// construyen su propio SELECT pero siguen aplicando el filtro del scope.
func (g *Gateway) DB() *gorm.DB {
	return g.db
}

func (g *Gateway) scoped(q *gorm.DB, sc scope.Scope) *gorm.DB {
	if sc.All {
		return q
	}
	return q.Where("branch_id = ?", sc.BranchID)
}

// List carga en dest las filas visibles bajo el scope. Los filtros extra
// (fechas, estado, preloads) se pasan como scopes de GORM. Orden por
// defecto: más reciente primero.
func (g *Gateway) List(dest any, sc scope.Scope, filters ...func(*gorm.DB) *gorm.DB) error {
	q := g.scoped(g.db, sc).Scopes(filters...).Order("created_at DESC, id DESC")
	return q.Find(dest).Error
}

// Get carga la fila id en dest. Una fila fuera del scope responde
// ErrNotFound, igual que una inexistente.
func (g *Gateway) Get(dest BranchOwned, id uint, sc scope.Scope, filters ...func(*gorm.DB) *gorm.DB) error {
	err := g.scoped(g.db, sc).Scopes(filters...).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Create inserta la fila. Con scope restringido el branch_id del payload se
// sobrescribe SIEMPRE con el del scope (defensa contra payloads falsificados).
// Con scope ilimitado el caller debe traer branch_id explícito.
func (g *Gateway) Create(row BranchOwned, sc scope.Scope) error {
	if sc.All {
		if row.GetBranchID() == 0 {
			return ErrBranchRequired
		}
	} else {
		row.SetBranchID(sc.BranchID)
	}
	return g.db.Create(row).Error
}

// Update aplica updates sobre la fila id si está dentro del scope. El
// branch_id nunca se actualiza por esta vía: mover filas entre sucursales no
// es una operación soportada.
func (g *Gateway) Update(row BranchOwned, id uint, sc scope.Scope, updates map[string]any) error {
	if err := g.Get(row, id, sc); err != nil {
		return err
	}
	delete(updates, "branch_id")
	if len(updates) == 0 {
		return nil
	}
	return g.db.Model(row).Updates(updates).Error
}

// Delete elimina la fila id si está dentro del scope. La fila queda cargada
// en row para que el caller pueda emitir el evento y el audit log.
func (g *Gateway) Delete(row BranchOwned, id uint, sc scope.Scope) error {
	if err := g.Get(row, id, sc); err != nil {
		return err
	}
	return g.db.Delete(row).Error
}
