// Package scope calcula el alcance de sucursales de una petición.
//
// Es el único punto donde se decide qué sucursal(es) puede tocar un usuario.
// Los handlers nunca reimplementan la regla de admin; siempre pasan por
// Resolve y entregan el Scope resultante al gateway.
package scope

import (
	"errors"

	"joyeria-backend/internal/models"
)

// ErrNoBranch: un usuario no-admin sin sucursal asignada no puede operar.
var ErrNoBranch = errors.New("usuario sin sucursal asignada")

// Scope es el conjunto de sucursales permitido para una petición.
// O bien es ilimitado (admin viendo todas las sucursales) o está
// restringido a exactamente una sucursal.
type Scope struct {
	All      bool
	BranchID uint
}

func Unrestricted() Scope { return Scope{All: true} }

func Restricted(branchID uint) Scope { return Scope{BranchID: branchID} }

// Contains indica si una fila con ese branch_id cae dentro del scope.
func (s Scope) Contains(branchID uint) bool {
	return s.All || s.BranchID == branchID
}

// Resolve calcula el scope efectivo a partir de los claims del token y del
// parámetro branchId opcional de la petición.
//
// Regla admin (rol admin o permiso "all"): si pide una sucursal concreta,
// queda restringido a esa; si no pide ninguna, ve todas.
//
// Regla para el resto: el parámetro de la petición se IGNORA por completo y
// el scope es siempre la sucursal del token. Esto evita la escalada de
// privilegios vía un branchId falsificado; no es un error, simplemente no
// tiene efecto.
//
// Función pura: sin I/O, determinista.
func Resolve(role models.UserRole, permissions []string, homeBranchID *uint, requestedBranchID *uint) (Scope, error) {
	admin := role == models.RoleAdmin
	for _, p := range permissions {
		if p == models.PermissionAll {
			admin = true
			break
		}
	}

	if admin {
		if requestedBranchID != nil && *requestedBranchID != 0 {
			return Restricted(*requestedBranchID), nil
		}
		return Unrestricted(), nil
	}

	if homeBranchID == nil || *homeBranchID == 0 {
		return Scope{}, ErrNoBranch
	}
	return Restricted(*homeBranchID), nil
}
