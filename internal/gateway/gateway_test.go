package gateway

import (
	"fmt"
	"testing"
	"time"

	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"
	"joyeria-backend/internal/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	for i := 1; i <= 3; i++ {
		require.NoError(t, db.Create(&models.Branch{Name: fmt.Sprintf("Sucursal %d", i)}).Error)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, branchID uint, sku string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		SKU:   sku,
		Name:  "Anillo oro 14k",
		Price: 1500,
		Stock: 1,
	}
	item.BranchID = branchID
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestGetOutsideScopeIsNotFound(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	item := seedItem(t, db, 3, "SKU-3")

	// La fila existe pero pertenece a otra sucursal: NotFound, nunca un
	// "forbidden" que delate su existencia.
	var got models.InventoryItem
	err := gw.Get(&got, item.ID, scope.Restricted(1))
	assert.ErrorIs(t, err, ErrNotFound)

	// Dentro del scope sí se ve
	err = gw.Get(&got, item.ID, scope.Restricted(3))
	require.NoError(t, err)
	assert.Equal(t, "SKU-3", got.SKU)

	// Admin sin restricción también
	var gotAll models.InventoryItem
	require.NoError(t, gw.Get(&gotAll, item.ID, scope.Unrestricted()))
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	var got models.InventoryItem
	err := gw.Get(&got, 9999, scope.Unrestricted())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateForcesScopeBranch(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	// El payload dice sucursal 2; el scope es de la 1: gana el scope.
	item := models.InventoryItem{SKU: "SKU-X", Name: "Cadena plata"}
	item.BranchID = 2

	require.NoError(t, gw.Create(&item, scope.Restricted(1)))
	assert.Equal(t, uint(1), item.BranchID)

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, uint(1), stored.BranchID)
}

func TestCreateWithoutBranchUnderRestrictedScope(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	sale := models.Sale{Folio: "F-001", Total: 100}
	require.NoError(t, gw.Create(&sale, scope.Restricted(1)))
	assert.Equal(t, uint(1), sale.BranchID)
}

func TestCreateUnrestrictedRequiresExplicitBranch(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	sale := models.Sale{Folio: "F-002", Total: 100}
	err := gw.Create(&sale, scope.Unrestricted())
	assert.ErrorIs(t, err, ErrBranchRequired)

	sale.BranchID = 2
	require.NoError(t, gw.Create(&sale, scope.Unrestricted()))
	assert.Equal(t, uint(2), sale.BranchID)
}

func TestListFiltersByScope(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	seedItem(t, db, 1, "A-1")
	seedItem(t, db, 1, "A-2")
	seedItem(t, db, 2, "B-1")

	var items []models.InventoryItem
	require.NoError(t, gw.List(&items, scope.Restricted(1)))
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, uint(1), it.BranchID)
	}

	items = nil
	require.NoError(t, gw.List(&items, scope.Unrestricted()))
	assert.Len(t, items, 3)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	old := seedItem(t, db, 1, "VIEJO")
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().Add(-time.Hour)).Error)
	seedItem(t, db, 1, "NUEVO")

	var items []models.InventoryItem
	require.NoError(t, gw.List(&items, scope.Restricted(1)))
	require.Len(t, items, 2)
	assert.Equal(t, "NUEVO", items[0].SKU)
	assert.Equal(t, "VIEJO", items[1].SKU)
}

func TestListExtraFilters(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	sold := seedItem(t, db, 1, "VENDIDO")
	require.NoError(t, db.Model(&sold).Update("status", models.ItemStatusSold).Error)
	seedItem(t, db, 1, "LIBRE")

	byStatus := func(status models.ItemStatus) func(*gorm.DB) *gorm.DB {
		return func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", status) }
	}

	var items []models.InventoryItem
	require.NoError(t, gw.List(&items, scope.Restricted(1), byStatus(models.ItemStatusSold)))
	require.Len(t, items, 1)
	assert.Equal(t, "VENDIDO", items[0].SKU)
}

func TestUpdateOutsideScopeIsNotFound(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	item := seedItem(t, db, 2, "SKU-U")

	var row models.InventoryItem
	err := gw.Update(&row, item.ID, scope.Restricted(1), map[string]any{"price": 2000.0})
	assert.ErrorIs(t, err, ErrNotFound)

	// Dentro del scope sí actualiza, y branch_id del mapa se descarta
	err = gw.Update(&row, item.ID, scope.Restricted(2), map[string]any{
		"price":     2000.0,
		"branch_id": uint(1),
	})
	require.NoError(t, err)

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, 2000.0, stored.Price)
	assert.Equal(t, uint(2), stored.BranchID)
}

func TestDeleteOutsideScopeIsNotFound(t *testing.T) {
	db := setupDB(t)
	gw := New(db)

	item := seedItem(t, db, 2, "SKU-D")

	var row models.InventoryItem
	err := gw.Delete(&row, item.ID, scope.Restricted(1))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, gw.Delete(&row, item.ID, scope.Restricted(2)))
	assert.Equal(t, "SKU-D", row.SKU) // la fila queda cargada para audit/evento

	var count int64
	db.Model(&models.InventoryItem{}).Where("id = ?", item.ID).Count(&count)
	assert.Zero(t, count)
}
