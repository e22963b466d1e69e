package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/config"
	"joyeria-backend/internal/database"
	"joyeria-backend/internal/gateway"
	"joyeria-backend/internal/models"
	"joyeria-backend/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "clave-de-prueba-con-mas-de-32-caracteres"

func uintPtr(v uint) *uint { return &v }

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *realtime.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	for i := 1; i <= 2; i++ {
		require.NoError(t, db.Create(&models.Branch{Name: fmt.Sprintf("Sucursal %d", i), Active: true}).Error)
	}

	cfg := &config.Config{JWTSecret: testSecret}
	gw := gateway.New(db)
	hub := realtime.NewHub()

	app := fiber.New()
	api := app.Group("/api", auth.JWTMiddleware(cfg))
	api.Post("/inventory", CreateItemHandler(gw, hub))
	api.Get("/inventory", ListItemsHandler(gw))
	api.Get("/inventory/:id", GetItemHandler(gw))
	api.Put("/inventory/:id", UpdateItemHandler(gw, hub))
	api.Delete("/inventory/:id", DeleteItemHandler(gw, hub))

	return app, db, hub
}

func sellerToken(t *testing.T, branchID uint) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, &models.User{
		ID:       1,
		Username: "vendedor",
		Role:     models.RoleSeller,
		BranchID: &branchID,
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSKUUniquePerBranchNotGlobal(t *testing.T) {
	app, _, _ := setupApp(t)

	body := CreateItemRequest{SKU: "AN-001", Name: "Anillo oro 14k", Price: 2500, Stock: 1}

	resp := doJSON(t, app, "POST", "/api/inventory", sellerToken(t, 1), body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// mismo SKU en la misma sucursal: rechazado
	resp = doJSON(t, app, "POST", "/api/inventory", sellerToken(t, 1), body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// mismo SKU en otra sucursal: permitido
	resp = doJSON(t, app, "POST", "/api/inventory", sellerToken(t, 2), body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestCreateItemBroadcastsToBranch(t *testing.T) {
	app, _, hub := setupApp(t)

	store1 := realtime.NewClient(10, "tienda1", uintPtr(1), models.RoleSeller)
	store2 := realtime.NewClient(20, "tienda2", uintPtr(2), models.RoleSeller)
	hub.Join(store1)
	hub.Join(store2)

	body := CreateItemRequest{SKU: "PU-002", Name: "Pulsera plata", Price: 900}
	resp := doJSON(t, app, "POST", "/api/inventory", sellerToken(t, 1), body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	select {
	case ev := <-store1.Events():
		assert.Equal(t, "inventory-item-created", ev.Name)
		assert.Equal(t, uint(1), ev.BranchID)
	case <-time.After(time.Second):
		t.Fatal("la sucursal dueña no recibió el evento")
	}
	select {
	case ev := <-store2.Events():
		t.Fatalf("evento filtrado a otra sucursal: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateOutOfScopeRespondsNotFound(t *testing.T) {
	app, db, _ := setupApp(t)

	piece := models.InventoryItem{SKU: "AR-003", Name: "Aretes", Price: 450}
	piece.SetBranchID(2)
	require.NoError(t, db.Create(&piece).Error)

	name := "Aretes oro"
	resp := doJSON(t, app, "PUT", fmt.Sprintf("/api/inventory/%d", piece.ID),
		sellerToken(t, 1), UpdateItemRequest{Name: &name})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// sin cambios en la fila ajena
	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", piece.ID).Error)
	assert.Equal(t, "Aretes", after.Name)
}

func TestListFiltersByScopeAndQuery(t *testing.T) {
	app, db, _ := setupApp(t)

	for i, branch := range []uint{1, 1, 2} {
		piece := models.InventoryItem{
			SKU:    fmt.Sprintf("SKU-%d", i),
			Name:   "Anillo",
			Status: models.ItemStatusAvailable,
		}
		piece.SetBranchID(branch)
		require.NoError(t, db.Create(&piece).Error)
	}

	resp := doJSON(t, app, "GET", "/api/inventory", sellerToken(t, 1), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var items []models.InventoryItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, uint(1), it.BranchID)
	}
}

func TestDeleteItemBroadcastsAndAudits(t *testing.T) {
	app, db, hub := setupApp(t)

	piece := models.InventoryItem{SKU: "CO-004", Name: "Collar", Price: 1800}
	piece.SetBranchID(1)
	require.NoError(t, db.Create(&piece).Error)

	store1 := realtime.NewClient(10, "tienda1", uintPtr(1), models.RoleSeller)
	hub.Join(store1)

	resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/inventory/%d", piece.ID), sellerToken(t, 1), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	select {
	case ev := <-store1.Events():
		assert.Equal(t, "inventory-item-deleted", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("no llegó el evento de borrado")
	}

	var log models.AuditLog
	require.NoError(t, db.First(&log, "entity_type = ? AND entity_id = ?", "inventory_item", piece.ID).Error)
	assert.Equal(t, models.AuditActionDelete, log.Action)
	assert.NotEqual(t, "null", log.BeforeData)
}
