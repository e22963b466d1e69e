// Package inventory maneja las piezas de joyería por sucursal.
package inventory

import (
	"errors"
	"fmt"

	"joyeria-backend/internal/audit"
	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/gateway"
	"joyeria-backend/internal/models"
	"joyeria-backend/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	SKU         string  `json:"sku"`
	Barcode     string  `json:"barcode"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metal       string  `json:"metal"`
	Stone       string  `json:"stone"`
	Size        string  `json:"size"`
	Weight      float64 `json:"weight"`
	Cost        float64 `json:"cost"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Location    string  `json:"location"`
	// solo admin sin sucursal seleccionada:
	BranchID *uint `json:"branch_id"`
}

type UpdateItemRequest struct {
	Barcode     *string  `json:"barcode"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Metal       *string  `json:"metal"`
	Stone       *string  `json:"stone"`
	Size        *string  `json:"size"`
	Weight      *float64 `json:"weight"`
	Cost        *float64 `json:"cost"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Location    *string  `json:"location"`
	Status      *string  `json:"status"`
}

// -------------------------------------------------
// POST /api/inventory
// -------------------------------------------------
func CreateItemHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var body CreateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if body.SKU == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "SKU y nombre son obligatorios")
		}
		if body.Price < 0 || body.Cost < 0 || body.Stock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Precio, costo y stock no pueden ser negativos")
		}

		item := models.InventoryItem{
			SKU:         body.SKU,
			Barcode:     body.Barcode,
			Name:        body.Name,
			Description: body.Description,
			Metal:       body.Metal,
			Stone:       body.Stone,
			Size:        body.Size,
			Weight:      body.Weight,
			Cost:        body.Cost,
			Price:       body.Price,
			Stock:       body.Stock,
			Location:    body.Location,
			Status:      models.ItemStatusAvailable,
		}
		if body.BranchID != nil {
			item.BranchID = *body.BranchID
		}

		// El SKU es único por sucursal. Resolver la sucursal destino igual
		// que lo hará el gateway, para validar contra la tabla correcta.
		targetBranch := item.BranchID
		if !sc.All {
			targetBranch = sc.BranchID
		}
		if targetBranch == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido")
		}
		var count int64
		if err := gw.DB().Model(&models.InventoryItem{}).
			Where("branch_id = ? AND sku = ?", targetBranch, body.SKU).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo validar el SKU")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Ya existe una pieza con ese SKU en la sucursal")
		}

		if err := gw.Create(&item, sc); err != nil {
			if errors.Is(err, gateway.ErrBranchRequired) {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la pieza")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Pieza creada: %s (%s)", item.Name, item.SKU),
			After:       item,
		})

		hub.Publish(realtime.Event{
			Name:     "inventory-item-created",
			BranchID: item.BranchID,
			Data:     item,
		})

		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// -------------------------------------------------
// GET /api/inventory?status=disponible&metal=oro&q=anillo
// -------------------------------------------------
func ListItemsHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var filters []func(*gorm.DB) *gorm.DB
		if v := c.Query("status"); v != "" {
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("status = ?", v)
			})
		}
		if v := c.Query("metal"); v != "" {
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("metal = ?", v)
			})
		}
		if v := c.Query("q"); v != "" {
			like := "%" + v + "%"
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("name LIKE ? OR sku LIKE ? OR barcode LIKE ?", like, like, like)
			})
		}

		var items []models.InventoryItem
		if err := gw.List(&items, sc, filters...); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo listar el inventario")
		}
		return c.JSON(items)
	}
}

// -------------------------------------------------
// GET /api/inventory/:id
// -------------------------------------------------
func GetItemHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var item models.InventoryItem
		if err := gw.Get(&item, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Pieza no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar la pieza")
		}
		return c.JSON(item)
	}
}

// -------------------------------------------------
// PUT /api/inventory/:id
// -------------------------------------------------
func UpdateItemHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		updates := map[string]any{}
		if body.Barcode != nil {
			updates["barcode"] = *body.Barcode
		}
		if body.Name != nil {
			if *body.Name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede quedar vacío")
			}
			updates["name"] = *body.Name
		}
		if body.Description != nil {
			updates["description"] = *body.Description
		}
		if body.Metal != nil {
			updates["metal"] = *body.Metal
		}
		if body.Stone != nil {
			updates["stone"] = *body.Stone
		}
		if body.Size != nil {
			updates["size"] = *body.Size
		}
		if body.Weight != nil {
			updates["weight"] = *body.Weight
		}
		if body.Cost != nil {
			updates["cost"] = *body.Cost
		}
		if body.Price != nil {
			updates["price"] = *body.Price
		}
		if body.Stock != nil {
			if *body.Stock < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "El stock no puede ser negativo")
			}
			updates["stock"] = *body.Stock
		}
		if body.Status != nil {
			switch models.ItemStatus(*body.Status) {
			case models.ItemStatusAvailable, models.ItemStatusReserved, models.ItemStatusSold:
				updates["status"] = *body.Status
			default:
				return fiber.NewError(fiber.StatusBadRequest, "Estado inválido (disponible|apartado|vendido)")
			}
		}

		var item models.InventoryItem
		if err := gw.Get(&item, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Pieza no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar la pieza")
		}
		before := item

		if err := gw.Update(&item, item.ID, sc, updates); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la pieza")
		}
		if err := gw.Get(&item, item.ID, sc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo recargar la pieza")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Pieza actualizada: %s (%s)", item.Name, item.SKU),
			Before:      before,
			After:       item,
		})

		hub.Publish(realtime.Event{
			Name:     "inventory-item-updated",
			BranchID: item.BranchID,
			Data:     item,
		})

		return c.JSON(item)
	}
}

// -------------------------------------------------
// DELETE /api/inventory/:id
// -------------------------------------------------
func DeleteItemHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var item models.InventoryItem
		if err := gw.Delete(&item, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Pieza no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la pieza")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Pieza eliminada: %s (%s)", item.Name, item.SKU),
			Before:      item,
		})

		hub.Publish(realtime.Event{
			Name:     "inventory-item-deleted",
			BranchID: item.BranchID,
			Data:     fiber.Map{"id": item.ID, "sku": item.SKU},
		})

		return c.JSON(fiber.Map{"message": "Pieza eliminada"})
	}
}
