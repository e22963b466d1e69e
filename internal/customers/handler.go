// Package customers maneja la cartera de clientes por sucursal.
package customers

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

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
	// solo admin sin sucursal seleccionada:
	BranchID *uint `json:"branch_id"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// -------------------------------------------------
// POST /api/customers
// -------------------------------------------------
func CreateCustomerHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		cust := models.Customer{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Address: body.Address,
			Notes:   body.Notes,
		}
		if body.BranchID != nil {
			cust.BranchID = *body.BranchID
		}

		if err := gw.Create(&cust, sc); err != nil {
			if errors.Is(err, gateway.ErrBranchRequired) {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar al cliente")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &cust.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Cliente registrado: %s", cust.Name),
			After:       cust,
		})

		hub.Publish(realtime.Event{
			Name:     "customer-created",
			BranchID: cust.BranchID,
			Data:     cust,
		})

		return c.Status(fiber.StatusCreated).JSON(cust)
	}
}

// -------------------------------------------------
// GET /api/customers?q=maria
// -------------------------------------------------
func ListCustomersHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var filters []func(*gorm.DB) *gorm.DB
		if v := c.Query("q"); v != "" {
			like := "%" + v + "%"
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
			})
		}

		var custs []models.Customer
		if err := gw.List(&custs, sc, filters...); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los clientes")
		}
		return c.JSON(custs)
	}
}

// -------------------------------------------------
// GET /api/customers/:id
// -------------------------------------------------
func GetCustomerHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var cust models.Customer
		if err := gw.Get(&cust, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Cliente no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar al cliente")
		}
		return c.JSON(cust)
	}
}

// -------------------------------------------------
// PUT /api/customers/:id
// -------------------------------------------------
func UpdateCustomerHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
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

		var body UpdateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		updates := map[string]any{}
		if body.Name != nil {
			if *body.Name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede quedar vacío")
			}
			updates["name"] = *body.Name
		}
		if body.Email != nil {
			updates["email"] = *body.Email
		}
		if body.Phone != nil {
			updates["phone"] = *body.Phone
		}
		if body.Address != nil {
			updates["address"] = *body.Address
		}
		if body.Notes != nil {
			updates["notes"] = *body.Notes
		}

		var cust models.Customer
		if err := gw.Get(&cust, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Cliente no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar al cliente")
		}
		before := cust

		if err := gw.Update(&cust, cust.ID, sc, updates); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar al cliente")
		}
		if err := gw.Get(&cust, cust.ID, sc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo recargar al cliente")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &cust.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Cliente actualizado: %s", cust.Name),
			Before:      before,
			After:       cust,
		})

		hub.Publish(realtime.Event{
			Name:     "customer-updated",
			BranchID: cust.BranchID,
			Data:     cust,
		})

		return c.JSON(cust)
	}
}

// -------------------------------------------------
// DELETE /api/customers/:id
// -------------------------------------------------
func DeleteCustomerHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
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

		var cust models.Customer
		if err := gw.Delete(&cust, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Cliente no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar al cliente")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &cust.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Cliente eliminado: %s", cust.Name),
			Before:      cust,
		})

		hub.Publish(realtime.Event{
			Name:     "customer-deleted",
			BranchID: cust.BranchID,
			Data:     fiber.Map{"id": cust.ID},
		})

		return c.JSON(fiber.Map{"message": "Cliente eliminado"})
	}
}
