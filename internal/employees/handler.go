// Package employees maneja al personal de cada sucursal.
package employees

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

type CreateEmployeeRequest struct {
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	EmployeeCode string  `json:"employee_code"`
	Barcode      string  `json:"barcode"`
	Salary       float64 `json:"salary"`
	// solo admin sin sucursal seleccionada:
	BranchID *uint `json:"branch_id"`
}

type UpdateEmployeeRequest struct {
	Name         *string  `json:"name"`
	Role         *string  `json:"role"`
	EmployeeCode *string  `json:"employee_code"`
	Barcode      *string  `json:"barcode"`
	Active       *bool    `json:"active"`
	Salary       *float64 `json:"salary"`
}

// -------------------------------------------------
// POST /api/employees
// -------------------------------------------------
func CreateEmployeeHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var body CreateEmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		role := body.Role
		if role == "" {
			role = "seller"
		}

		emp := models.Employee{
			Name:         body.Name,
			Role:         role,
			EmployeeCode: body.EmployeeCode,
			Barcode:      body.Barcode,
			Active:       true,
			Salary:       body.Salary,
		}
		if body.BranchID != nil {
			emp.BranchID = *body.BranchID
		}

		if err := gw.Create(&emp, sc); err != nil {
			if errors.Is(err, gateway.ErrBranchRequired) {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar al empleado")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &emp.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "employee",
			EntityID:    emp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Empleado registrado: %s", emp.Name),
			After:       emp,
		})

		hub.Publish(realtime.Event{
			Name:     "employee-created",
			BranchID: emp.BranchID,
			Data:     emp,
		})

		return c.Status(fiber.StatusCreated).JSON(emp)
	}
}

// -------------------------------------------------
// GET /api/employees?active=true
// -------------------------------------------------
func ListEmployeesHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var filters []func(*gorm.DB) *gorm.DB
		if v := c.Query("active"); v != "" {
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("active = ?", v == "true")
			})
		}

		var emps []models.Employee
		if err := gw.List(&emps, sc, filters...); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los empleados")
		}
		return c.JSON(emps)
	}
}

// -------------------------------------------------
// PUT /api/employees/:id
// -------------------------------------------------
func UpdateEmployeeHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
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

		var body UpdateEmployeeRequest
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
		if body.Role != nil {
			updates["role"] = *body.Role
		}
		if body.EmployeeCode != nil {
			updates["employee_code"] = *body.EmployeeCode
		}
		if body.Barcode != nil {
			updates["barcode"] = *body.Barcode
		}
		if body.Active != nil {
			updates["active"] = *body.Active
		}
		if body.Salary != nil {
			updates["salary"] = *body.Salary
		}

		var emp models.Employee
		if err := gw.Get(&emp, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Empleado no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar al empleado")
		}
		before := emp

		if err := gw.Update(&emp, emp.ID, sc, updates); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar al empleado")
		}
		if err := gw.Get(&emp, emp.ID, sc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo recargar al empleado")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &emp.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "employee",
			EntityID:    emp.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Empleado actualizado: %s", emp.Name),
			Before:      before,
			After:       emp,
		})

		hub.Publish(realtime.Event{
			Name:     "employee-updated",
			BranchID: emp.BranchID,
			Data:     emp,
		})

		return c.JSON(emp)
	}
}

// -------------------------------------------------
// DELETE /api/employees/:id
// -------------------------------------------------
func DeleteEmployeeHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
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

		var emp models.Employee
		if err := gw.Delete(&emp, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Empleado no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar al empleado")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &emp.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "employee",
			EntityID:    emp.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Empleado eliminado: %s", emp.Name),
			Before:      emp,
		})

		hub.Publish(realtime.Event{
			Name:     "employee-deleted",
			BranchID: emp.BranchID,
			Data:     fiber.Map{"id": emp.ID},
		})

		return c.JSON(fiber.Map{"message": "Empleado eliminado"})
	}
}
