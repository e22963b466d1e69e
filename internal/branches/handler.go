// Package branches administra el catálogo de sucursales. El CRUD es de
// admin; el listado lo usa cualquier usuario autenticado (el cliente lo
// necesita para el selector de sucursal).
package branches

import (
	"fmt"
	"strings"

	"joyeria-backend/internal/audit"
	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type BranchResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Active  bool   `json:"active"`
}

type CreateBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Active  *bool   `json:"active"`
}

func toBranchResponse(b *models.Branch) BranchResponse {
	return BranchResponse{
		ID:      b.ID,
		Name:    b.Name,
		Address: b.Address,
		Phone:   b.Phone,
		Email:   b.Email,
		Active:  b.Active,
	}
}

// -------------------------------------------------
// POST /api/branches (solo admin)
// -------------------------------------------------
func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal es obligatorio")
		}

		var exist models.Branch
		if err := database.DB.Where("name = ?", body.Name).First(&exist).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Ya existe una sucursal con ese nombre")
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: body.Address,
			Phone:   strings.TrimSpace(body.Phone),
			Email:   strings.ToLower(strings.TrimSpace(body.Email)),
			Active:  true,
		}

		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la sucursal")
		}

		audit.Record(audit.LogOptions{
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sucursal creada: %s", branch.Name),
			After:       toBranchResponse(&branch),
		})

		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(&branch))
	}
}

// -------------------------------------------------
// GET /api/branches
// -------------------------------------------------
func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("name asc").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las sucursales")
		}

		res := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			res = append(res, toBranchResponse(&branches[i]))
		}
		return c.JSON(res)
	}
}

// -------------------------------------------------
// GET /api/branches/:id
// -------------------------------------------------
func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		return c.JSON(toBranchResponse(&branch))
	}
}

// -------------------------------------------------
// PUT /api/branches/:id (solo admin)
// -------------------------------------------------
func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}
		before := toBranchResponse(&branch)

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal no puede quedar vacío")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = *body.Address
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Email != nil {
			branch.Email = strings.ToLower(strings.TrimSpace(*body.Email))
		}
		if body.Active != nil {
			branch.Active = *body.Active
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la sucursal")
		}

		audit.Record(audit.LogOptions{
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Sucursal actualizada: %s", branch.Name),
			Before:      before,
			After:       toBranchResponse(&branch),
		})

		return c.JSON(toBranchResponse(&branch))
	}
}

// -------------------------------------------------
// DELETE /api/branches/:id (solo admin)
// -------------------------------------------------
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		// Una sucursal con usuarios no se borra, se desactiva
		var users int64
		database.DB.Model(&models.User{}).Where("branch_id = ?", branch.ID).Count(&users)
		if users > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "La sucursal tiene usuarios asignados; desactívala en su lugar")
		}

		if err := database.DB.Delete(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la sucursal")
		}

		audit.Record(audit.LogOptions{
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Sucursal eliminada: %s", branch.Name),
			Before:      toBranchResponse(&branch),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
