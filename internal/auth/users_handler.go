package auth

import (
	"strings"

	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Username    string          `json:"username"`
	Name        string          `json:"name"`
	Password    string          `json:"password"`
	Role        models.UserRole `json:"role"`
	BranchID    *uint           `json:"branch_id"`
	Permissions []string        `json:"permissions"`
}

type UpdateUserRequest struct {
	Name        *string          `json:"name"`
	Password    *string          `json:"password"`
	Role        *models.UserRole `json:"role"`
	BranchID    *uint            `json:"branch_id"`
	Permissions []string         `json:"permissions"`
	Active      *bool            `json:"active"`
}

func validRole(r models.UserRole) bool {
	switch r {
	case models.RoleAdmin, models.RoleManager, models.RoleSeller, models.RoleCashier:
		return true
	}
	return false
}

// POST /api/users (solo admin)
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.Name = strings.TrimSpace(body.Name)

		if body.Username == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario y contraseña son requeridos")
		}
		if body.Role == "" {
			body.Role = models.RoleSeller
		}
		if !validRole(body.Role) {
			return fiber.NewError(fiber.StatusBadRequest, "Rol inválido")
		}

		// Todo usuario que no es admin necesita sucursal de origen
		if body.Role != models.RoleAdmin && body.BranchID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido para usuarios no admin")
		}

		if body.BranchID != nil {
			var branch models.Branch
			if err := database.DB.First(&branch, *body.BranchID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "La sucursal no existe")
			}
		}

		var exists models.User
		if err := database.DB.Where("username = ?", body.Username).First(&exists).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "El usuario ya existe")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}

		user := models.User{
			Username:     body.Username,
			Name:         body.Name,
			PasswordHash: string(hash),
			Role:         body.Role,
			BranchID:     body.BranchID,
			Active:       true,
		}
		user.SetPermissionList(body.Permissions)

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// GET /api/users
// Admin: todos, o filtrado con ?branchId. Resto: solo su sucursal.
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := ScopeFromRequest(c)
		if err != nil {
			return err
		}

		q := database.DB.Model(&models.User{}).Order("created_at DESC")
		if !sc.All {
			q = q.Where("branch_id = ?", sc.BranchID)
		}

		var users []models.User
		if err := q.Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los usuarios")
		}

		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, toUserResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/users/:id (solo admin)
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede estar vacío")
			}
			user.Name = name
		}
		if body.Role != nil {
			if !validRole(*body.Role) {
				return fiber.NewError(fiber.StatusBadRequest, "Rol inválido")
			}
			user.Role = *body.Role
		}
		if body.BranchID != nil {
			var branch models.Branch
			if err := database.DB.First(&branch, *body.BranchID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "La sucursal no existe")
			}
			user.BranchID = body.BranchID
		}
		if body.Permissions != nil {
			user.SetPermissionList(body.Permissions)
		}
		if body.Active != nil {
			user.Active = *body.Active
		}
		if body.Password != nil && *body.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
			}
			user.PasswordHash = string(hash)
		}

		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el usuario")
		}

		return c.JSON(toUserResponse(&user))
	}
}

// DELETE /api/users/:id (solo admin)
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}

		id := c.Params("id")

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}

		if user.ID == claims.UserID {
			return fiber.NewError(fiber.StatusBadRequest, "No puedes eliminar tu propio usuario")
		}

		if err := database.DB.Delete(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el usuario")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
