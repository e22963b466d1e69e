package auth

import (
	"strings"
	"time"

	"joyeria-backend/internal/config"
	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type BootstrapAdminRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID          uint            `json:"id"`
	Username    string          `json:"username"`
	Name        string          `json:"name"`
	Role        models.UserRole `json:"role"`
	BranchID    *uint           `json:"branch_id"`
	Permissions []string        `json:"permissions"`
	Active      bool            `json:"active"`
	CreatedAt   string          `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	perms := u.PermissionList()
	if perms == nil {
		perms = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Role:        u.Role,
		BranchID:    u.BranchID,
		Permissions: perms,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// BootstrapAdminHandler crea el primer admin. Solo funciona una vez:
// si ya existe un admin responde 403.
func BootstrapAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BootstrapAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.Name = strings.TrimSpace(body.Name)

		if body.Username == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, usuario y contraseña son requeridos")
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Ya existe un administrador")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}

		user := models.User{
			Username:     body.Username,
			Name:         body.Name,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
		}
		user.SetPermissionList([]string{models.PermissionAll})

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de petición inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))

		var user models.User
		if err := database.DB.Where("username = ?", body.Username).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
		}

		if !user.Active {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario inactivo")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
		}

		ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
		token, err := GenerateToken(cfg.JWTSecret, &user, ttl)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, claims.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario no encontrado")
		}

		resp := fiber.Map{"user": toUserResponse(&user)}

		if user.BranchID != nil {
			var branch models.Branch
			if err := database.DB.First(&branch, *user.BranchID).Error; err == nil {
				resp["branch"] = branch
			}
		}

		return c.JSON(resp)
	}
}
