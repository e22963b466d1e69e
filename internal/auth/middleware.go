package auth

import (
	"fmt"
	"strings"

	"joyeria-backend/internal/config"
	"joyeria-backend/internal/models"
	"joyeria-backend/internal/scope"

	"github.com/gofiber/fiber/v2"
)

const CtxClaimsKey = "claims"

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Token no proporcionado")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "El header Authorization debe ser 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		c.Locals(CtxClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx devuelve los claims que dejó JWTMiddleware.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals(CtxClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "No autenticado")
	}
	return claims, nil
}

// ScopeFromRequest resuelve el scope efectivo de la petición: claims del
// token + parámetro opcional branchId (query). Único punto de entrada de los
// handlers al resolver.
func ScopeFromRequest(c *fiber.Ctx) (scope.Scope, error) {
	claims, err := ClaimsFromCtx(c)
	if err != nil {
		return scope.Scope{}, err
	}

	var requested *uint
	bidStr := c.Query("branchId")
	if bidStr == "" {
		bidStr = c.Query("branch_id")
	}
	if bidStr != "" {
		var parsed uint
		if _, err := fmt.Sscan(bidStr, &parsed); err == nil {
			requested = &parsed
		}
		// un branchId no numérico se ignora igual que uno ajeno
	}

	sc, err := scope.Resolve(claims.Role, claims.Permissions, claims.BranchID, requested)
	if err != nil {
		return scope.Scope{}, fiber.NewError(fiber.StatusForbidden, "Usuario sin sucursal asignada")
	}
	return sc, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}

		for _, r := range allowedRoles {
			if r == claims.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "No tienes permiso para esta operación")
	}
}

// RequireAdmin exige rol admin o permiso "all".
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		if !claims.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "Se requiere rol de administrador")
		}
		return c.Next()
	}
}
