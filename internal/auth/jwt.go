package auth

import (
	"errors"
	"fmt"
	"time"

	"joyeria-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cubre todo fallo de verificación: firma inválida, token
// malformado o expirado. Nunca se degrada a un scope por defecto.
var ErrInvalidToken = errors.New("token inválido o expirado")

type Claims struct {
	UserID      uint            `json:"user_id"`
	Username    string          `json:"username"`
	Role        models.UserRole `json:"role"`
	BranchID    *uint           `json:"branch_id"` // sucursal de origen, inmutable durante la vida del token
	Permissions []string        `json:"permissions"`
	jwt.RegisteredClaims
}

// IsAdmin replica la regla del resolver: rol admin o permiso "all".
func (c *Claims) IsAdmin() bool {
	if c.Role == models.RoleAdmin {
		return true
	}
	for _, p := range c.Permissions {
		if p == models.PermissionAll {
			return true
		}
	}
	return false
}

func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		BranchID:    user.BranchID,
		Permissions: user.PermissionList(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifica y decodifica un token. Es el mismo camino para
// peticiones HTTP (header Bearer) y para el handshake WebSocket: ambos
// transportes hacen verificación completa, sin atajos.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
