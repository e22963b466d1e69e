package realtime

import (
	"log/slog"
	"strings"

	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/config"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const ctxWSClaimsKey = "ws_claims"

// UpgradeMiddleware verifica el token ANTES de aceptar la conexión. La
// verificación es exactamente la misma que en HTTP; un token inválido
// rechaza el handshake completo, sin aceptación parcial.
func UpgradeMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Token en query (?token=...) o en header Authorization
		token := c.Query("token")
		if token == "" {
			parts := strings.SplitN(c.Get("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Token de autenticación requerido")
		}

		claims, err := auth.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		c.Locals(ctxWSClaimsKey, claims)
		return c.Next()
	}
}

type inboundMessage struct {
	Event string `json:"event"`
}

// Handler atiende una conexión ya autenticada: la une al grupo de su
// sucursal de origen, bombea eventos salientes y responde ping/pong.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		claims, ok := conn.Locals(ctxWSClaimsKey).(*auth.Claims)
		if !ok || claims == nil {
			// el middleware garantiza claims; esto solo puede pasar si
			// la ruta se montó sin UpgradeMiddleware
			conn.Close()
			return
		}

		client := NewClient(claims.UserID, claims.Username, claims.BranchID, claims.Role)
		hub.Join(client)
		defer hub.Leave(client)

		slog.Info("cliente conectado",
			"user_id", client.UserID,
			"branch_id", client.BranchID,
		)

		// Ack de conexión, igual que el evento "connected" del sistema
		_ = conn.WriteJSON(fiber.Map{
			"event":     "connected",
			"user_id":   claims.UserID,
			"branch_id": claims.BranchID,
			"role":      claims.Role,
		})

		// Bomba de escritura: drena el canal del cliente hacia el socket.
		// El canal nunca se cierra (Publish puede tener una referencia al
		// cliente mientras se desconecta); quit detiene la bomba.
		quit := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case ev := <-client.Events():
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
				case <-quit:
					return
				}
			}
		}()

		// Loop de lectura: ping/pong y detección de cierre
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			if msg.Event == "ping" {
				// por el canal del cliente: solo la bomba escribe al socket
				select {
				case client.send <- Event{Name: "pong"}:
				default:
				}
			}
			// cualquier otro mensaje entrante se ignora
		}

		close(quit)
		<-done

		slog.Info("cliente desconectado",
			"user_id", client.UserID,
			"branch_id", client.BranchID,
		)
	})
}
