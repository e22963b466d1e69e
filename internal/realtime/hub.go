// Package realtime implementa el canal de eventos en vivo, separado por
// sucursal igual que las salas "branch_<id>" del sistema.
package realtime

import (
	"fmt"
	"sync"

	"joyeria-backend/internal/models"
)

// Event es una mutación difundida a los clientes conectados. El branch_id
// del payload es lo único que decide el enrutamiento.
type Event struct {
	Name     string `json:"event"`
	BranchID uint   `json:"branch_id"`
	Data     any    `json:"data"`
}

// GroupName nombra el grupo de difusión de una sucursal.
func GroupName(branchID uint) string {
	return fmt.Sprintf("branch_%d", branchID)
}

const sendBuffer = 32

// Client es una conexión autenticada. La membresía de grupo se fija al
// conectar según la sucursal del token, no según el filtro de UI del admin.
type Client struct {
	UserID   uint
	Username string
	BranchID *uint
	Role     models.UserRole

	send chan Event
}

func NewClient(userID uint, username string, branchID *uint, role models.UserRole) *Client {
	return &Client{
		UserID:   userID,
		Username: username,
		BranchID: branchID,
		Role:     role,
		send:     make(chan Event, sendBuffer),
	}
}

// Events es el canal de salida que la bomba de escritura del websocket drena.
func (c *Client) Events() <-chan Event {
	return c.send
}

// Hub mantiene el registro de membresías por sucursal. La membresía solo
// muta en connect/disconnect; Publish puede correr concurrente con joins y
// una conexión recién unida puede perderse eventos publicados microsegundos
// antes: semántica fire-and-forget, sin garantía de entrega ni de orden.
type Hub struct {
	mu     sync.RWMutex
	groups map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[uint]map[*Client]struct{})}
}

// Join inscribe al cliente en el grupo de su sucursal de origen. Volver a
// unirse tras una reconexión es idempotente.
func (h *Hub) Join(c *Client) {
	if c.BranchID == nil {
		// admin sin sucursal propia: no pertenece a ningún grupo y
		// re-consulta bajo demanda en lugar de recibir eventos
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[*c.BranchID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[*c.BranchID] = group
	}
	group[c] = struct{}{}
}

// Leave saca al cliente de su grupo. No se conserva estado de reconexión:
// al volver, el cliente se autentica y se une igual que la primera vez.
func (h *Hub) Leave(c *Client) {
	if c.BranchID == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.groups[*c.BranchID]; ok {
		delete(group, c)
		if len(group) == 0 {
			delete(h.groups, *c.BranchID)
		}
	}
}

// Publish difunde el evento SOLO al grupo de event.BranchID. Nunca a todos
// los grupos, aunque quien publica tenga scope ilimitado. Un cliente con el
// buffer lleno pierde el evento en vez de bloquear al publicador.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[ev.BranchID] {
		select {
		case c.send <- ev:
		default:
		}
	}
}

// Connected cuenta los clientes del grupo de una sucursal.
func (h *Hub) Connected(branchID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[branchID])
}
