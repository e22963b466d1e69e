package realtime

import (
	"sync"
	"testing"
	"time"

	"joyeria-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no llegó ningún evento")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("evento inesperado: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishRoutesOnlyToOwningBranch(t *testing.T) {
	hub := NewHub()

	store1 := NewClient(1, "vendedor1", uintPtr(1), models.RoleSeller)
	store2 := NewClient(2, "vendedor2", uintPtr(2), models.RoleSeller)
	hub.Join(store1)
	hub.Join(store2)

	hub.Publish(Event{Name: "sale-created", BranchID: 2, Data: map[string]any{"folio": "F-1"}})

	// El cliente de la sucursal 1 NUNCA ve eventos de la 2
	assertNoEvent(t, store1)

	ev := recvEvent(t, store2)
	assert.Equal(t, "sale-created", ev.Name)
	assert.Equal(t, uint(2), ev.BranchID)
}

func TestPublishNeverFansOutToAllGroups(t *testing.T) {
	hub := NewHub()

	clients := []*Client{
		NewClient(1, "a", uintPtr(1), models.RoleSeller),
		NewClient(2, "b", uintPtr(2), models.RoleSeller),
		NewClient(3, "c", uintPtr(3), models.RoleSeller),
	}
	for _, c := range clients {
		hub.Join(c)
	}

	hub.Publish(Event{Name: "inventory-item-updated", BranchID: 1})

	recvEvent(t, clients[0])
	assertNoEvent(t, clients[1])
	assertNoEvent(t, clients[2])
}

func TestAdminWithoutBranchJoinsNoGroup(t *testing.T) {
	hub := NewHub()

	admin := NewClient(9, "admin", nil, models.RoleAdmin)
	hub.Join(admin)

	hub.Publish(Event{Name: "sale-created", BranchID: 1})
	hub.Publish(Event{Name: "sale-created", BranchID: 2})

	// El admin re-consulta bajo demanda; no recibe difusiones
	assertNoEvent(t, admin)
}

func TestRejoinIsIdempotent(t *testing.T) {
	hub := NewHub()

	c := NewClient(1, "vendedor1", uintPtr(1), models.RoleSeller)
	hub.Join(c)
	hub.Join(c) // reconexión
	assert.Equal(t, 1, hub.Connected(1))

	hub.Publish(Event{Name: "sale-created", BranchID: 1})
	recvEvent(t, c)
	assertNoEvent(t, c) // un solo evento, no duplicado

	hub.Leave(c)
	hub.Leave(c) // idempotente también
	assert.Zero(t, hub.Connected(1))
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()

	c := NewClient(1, "vendedor1", uintPtr(1), models.RoleSeller)
	hub.Join(c)
	hub.Leave(c)

	hub.Publish(Event{Name: "sale-created", BranchID: 1})
	assertNoEvent(t, c)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()

	c := NewClient(1, "vendedor1", uintPtr(1), models.RoleSeller)
	hub.Join(c)

	// Nadie drena el canal: Publish no debe bloquear jamás
	for i := 0; i < sendBuffer*2; i++ {
		hub.Publish(Event{Name: "sale-created", BranchID: 1})
	}

	// Se conservan a lo más sendBuffer eventos
	count := 0
	for {
		select {
		case <-c.Events():
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, sendBuffer, count)
}

func TestConcurrentPublishAndJoin(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		branch := uint(i%4 + 1)
		go func() {
			defer wg.Done()
			c := NewClient(uint(i), "u", uintPtr(branch), models.RoleSeller)
			hub.Join(c)
			hub.Leave(c)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(Event{Name: "sale-created", BranchID: branch})
		}()
	}
	wg.Wait()

	require.Zero(t, hub.Connected(1))
}
