package ratelimit

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinBurst(t *testing.T) {
	lim := New(Config{Requests: 5, Window: time.Minute, Burst: 5})

	for i := 0; i < 5; i++ {
		ok, _ := lim.Allow("1.2.3.4")
		assert.True(t, ok, "intento %d dentro de la ráfaga", i+1)
	}

	ok, retryAfter := lim.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestKeysAreIndependent(t *testing.T) {
	lim := New(Config{Requests: 1, Window: time.Minute, Burst: 1})

	ok, _ := lim.Allow("1.2.3.4:ana")
	assert.True(t, ok)
	ok, _ = lim.Allow("1.2.3.4:ana")
	assert.False(t, ok)

	// Otra llave no comparte cuota
	ok, _ = lim.Allow("1.2.3.4:beto")
	assert.True(t, ok)
}

func TestMiddlewareRespondsTooManyRequests(t *testing.T) {
	lim := New(Config{Requests: 2, Window: time.Minute, Burst: 2})

	app := fiber.New()
	app.Post("/login", Middleware(lim, IPAndUsernameKey), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	body := `{"username":"ana","password":"x"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// otro usuario desde la misma IP conserva su cuota
	other := `{"username":"beto","password":"x"}`
	req = httptest.NewRequest("POST", "/login", strings.NewReader(other))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSweepRemovesIdleEntries(t *testing.T) {
	lim := New(Config{Requests: 60, Window: time.Minute, Burst: 1})

	lim.Allow("viejo")
	// dejar que el bucket se rellene
	time.Sleep(1100 * time.Millisecond)

	// forzar que toque barrer
	lim.mu.Lock()
	lim.lastSweep = time.Now().Add(-sweepInterval - time.Second)
	lim.mu.Unlock()
	lim.maybeSweep()

	_, ok := lim.limiters.Load("viejo")
	assert.False(t, ok, "la entrada ociosa debió eliminarse")
}
