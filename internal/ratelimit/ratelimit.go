// Package ratelimit implementa un limitador por llave (IP, IP+usuario) con
// limpieza periódica de entradas ociosas. El estado vive en el Limiter
// inyectado, no en globales de proceso.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type Config struct {
	// Requests permitidos por ventana
	Requests int
	// Window es la ventana de tiempo
	Window time.Duration
	// Burst permite ráfagas por encima de la tasa
	Burst int
}

// LoginLimit protege el login contra fuerza bruta: 5 intentos por minuto.
// Se puede ajustar con RATELIMIT_LOGIN_REQUESTS / _WINDOW_SEC / _BURST.
var LoginLimit = Config{Requests: 5, Window: time.Minute, Burst: 5}

func init() {
	LoginLimit = ParseFromEnv("LOGIN", LoginLimit)
}

func ParseFromEnv(prefix string, def Config) Config {
	cfg := def

	if v := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Requests = n
		}
	}
	if v := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Window = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RATELIMIT_" + prefix + "_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Burst = n
		}
	}
	return cfg
}

// KeyFunc extrae la llave de agrupación de la petición.
type KeyFunc func(c *fiber.Ctx) string

// IPKey agrupa por IP del cliente, respetando X-Forwarded-For.
func IPKey(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return c.IP()
}

// IPAndUsernameKey agrupa por IP + username del body de login, para que un
// atacante no agote la cuota de toda una IP compartida contra un usuario.
func IPAndUsernameKey(c *fiber.Ctx) string {
	var body struct {
		Username string `json:"username"`
	}
	_ = json.Unmarshal(c.Body(), &body)
	if body.Username == "" {
		return IPKey(c)
	}
	return IPKey(c) + ":" + strings.ToLower(strings.TrimSpace(body.Username))
}

const sweepInterval = 5 * time.Minute

// Limiter administra un rate.Limiter por llave.
type Limiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		rate:      rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		lastSweep: time.Now(),
	}
}

// Allow consume un token para la llave. Devuelve además los segundos
// sugeridos de Retry-After cuando se deniega.
func (l *Limiter) Allow(key string) (bool, int) {
	lim := l.get(key)
	l.maybeSweep()

	if lim.Allow() {
		return true, 0
	}

	res := lim.Reserve()
	delay := res.Delay()
	res.Cancel() // no consumir la reserva de verdad

	retryAfter := int(delay.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

func (l *Limiter) get(key string) *rate.Limiter {
	if lim, ok := l.limiters.Load(key); ok {
		return lim.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

// maybeSweep elimina entradas con el bucket lleno: si un limiter tiene todos
// sus tokens, lleva rato sin usarse. Evita crecer sin límite con llaves
// efímeras.
func (l *Limiter) maybeSweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = time.Now()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// Middleware responde 429 con Retry-After cuando la llave excede su cuota.
func Middleware(lim *Limiter, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if key == "" {
			// sin llave no hay a quién limitar; dejar pasar
			return c.Next()
		}

		ok, retryAfter := lim.Allow(key)
		if !ok {
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return fiber.NewError(fiber.StatusTooManyRequests, "Demasiados intentos. Intenta de nuevo más tarde.")
		}
		return c.Next()
	}
}
