package main

import (
	"log/slog"
	"strings"

	"joyeria-backend/internal/audit"
	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/branches"
	"joyeria-backend/internal/config"
	"joyeria-backend/internal/customers"
	"joyeria-backend/internal/database"
	"joyeria-backend/internal/employees"
	"joyeria-backend/internal/gateway"
	"joyeria-backend/internal/inventory"
	"joyeria-backend/internal/ratelimit"
	"joyeria-backend/internal/realtime"
	"joyeria-backend/internal/reports"
	"joyeria-backend/internal/sales"
	"joyeria-backend/internal/slogx"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()

	logger := slogx.Setup(slogx.Config{
		Service: "joyeria-backend",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	database.Init(cfg)

	gw := gateway.New(database.DB)
	hub := realtime.NewHub()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.Error("error inesperado", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	app.Use(recover.New())
	app.Use(slogx.RequestLogger(logger))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth público, con límite de intentos
	loginLimiter := ratelimit.New(ratelimit.LoginLimit)
	api.Post("/auth/bootstrap-admin",
		ratelimit.Middleware(loginLimiter, ratelimit.IPKey),
		auth.BootstrapAdminHandler(cfg))
	api.Post("/auth/login",
		ratelimit.Middleware(loginLimiter, ratelimit.IPAndUsernameKey),
		auth.LoginHandler(cfg))

	// WebSocket: el token se verifica en el handshake
	app.Get("/ws", realtime.UpgradeMiddleware(cfg), realtime.Handler(hub))

	// Rutas protegidas
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Sucursales: listado para todos (el selector del cliente lo usa),
	// administración solo admin
	protected.Get("/branches", branches.ListBranchesHandler())
	protected.Get("/branches/:id", branches.GetBranchHandler())

	adminRoutes := protected.Group("", auth.RequireAdmin())
	adminRoutes.Post("/branches", branches.CreateBranchHandler())
	adminRoutes.Put("/branches/:id", branches.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", branches.DeleteBranchHandler())

	// Usuarios (solo admin)
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())
	adminRoutes.Put("/users/:id", auth.UpdateUserHandler())
	adminRoutes.Delete("/users/:id", auth.DeleteUserHandler())

	// Ventas
	protected.Post("/sales", sales.CreateSaleHandler(gw, hub))
	protected.Get("/sales", sales.ListSalesHandler(gw))
	protected.Get("/sales/:id", sales.GetSaleHandler(gw))
	protected.Post("/sales/:id/cancel", sales.CancelSaleHandler(gw, hub))
	adminRoutes.Delete("/sales/:id", sales.DeleteSaleHandler(gw, hub))

	// Inventario
	protected.Post("/inventory", inventory.CreateItemHandler(gw, hub))
	protected.Get("/inventory", inventory.ListItemsHandler(gw))
	protected.Get("/inventory/:id", inventory.GetItemHandler(gw))
	protected.Put("/inventory/:id", inventory.UpdateItemHandler(gw, hub))
	protected.Delete("/inventory/:id", inventory.DeleteItemHandler(gw, hub))

	// Empleados
	protected.Post("/employees", employees.CreateEmployeeHandler(gw, hub))
	protected.Get("/employees", employees.ListEmployeesHandler(gw))
	protected.Put("/employees/:id", employees.UpdateEmployeeHandler(gw, hub))
	protected.Delete("/employees/:id", employees.DeleteEmployeeHandler(gw, hub))

	// Clientes
	protected.Post("/customers", customers.CreateCustomerHandler(gw, hub))
	protected.Get("/customers", customers.ListCustomersHandler(gw))
	protected.Get("/customers/:id", customers.GetCustomerHandler(gw))
	protected.Put("/customers/:id", customers.UpdateCustomerHandler(gw, hub))
	protected.Delete("/customers/:id", customers.DeleteCustomerHandler(gw, hub))

	// Reportes
	protected.Get("/reports/sales/monthly", reports.MonthlySalesSummaryHandler(gw))
	protected.Get("/reports/inventory/valuation", reports.InventoryValuationHandler(gw))

	// Auditoría
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	slog.Info("servidor escuchando", "port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Error("el servidor terminó con error", "error", err)
	}
}
