package audit

import (
	"strconv"
	"time"

	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/database"
	"joyeria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// -------------------------------------------------
// GET /api/audit-logs?entity_type=sale&action=create&from=2026-01-01&to=2026-01-31&limit=100
// -------------------------------------------------
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.AuditLog{})
		if !sc.All {
			dbq = dbq.Where("branch_id = ?", sc.BranchID)
		}

		if v := c.Query("entity_type"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.Query("action"); v != "" {
			dbq = dbq.Where("action = ?", v)
		}
		if v := c.Query("from"); v != "" {
			from, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fecha 'from' inválida, usa 'YYYY-MM-DD'")
			}
			dbq = dbq.Where("created_at >= ?", from)
		}
		if v := c.Query("to"); v != "" {
			to, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fecha 'to' inválida, usa 'YYYY-MM-DD'")
			}
			dbq = dbq.Where("created_at < ?", to.AddDate(0, 0, 1))
		}

		limit := 100
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los logs")
		}

		return c.JSON(logs)
	}
}
