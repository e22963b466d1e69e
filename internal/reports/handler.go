// Package reports calcula agregados de ventas bajo el scope de la petición.
package reports

import (
	"fmt"
	"time"

	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/gateway"
	"joyeria-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DailySalesItem struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

type SalesSummaryResponse struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	BranchID   *uint            `json:"branch_id"` // nil: todas las sucursales
	SaleCount  int64            `json:"sale_count"`
	GrandTotal float64          `json:"grand_total"`
	ByMethod   []MethodTotal    `json:"by_method"`
	ByDay      []DailySalesItem `json:"by_day"`
	// ByBranch solo se llena con scope ilimitado
	ByBranch []BranchTotal `json:"by_branch,omitempty"`
}

type BranchTotal struct {
	BranchID uint    `json:"branch_id"`
	Count    int64   `json:"count"`
	Total    float64 `json:"total"`
}

type MethodTotal struct {
	Method string  `json:"method"`
	Total  float64 `json:"total"`
}

// -------------------------------------------------
// GET /api/reports/sales/monthly?year=2026&month=8
// -------------------------------------------------
func MonthlySalesSummaryHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		yearStr := c.Query("year")
		monthStr := c.Query("month")
		if yearStr == "" || monthStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "year y month son obligatorios")
		}

		var year, month int
		if _, err := fmt.Sscan(yearStr, &year); err != nil || year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "year inválido")
		}
		if _, err := fmt.Sscan(monthStr, &month); err != nil || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month inválido")
		}

		loc := time.Now().Location()
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0)

		base := gw.DB().Model(&models.Sale{}).
			Where("created_at >= ? AND created_at < ? AND status = ?", start, end, models.SaleStatusCompleted)
		if !sc.All {
			base = base.Where("branch_id = ?", sc.BranchID)
		}

		resp := SalesSummaryResponse{
			Year:     year,
			Month:    month,
			ByMethod: []MethodTotal{},
			ByDay:    []DailySalesItem{},
		}
		if !sc.All {
			bid := sc.BranchID
			resp.BranchID = &bid
		}

		type totals struct {
			Count int64   `gorm:"column:count"`
			Total float64 `gorm:"column:total"`
		}
		var tot totals
		if err := base.
			Select("COUNT(*) as count, COALESCE(SUM(total), 0) as total").
			Scan(&tot).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen")
		}
		resp.SaleCount = tot.Count
		resp.GrandTotal = tot.Total

		// Totales por método de pago
		type methodRow struct {
			Method string  `gorm:"column:method"`
			Total  float64 `gorm:"column:total"`
		}
		var methodRows []methodRow
		payQ := gw.DB().Model(&models.SalePayment{}).
			Joins("JOIN sales ON sales.id = sale_payments.sale_id").
			Where("sales.created_at >= ? AND sales.created_at < ? AND sales.status = ?", start, end, models.SaleStatusCompleted)
		if !sc.All {
			payQ = payQ.Where("sales.branch_id = ?", sc.BranchID)
		}
		if err := payQ.
			Select("sale_payments.method as method, SUM(sale_payments.amount) as total").
			Group("sale_payments.method").
			Scan(&methodRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen por método")
		}
		for _, r := range methodRows {
			resp.ByMethod = append(resp.ByMethod, MethodTotal{Method: r.Method, Total: r.Total})
		}

		// Totales por día
		type dayRow struct {
			Day   string  `gorm:"column:day"`
			Count int64   `gorm:"column:count"`
			Total float64 `gorm:"column:total"`
		}
		var dayRows []dayRow
		dayQ := gw.DB().Model(&models.Sale{}).
			Where("created_at >= ? AND created_at < ? AND status = ?", start, end, models.SaleStatusCompleted)
		if !sc.All {
			dayQ = dayQ.Where("branch_id = ?", sc.BranchID)
		}
		if err := dayQ.
			Select("DATE(created_at) as day, COUNT(*) as count, SUM(total) as total").
			Group("DATE(created_at)").
			Order("day asc").
			Scan(&dayRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen diario")
		}
		for _, r := range dayRows {
			resp.ByDay = append(resp.ByDay, DailySalesItem{Date: r.Day, Count: r.Count, Total: r.Total})
		}

		// Con scope ilimitado, desglose por sucursal
		if sc.All {
			type branchRow struct {
				BranchID uint    `gorm:"column:branch_id"`
				Count    int64   `gorm:"column:count"`
				Total    float64 `gorm:"column:total"`
			}
			var branchRows []branchRow
			if err := gw.DB().Model(&models.Sale{}).
				Where("created_at >= ? AND created_at < ? AND status = ?", start, end, models.SaleStatusCompleted).
				Select("branch_id, COUNT(*) as count, SUM(total) as total").
				Group("branch_id").
				Order("branch_id asc").
				Scan(&branchRows).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el resumen por sucursal")
			}
			for _, r := range branchRows {
				resp.ByBranch = append(resp.ByBranch, BranchTotal{BranchID: r.BranchID, Count: r.Count, Total: r.Total})
			}
		}

		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/reports/inventory/valuation
// -------------------------------------------------

type InventoryValuationResponse struct {
	BranchID   *uint   `json:"branch_id"`
	PieceCount int64   `json:"piece_count"`
	TotalCost  float64 `json:"total_cost"`
	TotalPrice float64 `json:"total_price"`
}

func InventoryValuationHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		q := gw.DB().Model(&models.InventoryItem{}).
			Where("status != ?", models.ItemStatusSold)
		if !sc.All {
			q = q.Where("branch_id = ?", sc.BranchID)
		}

		type row struct {
			Count      int64   `gorm:"column:count"`
			TotalCost  float64 `gorm:"column:total_cost"`
			TotalPrice float64 `gorm:"column:total_price"`
		}
		var r row
		if err := q.
			Select("COUNT(*) as count, COALESCE(SUM(cost * stock), 0) as total_cost, COALESCE(SUM(price * stock), 0) as total_price").
			Scan(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular la valuación")
		}

		resp := InventoryValuationResponse{
			PieceCount: r.Count,
			TotalCost:  r.TotalCost,
			TotalPrice: r.TotalPrice,
		}
		if !sc.All {
			bid := sc.BranchID
			resp.BranchID = &bid
		}
		return c.JSON(resp)
	}
}
