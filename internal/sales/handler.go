// Package sales maneja el ciclo de vida de las ventas: creación con partidas
// y pagos, consulta bajo scope, cancelación con reposición de stock y
// difusión en tiempo real a la sucursal dueña.
package sales

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"joyeria-backend/internal/audit"
	"joyeria-backend/internal/auth"
	"joyeria-backend/internal/gateway"
	"joyeria-backend/internal/models"
	"joyeria-backend/internal/realtime"
	"joyeria-backend/internal/scope"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleItemRequest struct {
	InventoryItemID *uint   `json:"inventory_item_id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	Discount        float64 `json:"discount"`
}

type SalePaymentRequest struct {
	Method   string  `json:"method"` // "efectivo" | "tarjeta" | "transferencia"
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type CreateSaleRequest struct {
	CustomerID   *uint                `json:"customer_id"`
	SellerID     *uint                `json:"seller_id"`
	Currency     string               `json:"currency"`
	ExchangeRate float64              `json:"exchange_rate"`
	Discount     float64              `json:"discount"`
	Notes        string               `json:"notes"`
	Items        []SaleItemRequest    `json:"items"`
	Payments     []SalePaymentRequest `json:"payments"`
	// solo admin sin sucursal seleccionada:
	BranchID *uint `json:"branch_id"`
}

type SaleResponse struct {
	ID           uint                 `json:"id"`
	BranchID     uint                 `json:"branch_id"`
	Folio        string               `json:"folio"`
	CustomerID   *uint                `json:"customer_id"`
	SellerID     *uint                `json:"seller_id"`
	Status       models.SaleStatus    `json:"status"`
	Currency     string               `json:"currency"`
	ExchangeRate float64              `json:"exchange_rate"`
	Subtotal     float64              `json:"subtotal"`
	Discount     float64              `json:"discount"`
	Total        float64              `json:"total"`
	Notes        string               `json:"notes"`
	Items        []models.SaleItem    `json:"items"`
	Payments     []models.SalePayment `json:"payments"`
	CreatedAt    time.Time            `json:"created_at"`
}

func toSaleResponse(s *models.Sale) SaleResponse {
	return SaleResponse{
		ID:           s.ID,
		BranchID:     s.BranchID,
		Folio:        s.Folio,
		CustomerID:   s.CustomerID,
		SellerID:     s.SellerID,
		Status:       s.Status,
		Currency:     s.Currency,
		ExchangeRate: s.ExchangeRate,
		Subtotal:     s.Subtotal,
		Discount:     s.Discount,
		Total:        s.Total,
		Notes:        s.Notes,
		Items:        s.Items,
		Payments:     s.Payments,
		CreatedAt:    s.CreatedAt,
	}
}

// newFolio genera un folio corto legible para ticket. La unicidad la
// garantiza el índice único de la columna.
func newFolio() string {
	return "V-" + strings.ToUpper(uuid.NewString()[:8])
}

func validPaymentMethod(m string) bool {
	switch m {
	case "efectivo", "tarjeta", "transferencia":
		return true
	}
	return false
}

// -------------------------------------------------
// POST /api/sales
// -------------------------------------------------
func CreateSaleHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "La venta necesita al menos una partida")
		}
		for _, it := range body.Items {
			if it.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "La cantidad debe ser mayor a 0")
			}
			if it.Name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Cada partida necesita nombre")
			}
		}
		for _, p := range body.Payments {
			if !validPaymentMethod(p.Method) {
				return fiber.NewError(fiber.StatusBadRequest, "Método de pago inválido (efectivo|tarjeta|transferencia)")
			}
			if p.Amount <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "El monto del pago debe ser mayor a 0")
			}
		}

		currency := body.Currency
		if currency == "" {
			currency = "MXN"
		}
		exchangeRate := body.ExchangeRate
		if exchangeRate <= 0 {
			exchangeRate = 1
		}

		sale := models.Sale{
			Folio:        newFolio(),
			CustomerID:   body.CustomerID,
			SellerID:     body.SellerID,
			Status:       models.SaleStatusCompleted,
			Currency:     currency,
			ExchangeRate: exchangeRate,
			Discount:     body.Discount,
			Notes:        body.Notes,
		}
		if body.BranchID != nil {
			// solo surte efecto con scope ilimitado; con scope restringido
			// el gateway lo sobrescribe
			sale.BranchID = *body.BranchID
		}

		var subtotal float64
		for _, it := range body.Items {
			lineTotal := float64(it.Quantity)*it.UnitPrice - it.Discount
			if lineTotal < 0 {
				lineTotal = 0
			}
			subtotal += lineTotal
			sale.Items = append(sale.Items, models.SaleItem{
				InventoryItemID: it.InventoryItemID,
				SKU:             it.SKU,
				Name:            it.Name,
				Quantity:        it.Quantity,
				UnitPrice:       it.UnitPrice,
				Discount:        it.Discount,
				Total:           lineTotal,
			})
		}
		sale.Subtotal = subtotal
		sale.Total = subtotal - sale.Discount
		if sale.Total < 0 {
			sale.Total = 0
		}

		for _, p := range body.Payments {
			cur := p.Currency
			if cur == "" {
				cur = currency
			}
			sale.Payments = append(sale.Payments, models.SalePayment{
				Method:   p.Method,
				Amount:   p.Amount,
				Currency: cur,
			})
		}

		if err := gw.Create(&sale, sc); err != nil {
			if errors.Is(err, gateway.ErrBranchRequired) {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id es requerido")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar la venta")
		}

		// Descontar stock de las piezas vendidas, dentro de la sucursal de la
		// venta. Una pieza desconocida no invalida la venta (venta libre).
		saleScope := scope.Restricted(sale.BranchID)
		for _, it := range sale.Items {
			if it.InventoryItemID == nil {
				continue
			}
			var piece models.InventoryItem
			if err := gw.Get(&piece, *it.InventoryItemID, saleScope); err != nil {
				continue
			}
			newStock := piece.Stock - it.Quantity
			if newStock < 0 {
				newStock = 0
			}
			updates := map[string]any{"stock": newStock}
			if newStock == 0 {
				updates["status"] = models.ItemStatusSold
			}
			_ = gw.Update(&piece, piece.ID, saleScope, updates)
		}

		audit.Record(audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Venta registrada: %s - %.2f %s", sale.Folio, sale.Total, sale.Currency),
			After:       toSaleResponse(&sale),
		})

		hub.Publish(realtime.Event{
			Name:     "sale-created",
			BranchID: sale.BranchID,
			Data:     toSaleResponse(&sale),
		})

		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(&sale))
	}
}

// -------------------------------------------------
// GET /api/sales?from=2026-01-01&to=2026-01-31&status=completada
// -------------------------------------------------
func ListSalesHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		var filters []func(*gorm.DB) *gorm.DB
		filters = append(filters, func(q *gorm.DB) *gorm.DB {
			return q.Preload("Items").Preload("Payments")
		})

		if v := c.Query("status"); v != "" {
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("status = ?", v)
			})
		}
		if v := c.Query("seller_id"); v != "" {
			var sellerID uint
			if _, err := fmt.Sscan(v, &sellerID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "seller_id inválido")
			}
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("seller_id = ?", sellerID)
			})
		}
		if v := c.Query("from"); v != "" {
			from, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fecha 'from' inválida, usa 'YYYY-MM-DD'")
			}
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("created_at >= ?", from)
			})
		}
		if v := c.Query("to"); v != "" {
			to, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fecha 'to' inválida, usa 'YYYY-MM-DD'")
			}
			filters = append(filters, func(q *gorm.DB) *gorm.DB {
				return q.Where("created_at < ?", to.AddDate(0, 0, 1))
			})
		}

		var sales []models.Sale
		if err := gw.List(&sales, sc, filters...); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las ventas")
		}

		resp := make([]SaleResponse, 0, len(sales))
		for i := range sales {
			resp = append(resp, toSaleResponse(&sales[i]))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/sales/:id
// -------------------------------------------------
func GetSaleHandler(gw *gateway.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var sale models.Sale
		preload := func(q *gorm.DB) *gorm.DB {
			return q.Preload("Items").Preload("Payments")
		}
		if err := gw.Get(&sale, uint(id), sc, preload); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Venta no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar la venta")
		}

		return c.JSON(toSaleResponse(&sale))
	}
}

// -------------------------------------------------
// POST /api/sales/:id/cancel
// -------------------------------------------------
func CancelSaleHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var sale models.Sale
		preload := func(q *gorm.DB) *gorm.DB {
			return q.Preload("Items").Preload("Payments")
		}
		if err := gw.Get(&sale, uint(id), sc, preload); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Venta no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo consultar la venta")
		}

		if sale.Status == models.SaleStatusCancelled {
			return fiber.NewError(fiber.StatusBadRequest, "La venta ya está cancelada")
		}

		before := toSaleResponse(&sale)
		if err := gw.Update(&sale, sale.ID, sc, map[string]any{
			"status": models.SaleStatusCancelled,
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo cancelar la venta")
		}
		sale.Status = models.SaleStatusCancelled

		// Reponer el stock descontado al vender
		saleScope := scope.Restricted(sale.BranchID)
		for _, it := range sale.Items {
			if it.InventoryItemID == nil {
				continue
			}
			var piece models.InventoryItem
			if err := gw.Get(&piece, *it.InventoryItemID, saleScope); err != nil {
				continue
			}
			updates := map[string]any{"stock": piece.Stock + it.Quantity}
			if piece.Status == models.ItemStatusSold {
				updates["status"] = models.ItemStatusAvailable
			}
			_ = gw.Update(&piece, piece.ID, saleScope, updates)
		}

		audit.Record(audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Venta cancelada: %s", sale.Folio),
			Before:      before,
			After:       toSaleResponse(&sale),
		})

		hub.Publish(realtime.Event{
			Name:     "sale-updated",
			BranchID: sale.BranchID,
			Data:     toSaleResponse(&sale),
		})

		return c.JSON(toSaleResponse(&sale))
	}
}

// -------------------------------------------------
// DELETE /api/sales/:id (solo admin)
// -------------------------------------------------
func DeleteSaleHandler(gw *gateway.Gateway, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		sc, err := auth.ScopeFromRequest(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var sale models.Sale
		if err := gw.Delete(&sale, uint(id), sc); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Venta no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la venta")
		}

		audit.Record(audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      claims.UserID,
			UserName:    claims.Username,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Venta eliminada: %s", sale.Folio),
			Before:      toSaleResponse(&sale),
		})

		hub.Publish(realtime.Event{
			Name:     "sale-deleted",
			BranchID: sale.BranchID,
			Data:     fiber.Map{"id": sale.ID, "folio": sale.Folio},
		})

		return c.JSON(fiber.Map{"message": "Venta eliminada"})
	}
}
