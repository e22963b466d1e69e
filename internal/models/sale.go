package models

import "time"

type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completada"
	SaleStatusCancelled SaleStatus = "cancelada"
)

type Sale struct {
	ID uint `gorm:"primaryKey" json:"id"`
	BranchOwned
	Folio        string     `gorm:"size:64;uniqueIndex;not null" json:"folio"`
	CustomerID   *uint      `gorm:"index" json:"customer_id"`
	SellerID     *uint      `gorm:"index" json:"seller_id"`
	Status       SaleStatus `gorm:"size:20;not null;default:completada" json:"status"`
	Currency     string     `gorm:"size:10;not null;default:MXN" json:"currency"`
	ExchangeRate float64    `gorm:"not null;default:1" json:"exchange_rate"`
	Subtotal     float64    `json:"subtotal"`
	Discount     float64    `json:"discount"`
	Total        float64    `json:"total"`
	Notes        string     `gorm:"size:500" json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Items    []SaleItem    `json:"items"`
	Payments []SalePayment `json:"payments"`
}

type SaleItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SaleID          uint      `gorm:"index;not null" json:"sale_id"`
	InventoryItemID *uint     `gorm:"index" json:"inventory_item_id"`
	SKU             string    `gorm:"size:100" json:"sku"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Quantity        int       `gorm:"not null;default:1" json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	Discount        float64   `json:"discount"`
	Total           float64   `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
}

type SalePayment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SaleID    uint      `gorm:"index;not null" json:"sale_id"`
	Method    string    `gorm:"size:30;not null" json:"method"` // "efectivo" | "tarjeta" | "transferencia"
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"size:10;not null;default:MXN" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}
