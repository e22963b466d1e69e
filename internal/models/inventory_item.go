package models

import "time"

type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "disponible"
	ItemStatusReserved  ItemStatus = "apartado"
	ItemStatusSold      ItemStatus = "vendido"
)

// InventoryItem es una pieza de joyería. El SKU es único por sucursal, no
// global: dos tiendas pueden manejar el mismo catálogo. La unicidad se valida
// en el handler de creación.
type InventoryItem struct {
	ID uint `gorm:"primaryKey" json:"id"`
	BranchOwned
	SKU         string     `gorm:"size:100;not null;index" json:"sku"`
	Barcode     string     `gorm:"size:100;index" json:"barcode"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Description string     `gorm:"size:500" json:"description"`
	Metal       string     `gorm:"size:50" json:"metal"`
	Stone       string     `gorm:"size:50" json:"stone"`
	Size        string     `gorm:"size:20" json:"size"`
	Weight      float64    `json:"weight"` // gramos
	Cost        float64    `json:"cost"`
	Price       float64    `json:"price"`
	Stock       int        `gorm:"not null;default:0" json:"stock"`
	Location    string     `gorm:"size:100" json:"location"`
	Status      ItemStatus `gorm:"size:20;not null;default:disponible" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
