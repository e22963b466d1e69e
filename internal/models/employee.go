package models

import "time"

type Employee struct {
	ID uint `gorm:"primaryKey" json:"id"`
	BranchOwned
	Name         string    `gorm:"size:100;not null" json:"name"`
	Role         string    `gorm:"size:30;not null;default:seller" json:"role"`
	EmployeeCode string    `gorm:"size:50" json:"employee_code"`
	Barcode      string    `gorm:"size:100" json:"barcode"`
	Active       bool      `gorm:"default:true" json:"active"`
	Salary       float64   `json:"salary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
