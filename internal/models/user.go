package models

import (
	"encoding/json"
	"time"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleSeller  UserRole = "seller"
	RoleCashier UserRole = "cashier"
)

// PermissionAll otorga acceso completo, equivalente al rol admin.
const PermissionAll = "all"

type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	BranchID     *uint    `gorm:"index" json:"branch_id"`
	Branch       *Branch  `json:"-"`
	Username     string   `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Name         string   `gorm:"size:100;not null" json:"name"`
	PasswordHash string   `gorm:"size:255;not null" json:"-"`
	Role         UserRole `gorm:"size:20;not null" json:"role"`
	// Permissions se guarda como JSON (array de strings), igual que en la BD original
	Permissions string    `gorm:"type:text" json:"-"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionList decodifica la columna permissions. Una columna corrupta o
// vacía se trata como "sin permisos extra", nunca como acceso total.
func (u *User) PermissionList() []string {
	if u.Permissions == "" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(u.Permissions), &perms); err != nil {
		return nil
	}
	return perms
}

func (u *User) SetPermissionList(perms []string) {
	if perms == nil {
		perms = []string{}
	}
	b, _ := json.Marshal(perms)
	u.Permissions = string(b)
}
