package models

// BranchOwned se incrusta en todo modelo que pertenece a una sucursal.
// El gateway usa estos accessors para filtrar y forzar branch_id.
type BranchOwned struct {
	BranchID uint `gorm:"index;not null" json:"branch_id"`
}

func (b *BranchOwned) GetBranchID() uint   { return b.BranchID }
func (b *BranchOwned) SetBranchID(id uint) { b.BranchID = id }
