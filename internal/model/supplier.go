package model

import "time"

// UnknownSupplierName is displayed for supplier IDs missing from the supplier feed.
const UnknownSupplierName = "Unknown Supplier"

// Supplier mirrors one row of the supplier feed. ID is the feed's own key,
// which is what order lines reference.
type Supplier struct {
	ID        string `gorm:"type:varchar(32);primaryKey"`
	Name      string `gorm:"not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Supplier) TableName() string { return "suppliers" }
