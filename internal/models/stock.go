package models

import "time"

// MovementKind tags a stock movement: sales debit stock, returns credit it.
type MovementKind string

const (
	MovementSale   MovementKind = "sale"
	MovementReturn MovementKind = "return"
)

// StockMovement is one immutable row of the stock ledger. Rows are only ever
// appended; the running sum of Qty per product reconciles against
// Product.StockQty. UserID is nullable so the ledger survives user removal.
type StockMovement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	Product   Product      `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Qty       int          `gorm:"not null" json:"qty"`
	Kind      MovementKind `gorm:"column:movement_type;size:20;not null" json:"movement_type"`
	UserID    *uint        `json:"user_id,omitempty"`
	User      *User        `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time    `json:"timestamp"`
}
