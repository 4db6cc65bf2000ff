package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stock-keeping catalog entry. StockQty is mutated exclusively
// through the stock service so every change leaves a StockMovement behind.
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SKU          string          `gorm:"size:50;uniqueIndex;not null" json:"sku"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Category     string          `gorm:"size:100" json:"category"`
	CostPrice    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"selling_price"`
	StockQty     int             `gorm:"not null;default:0" json:"stock_qty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
