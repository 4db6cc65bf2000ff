package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of sales order states. Transitions between
// them are governed by services.OrderService; writing an arbitrary string
// into the column is not part of the API surface.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the defined order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// SalesOrder is the order aggregate root: it owns its items and the persisted
// TotalAmount, which always equals the sum of the items' line totals.
type SalesOrder struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	OrderNumber string           `gorm:"size:20;uniqueIndex;not null" json:"order_number"`
	CustomerID  uint             `gorm:"not null;index" json:"customer_id"`
	Customer    Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	OrderDate   time.Time        `gorm:"not null" json:"order_date"`
	CreatedByID uint             `gorm:"not null" json:"created_by_id"`
	CreatedBy   User             `gorm:"foreignKey:CreatedByID" json:"-"`
	Status      OrderStatus      `gorm:"size:20;not null;default:'pending'" json:"status"`
	TotalAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	Items       []SalesOrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SalesOrderItem is one order line. LineTotal is derived (price × qty) and
// recomputed on every write; it is never accepted from a client.
// The Product association is a reference, not ownership: a product cannot be
// deleted while items still point at it.
type SalesOrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Qty       int             `gorm:"not null" json:"qty"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"line_total"`
}
