package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer master record. Deleting a customer cascades to its orders; the
// cascade is performed explicitly in the customer handler rather than left to
// database-level FK configuration.
type Customer struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Code           string           `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name           string           `gorm:"size:255;not null" json:"name"`
	Phone          string           `gorm:"size:50" json:"phone"`
	Address        string           `json:"address"`
	Email          string           `gorm:"size:255" json:"email"`
	OpeningBalance *decimal.Decimal `gorm:"type:numeric(12,2)" json:"opening_balance,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
