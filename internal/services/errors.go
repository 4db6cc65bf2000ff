package services

import (
	"errors"
	"fmt"

	"github.com/ledgerline/go-erp/internal/models"
)

var (
	// ErrNonPositiveQty rejects order lines with qty <= 0.
	ErrNonPositiveQty = errors.New("qty must be > 0")
	// ErrInvalidStatus rejects status values outside the defined enumeration.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrNoLines rejects order creation without at least one line.
	ErrNoLines = errors.New("order requires at least one line")
)

// InsufficientStockError reports the first line that failed the stock
// sufficiency check during confirm. Nothing has been written when it is
// returned.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: available=%d, requested=%d",
		e.SKU, e.Available, e.Requested)
}

// IllegalTransitionError reports a status change outside the defined state
// machine (e.g. cancelled back to confirmed).
type IllegalTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition %s -> %s", e.From, e.To)
}
