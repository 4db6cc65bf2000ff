package services

import (
	"errors"

	"github.com/ledgerline/go-erp/internal/models"
	"gorm.io/gorm"
)

// ErrZeroDelta is returned when a stock adjustment of zero is requested.
var ErrZeroDelta = errors.New("stock delta must be nonzero")

// StockService applies signed quantity deltas to product stock and appends
// the matching ledger row. Both writes happen on the transaction handed in by
// the caller, so they commit or roll back together with whatever else the
// caller is doing (typically an order status transition).
//
// Apply does not enforce non-negative stock; sufficiency checks belong to the
// order lifecycle, which validates before debiting.
type StockService struct{}

func NewStockService() *StockService { return &StockService{} }

// Apply increments product.StockQty by delta and records a StockMovement with
// the same delta. The product struct is updated in place so callers holding a
// row lock keep an accurate view across repeated applies.
func (s *StockService) Apply(tx *gorm.DB, product *models.Product, delta int, kind models.MovementKind, actorID *uint) (*models.StockMovement, error) {
	if delta == 0 {
		return nil, ErrZeroDelta
	}
	product.StockQty += delta
	if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("stock_qty", product.StockQty).Error; err != nil {
		return nil, err
	}
	mv := &models.StockMovement{
		ProductID: product.ID,
		Qty:       delta,
		Kind:      kind,
		UserID:    actorID,
	}
	if err := tx.Create(mv).Error; err != nil {
		return nil, err
	}
	return mv, nil
}
