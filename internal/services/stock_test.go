package services

import (
	"errors"
	"testing"

	"github.com/ledgerline/go-erp/internal/models"
	"gorm.io/gorm"
)

func TestApplyRejectsZeroDelta(t *testing.T) {
	svc := NewStockService()
	if _, err := svc.Apply(nil, &models.Product{}, 0, models.MovementSale, nil); !errors.Is(err, ErrZeroDelta) {
		t.Fatalf("expected ErrZeroDelta, got %v", err)
	}
}

func TestApplyWritesProductAndLedger(t *testing.T) {
	db := setupOrderTestDB(t)
	actor := seedActor(t, db)
	p := seedProduct(t, db, "SKU-A", "10.00", 10)
	svc := NewStockService()

	var mv *models.StockMovement
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		mv, err = svc.Apply(tx, &p, -4, models.MovementSale, &actor.ID)
		return err
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.StockQty != 6 {
		t.Fatalf("in-memory stock = %d, want 6", p.StockQty)
	}
	if got := reloadProduct(t, db, p.ID).StockQty; got != 6 {
		t.Fatalf("persisted stock = %d, want 6", got)
	}
	if mv.Qty != -4 || mv.Kind != models.MovementSale {
		t.Fatalf("movement = %+v", mv)
	}
	if mv.UserID == nil || *mv.UserID != actor.ID {
		t.Fatalf("movement actor = %v, want %d", mv.UserID, actor.ID)
	}

	// Credit back on the same product struct.
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Apply(tx, &p, 4, models.MovementReturn, nil)
		return err
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := reloadProduct(t, db, p.ID).StockQty; got != 10 {
		t.Fatalf("persisted stock = %d, want 10", got)
	}
	if n := movementCount(t, db, p.ID); n != 2 {
		t.Fatalf("movements = %d, want 2", n)
	}
}

func TestApplyRollsBackWithTransaction(t *testing.T) {
	db := setupOrderTestDB(t)
	p := seedProduct(t, db, "SKU-A", "10.00", 10)
	svc := NewStockService()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Apply(tx, &p, -3, models.MovementSale, nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := reloadProduct(t, db, p.ID).StockQty; got != 10 {
		t.Fatalf("stock = %d, want 10 (rolled back)", got)
	}
	if n := movementCount(t, db, p.ID); n != 0 {
		t.Fatalf("movements = %d, want 0 (rolled back)", n)
	}
}
