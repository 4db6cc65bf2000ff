package services

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/ledgerline/go-erp/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService owns the sales order lifecycle: creation with derived totals,
// the pending/confirmed/cancelled state machine, and the stock side effects
// each transition carries. Every mutating entry point is a single gorm
// transaction, so a failed transition leaves status, stock, and ledger
// exactly as they were.
type OrderService struct {
	DB    *gorm.DB
	Stock *StockService
}

func NewOrderService(db *gorm.DB, stock *StockService) *OrderService {
	return &OrderService{DB: db, Stock: stock}
}

// OrderLineInput is one requested line. Price nil means "use the product's
// current selling price".
type OrderLineInput struct {
	ProductID uint
	Qty       int
	Price     *decimal.Decimal
}

// CreateOrderInput carries everything needed to build an order aggregate.
type CreateOrderInput struct {
	CustomerID uint
	OrderDate  time.Time
	Status     models.OrderStatus
	Lines      []OrderLineInput
}

// LineTotal computes price × qty with fixed-point arithmetic.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// RecomputeLine resets the derived line total from the line's own price and
// qty. Call before persisting any price/qty write.
func RecomputeLine(item *models.SalesOrderItem) (decimal.Decimal, error) {
	if item.Qty <= 0 {
		return decimal.Zero, ErrNonPositiveQty
	}
	item.LineTotal = LineTotal(item.Price, item.Qty)
	return item.LineTotal, nil
}

// RecomputeTotal reloads the order's lines on tx, sums their line totals
// (zero lines means zero) and persists the order's TotalAmount.
func (s *OrderService) RecomputeTotal(tx *gorm.DB, order *models.SalesOrder) (decimal.Decimal, error) {
	var items []models.SalesOrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	if err := tx.Model(&models.SalesOrder{}).Where("id = ?", order.ID).
		Update("total_amount", total).Error; err != nil {
		return decimal.Zero, err
	}
	order.TotalAmount = total
	return total, nil
}

// Create builds the order aggregate in one transaction: order row with a
// generated order number, one item per line with price snapshot and derived
// line total, the persisted aggregate total, and — when the caller asked for
// an initial status of confirmed — the confirm transition itself.
func (s *OrderService) Create(in CreateOrderInput, actorID uint) (*models.SalesOrder, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}
	for _, ln := range in.Lines {
		if ln.Qty <= 0 {
			return nil, ErrNonPositiveQty
		}
	}
	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	var order models.SalesOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, in.CustomerID).Error; err != nil {
			return err
		}
		order = models.SalesOrder{
			OrderNumber: newOrderNumber(),
			CustomerID:  customer.ID,
			OrderDate:   orderDate,
			CreatedByID: actorID,
			Status:      models.StatusPending,
			TotalAmount: decimal.Zero,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, ln := range in.Lines {
			var product models.Product
			if err := tx.First(&product, ln.ProductID).Error; err != nil {
				return err
			}
			price := product.SellingPrice
			if ln.Price != nil {
				price = *ln.Price
			}
			item := models.SalesOrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Qty:       ln.Qty,
				Price:     price,
			}
			if _, err := RecomputeLine(&item); err != nil {
				return err
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		if _, err := s.RecomputeTotal(tx, &order); err != nil {
			return err
		}
		if in.Status == models.StatusConfirmed {
			if err := s.confirmTx(tx, &order, &actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Items").First(&order, order.ID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus runs the status dispatch in its own transaction.
func (s *OrderService) UpdateStatus(orderID uint, requested models.OrderStatus, actorID uint) (*models.SalesOrder, error) {
	var order *models.SalesOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.UpdateStatusTx(tx, orderID, requested, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatusTx is the single dispatch point for status changes, regardless
// of whether they originate from the API or an administrative action. It runs
// on the caller's transaction so callers can bundle further writes with the
// transition and have everything commit or roll back as one unit:
//
//	pending   -> confirmed   confirm (stock debits, ledger, status — atomic)
//	confirmed -> cancelled   cancel (stock credits, ledger, status — atomic)
//	pending   -> cancelled   plain status write; nothing was ever debited
//	same      -> same        no-op
//	anything else            IllegalTransitionError, state untouched
//
// The order row is re-read under a row lock, so the dispatch decides on the
// status as of this transaction, not on whatever the caller last saw.
func (s *OrderService) UpdateStatusTx(tx *gorm.DB, orderID uint, requested models.OrderStatus, actorID uint) (*models.SalesOrder, error) {
	if !requested.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.lockOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case order.Status == requested:
		return order, nil
	case order.Status == models.StatusPending && requested == models.StatusConfirmed:
		if err := s.confirmTx(tx, order, &actorID); err != nil {
			return nil, err
		}
	case order.Status == models.StatusConfirmed && requested == models.StatusCancelled:
		if err := s.cancelTx(tx, order, &actorID); err != nil {
			return nil, err
		}
	case order.Status == models.StatusPending && requested == models.StatusCancelled:
		// Explicit no-op transition: the order never reserved stock, so the
		// status flips with no ledger side effects.
		if err := tx.Model(&models.SalesOrder{}).Where("id = ?", order.ID).
			Update("status", models.StatusCancelled).Error; err != nil {
			return nil, err
		}
		order.Status = models.StatusCancelled
	default:
		return nil, &IllegalTransitionError{From: order.Status, To: requested}
	}
	return order, nil
}

// Confirm runs the pending -> confirmed transition in its own transaction.
func (s *OrderService) Confirm(order *models.SalesOrder, actorID *uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.confirmTx(tx, order, actorID)
	})
}

// Cancel runs the confirmed -> cancelled transition in its own transaction.
func (s *OrderService) Cancel(order *models.SalesOrder, actorID *uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.cancelTx(tx, order, actorID)
	})
}

// confirmTx validates stock for every line against row-locked products, then
// debits each line and flips the status. Validation precedes the first write,
// so an insufficient line aborts with nothing applied; the row locks keep
// concurrent confirms of the same products from oversubscribing stock.
//
// The order's status is re-read under the order row lock before anything else:
// a transition is applied at most once, no matter how stale the caller's
// aggregate is. An order already confirmed is a no-op, any other status
// rejects.
func (s *OrderService) confirmTx(tx *gorm.DB, order *models.SalesOrder, actorID *uint) error {
	current, err := s.lockOrder(tx, order.ID)
	if err != nil {
		return err
	}
	switch current.Status {
	case models.StatusPending:
	case models.StatusConfirmed:
		order.Status = models.StatusConfirmed
		return nil
	default:
		return &IllegalTransitionError{From: current.Status, To: models.StatusConfirmed}
	}
	items, products, err := s.lockLines(tx, order.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		p := products[it.ProductID]
		if p.StockQty < it.Qty {
			return &InsufficientStockError{SKU: p.SKU, Available: p.StockQty, Requested: it.Qty}
		}
	}
	for _, it := range items {
		if _, err := s.Stock.Apply(tx, products[it.ProductID], -it.Qty, models.MovementSale, actorID); err != nil {
			return err
		}
	}
	if err := tx.Model(&models.SalesOrder{}).Where("id = ?", order.ID).
		Update("status", models.StatusConfirmed).Error; err != nil {
		return err
	}
	order.Status = models.StatusConfirmed
	return nil
}

// cancelTx credits every line back and flips the status. Stock only grows
// here, so there is no sufficiency check. The same re-read-under-lock guard as
// confirmTx makes a second cancel a no-op instead of a second credit.
func (s *OrderService) cancelTx(tx *gorm.DB, order *models.SalesOrder, actorID *uint) error {
	current, err := s.lockOrder(tx, order.ID)
	if err != nil {
		return err
	}
	switch current.Status {
	case models.StatusConfirmed:
	case models.StatusCancelled:
		order.Status = models.StatusCancelled
		return nil
	default:
		return &IllegalTransitionError{From: current.Status, To: models.StatusCancelled}
	}
	items, products, err := s.lockLines(tx, order.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, err := s.Stock.Apply(tx, products[it.ProductID], it.Qty, models.MovementReturn, actorID); err != nil {
			return err
		}
	}
	if err := tx.Model(&models.SalesOrder{}).Where("id = ?", order.ID).
		Update("status", models.StatusCancelled).Error; err != nil {
		return err
	}
	order.Status = models.StatusCancelled
	return nil
}

// lockOrder re-reads the order row on tx, FOR UPDATE on postgres, so status
// decisions are made against the transaction's view rather than a caller's
// possibly stale aggregate.
func (s *OrderService) lockOrder(tx *gorm.DB, orderID uint) (*models.SalesOrder, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.SalesOrder
	if err := q.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// lockLines loads the order's items and takes SELECT ... FOR UPDATE on each
// referenced product row. Orders touching disjoint products proceed in
// parallel; orders sharing a product serialize on its row.
func (s *OrderService) lockLines(tx *gorm.DB, orderID uint) ([]models.SalesOrderItem, map[uint]*models.Product, error) {
	var items []models.SalesOrderItem
	if err := tx.Where("order_id = ?", orderID).Order("id").Find(&items).Error; err != nil {
		return nil, nil, err
	}
	products := make(map[uint]*models.Product, len(items))
	for _, it := range items {
		if _, ok := products[it.ProductID]; ok {
			continue
		}
		q := tx
		// sqlite has no row locks; its writes serialize on the database lock.
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var p models.Product
		if err := q.First(&p, it.ProductID).Error; err != nil {
			return nil, nil, err
		}
		products[it.ProductID] = &p
	}
	return items, products, nil
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newOrderNumber returns a 10-character uppercase alphanumeric identifier.
func newOrderNumber() string {
	b := make([]byte, 10)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process is in a bad place anyway
			panic(err)
		}
		b[i] = orderNumberAlphabet[n.Int64()]
	}
	return string(b)
}
