package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/httpx"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
	"github.com/ledgerline/go-erp/internal/services"
	"github.com/ledgerline/go-erp/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderHandler struct {
	DB   *gorm.DB
	Svc  *services.OrderService
	Gate *gate.Gate[uint]
}

func NewOrderHandler(db *gorm.DB, svc *services.OrderService, g *gate.Gate[uint]) *OrderHandler {
	return &OrderHandler{DB: db, Svc: svc, Gate: g}
}

// List: GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionList, policy.ResourceOrder); !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.SalesOrder{})
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Count(&total)
	var orders []models.SalesOrder
	if err := dbq.Preload("Customer").Preload("Items.Product").
		Order("id desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "total": total, "limit": limit, "offset": offset})
}

type orderLineReq struct {
	ProductID uint             `json:"product_id"`
	Qty       int              `json:"qty"`
	Price     *decimal.Decimal `json:"price"`
}

// Create: POST /orders/create
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := checkAccess(w, r, h.Gate, gate.ActionCreate, policy.ResourceOrder)
	if !ok {
		return
	}
	var req struct {
		CustomerID uint               `json:"customer_id"`
		OrderDate  *time.Time         `json:"order_date"`
		Status     models.OrderStatus `json:"status"`
		Items      []orderLineReq     `json:"items"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.NonZeroID("customer_id", req.CustomerID, v)
	if len(req.Items) == 0 {
		v["items"] = "required"
	}
	for i, it := range req.Items {
		validation.NonZeroID(fmt.Sprintf("items[%d].product_id", i), it.ProductID, v)
		validation.PositiveInt(fmt.Sprintf("items[%d].qty", i), it.Qty, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	in := services.CreateOrderInput{
		CustomerID: req.CustomerID,
		Status:     req.Status,
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	for _, it := range req.Items {
		in.Lines = append(in.Lines, services.OrderLineInput{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     it.Price,
		})
	}
	order, err := h.Svc.Create(in, uid)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// Get: GET /orders/get?id=
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionView, policy.ResourceOrder); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var order models.SalesOrder
	if err := h.DB.Preload("Customer").Preload("Items.Product").First(&order, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Update: POST /orders/update?id=
// The status field goes through the lifecycle dispatch before any other field
// is written; customer and order date follow in the same transaction, so the
// whole update commits or rolls back as one unit.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := checkAccess(w, r, h.Gate, gate.ActionUpdate, policy.ResourceOrder)
	if !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var req struct {
		Status     *models.OrderStatus `json:"status"`
		CustomerID *uint               `json:"customer_id"`
		OrderDate  *time.Time          `json:"order_date"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	// Status dispatch and field writes share one transaction: a confirm whose
	// sibling field write fails rolls back entirely instead of leaving stock
	// debited for a rejected request.
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.Status != nil {
			if _, err := h.Svc.UpdateStatusTx(tx, id, *req.Status, uid); err != nil {
				return err
			}
		}
		if req.CustomerID == nil && req.OrderDate == nil {
			return nil
		}
		var order models.SalesOrder
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		if req.CustomerID != nil {
			var customer models.Customer
			if err := tx.First(&customer, *req.CustomerID).Error; err != nil {
				return errCustomerMissing
			}
			order.CustomerID = customer.ID
		}
		if req.OrderDate != nil {
			order.OrderDate = *req.OrderDate
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		if errors.Is(err, errCustomerMissing) {
			httpx.JSONError(w, http.StatusBadRequest, "customer_not_found", nil)
			return
		}
		writeOrderError(w, err)
		return
	}
	var order models.SalesOrder
	if err := h.DB.Preload("Customer").Preload("Items.Product").First(&order, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "order_load_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// errCustomerMissing distinguishes a bad customer reference on update from a
// missing order.
var errCustomerMissing = errors.New("customer not found")

// Delete: POST /orders/delete?id=
// Removes the order and its lines. No stock reversal happens here: ledger
// history stays authoritative even when the order record goes away.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionDelete, policy.ResourceOrder); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var order models.SalesOrder
	if err := h.DB.First(&order, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.SalesOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SalesOrder{}, id).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "order_delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// writeOrderError maps service errors to HTTP responses.
func writeOrderError(w http.ResponseWriter, err error) {
	var insufficient *services.InsufficientStockError
	var illegal *services.IllegalTransitionError
	switch {
	case errors.As(err, &insufficient):
		httpx.JSONError(w, http.StatusBadRequest, "insufficient_stock", map[string]any{
			"sku":       insufficient.SKU,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.As(err, &illegal):
		httpx.JSONError(w, http.StatusBadRequest, "illegal_transition", map[string]string{
			"from": string(illegal.From),
			"to":   string(illegal.To),
		})
	case errors.Is(err, services.ErrNonPositiveQty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrNoLines):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "order_operation_failed", nil)
	}
}
