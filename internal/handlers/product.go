package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/httpx"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
	"github.com/ledgerline/go-erp/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewProductHandler(db *gorm.DB, g *gate.Gate[uint]) *ProductHandler {
	return &ProductHandler{DB: db, Gate: g}
}

var searchSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// List: GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionList, policy.ResourceProduct); !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Product{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(sku) LIKE ? OR lower(name) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var products []models.Product
	if err := dbq.Order("id").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": limit, "offset": offset})
}

type productInput struct {
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	SellingPrice decimal.Decimal  `json:"selling_price"`
	StockQty     *int             `json:"stock_qty"`
}

// Create: POST /products/create
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionCreate, policy.ResourceProduct); !ok {
		return
	}
	var in productInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("sku", in.SKU, v)
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	p := models.Product{
		SKU:          strings.ToUpper(strings.TrimSpace(in.SKU)),
		Name:         in.Name,
		Category:     in.Category,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
	}
	if in.StockQty != nil {
		p.StockQty = *in.StockQty
	}
	if err := h.DB.Create(&p).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "sku_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Get: GET /products/get?id=
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionView, policy.ResourceProduct); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Update: POST /products/update?id=
// Stock quantity is deliberately not updatable here: stock changes go through
// the ledger so every unit is accounted for.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionUpdate, policy.ResourceProduct); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	var in struct {
		Name         *string          `json:"name"`
		Category     *string          `json:"category"`
		CostPrice    *decimal.Decimal `json:"cost_price"`
		SellingPrice *decimal.Decimal `json:"selling_price"`
	}
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.CostPrice != nil {
		p.CostPrice = *in.CostPrice
	}
	if in.SellingPrice != nil {
		p.SellingPrice = *in.SellingPrice
	}
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete: POST /products/delete?id=
// A product referenced by order lines cannot be removed; its ledger rows go
// with it when it can.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionDelete, policy.ResourceProduct); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	var refs int64
	if err := h.DB.Model(&models.SalesOrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_delete_failed", nil)
		return
	}
	if refs > 0 {
		httpx.JSONError(w, http.StatusConflict, "product_in_use", map[string]int64{"order_lines": refs})
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
