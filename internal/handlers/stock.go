package handlers

import (
	"net/http"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/httpx"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
	"gorm.io/gorm"
)

// StockMovementHandler exposes the ledger read-only; movements are only ever
// written by the order lifecycle.
type StockMovementHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewStockMovementHandler(db *gorm.DB, g *gate.Gate[uint]) *StockMovementHandler {
	return &StockMovementHandler{DB: db, Gate: g}
}

// List: GET /stock-movements — newest first.
func (h *StockMovementHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionList, policy.ResourceStockMovement); !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.StockMovement{})
	if pid := r.URL.Query().Get("product_id"); pid != "" {
		dbq = dbq.Where("product_id = ?", pid)
	}
	var total int64
	dbq.Count(&total)
	var movements []models.StockMovement
	if err := dbq.Preload("Product").
		Order("created_at desc, id desc").Limit(limit).Offset(offset).
		Find(&movements).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_movements", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": movements, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /stock-movements/get?id=
func (h *StockMovementHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionView, policy.ResourceStockMovement); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var mv models.StockMovement
	if err := h.DB.Preload("Product").First(&mv, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "movement_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, mv)
}
