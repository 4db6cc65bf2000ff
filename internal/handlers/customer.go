package handlers

import (
	"net/http"
	"strings"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/httpx"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
	"github.com/ledgerline/go-erp/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[uint]
}

func NewCustomerHandler(db *gorm.DB, g *gate.Gate[uint]) *CustomerHandler {
	return &CustomerHandler{DB: db, Gate: g}
}

// List: GET /customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionList, policy.ResourceCustomer); !ok {
		return
	}
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Customer{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(code) LIKE ? OR lower(name) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var customers []models.Customer
	if err := dbq.Order("id").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_customers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": customers, "total": total, "limit": limit, "offset": offset})
}

type customerInput struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Phone          string           `json:"phone"`
	Address        string           `json:"address"`
	Email          string           `json:"email"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
}

// Create: POST /customers/create
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionCreate, policy.ResourceCustomer); !ok {
		return
	}
	var in customerInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("code", in.Code, v)
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	c := models.Customer{
		Code:           strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:           in.Name,
		Phone:          in.Phone,
		Address:        in.Address,
		Email:          in.Email,
		OpeningBalance: in.OpeningBalance,
	}
	if err := h.DB.Create(&c).Error; err != nil {
		if isDuplicate(err) {
			httpx.JSONError(w, http.StatusConflict, "code_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "customer_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Get: GET /customers/get?id=
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionView, policy.ResourceCustomer); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var c models.Customer
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update: POST /customers/update?id=
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionUpdate, policy.ResourceCustomer); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var c models.Customer
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	var in struct {
		Name           *string          `json:"name"`
		Phone          *string          `json:"phone"`
		Address        *string          `json:"address"`
		Email          *string          `json:"email"`
		OpeningBalance *decimal.Decimal `json:"opening_balance"`
	}
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Address != nil {
		c.Address = *in.Address
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.OpeningBalance != nil {
		c.OpeningBalance = in.OpeningBalance
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "customer_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete: POST /customers/delete?id=
// The customer owns its orders, which in turn own their lines, so removal
// cascades explicitly through both in one transaction. Ledger rows stay: the
// movement history of a product is independent of who bought it.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := checkAccess(w, r, h.Gate, gate.ActionDelete, policy.ResourceCustomer); !ok {
		return
	}
	id, ok := queryID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var c models.Customer
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "customer_not_found", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var orderIDs []uint
		if err := tx.Model(&models.SalesOrder{}).Where("customer_id = ?", id).
			Pluck("id", &orderIDs).Error; err != nil {
			return err
		}
		if len(orderIDs) > 0 {
			if err := tx.Where("order_id IN ?", orderIDs).Delete(&models.SalesOrderItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", orderIDs).Delete(&models.SalesOrder{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Customer{}, id).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "customer_delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
