package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
)

func TestProductCreateRoleGating(t *testing.T) {
	db := setupHandlerDB(t)
	admin := seedRoleUser(t, db, models.RoleAdmin)
	sales := seedRoleUser(t, db, models.RoleSales)
	h := NewProductHandler(db, policy.NewGate(db))

	payload := map[string]any{"sku": "wid-1", "name": "Widget", "cost_price": "2.00", "selling_price": "5.00"}

	rec := doJSON(t, h.Create, http.MethodPost, "/products/create", sales.ID, payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("sales create = %d, want 403: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h.Create, http.MethodPost, "/products/create", admin.ID, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created models.Product
	decodeBody(t, rec, &created)
	if created.SKU != "WID-1" {
		t.Fatalf("sku = %q, want uppercased WID-1", created.SKU)
	}

	// Reads stay open to sales.
	rec = doJSON(t, h.List, http.MethodGet, "/products", sales.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sales list = %d, want 200", rec.Code)
	}

	// No identity at all.
	rec = doJSON(t, h.List, http.MethodGet, "/products", 0, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d, want 401", rec.Code)
	}
}

func TestProductCreateDuplicateSKU(t *testing.T) {
	db := setupHandlerDB(t)
	admin := seedRoleUser(t, db, models.RoleAdmin)
	seedTestProduct(t, db, "WID-1", "5.00", 0)
	h := NewProductHandler(db, policy.NewGate(db))

	rec := doJSON(t, h.Create, http.MethodPost, "/products/create", admin.ID,
		map[string]any{"sku": "WID-1", "name": "Widget", "cost_price": "2.00", "selling_price": "5.00"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestProductUpdatePartial(t *testing.T) {
	db := setupHandlerDB(t)
	admin := seedRoleUser(t, db, models.RoleAdmin)
	p := seedTestProduct(t, db, "WID-1", "5.00", 7)
	h := NewProductHandler(db, policy.NewGate(db))

	rec := doJSON(t, h.Update, http.MethodPost, fmt.Sprintf("/products/update?id=%d", p.ID), admin.ID,
		map[string]any{"selling_price": "6.50"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Product
	if err := db.First(&updated, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !updated.SellingPrice.Equal(mustDec(t, "6.50")) {
		t.Fatalf("selling price = %s, want 6.50", updated.SellingPrice)
	}
	if updated.Name != p.Name {
		t.Fatalf("name changed unexpectedly: %q", updated.Name)
	}
	if updated.StockQty != 7 {
		t.Fatalf("stock = %d, want 7 (not updatable here)", updated.StockQty)
	}

	// stock_qty is not an accepted field on update.
	rec = doJSON(t, h.Update, http.MethodPost, fmt.Sprintf("/products/update?id=%d", p.ID), admin.ID,
		map[string]any{"stock_qty": 99})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("stock_qty update = %d, want 400", rec.Code)
	}
}

func TestProductDeleteBlockedWhileReferenced(t *testing.T) {
	db := setupHandlerDB(t)
	admin := seedRoleUser(t, db, models.RoleAdmin)
	p := seedTestProduct(t, db, "WID-1", "5.00", 10)
	customer := seedTestCustomer(t, db, "CUST1")
	order := models.SalesOrder{
		OrderNumber: "ABC1234567",
		CustomerID:  customer.ID,
		CreatedByID: admin.ID,
		Status:      models.StatusPending,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("order: %v", err)
	}
	item := models.SalesOrderItem{OrderID: order.ID, ProductID: p.ID, Qty: 1, Price: p.SellingPrice}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("item: %v", err)
	}
	h := NewProductHandler(db, policy.NewGate(db))

	rec := doJSON(t, h.Delete, http.MethodPost, fmt.Sprintf("/products/delete?id=%d", p.ID), admin.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete referenced = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	// Drop the reference; delete also removes the product's ledger rows.
	if err := db.Delete(&models.SalesOrderItem{}, item.ID).Error; err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if err := db.Create(&models.StockMovement{ProductID: p.ID, Qty: -1, Kind: models.MovementSale}).Error; err != nil {
		t.Fatalf("movement: %v", err)
	}
	rec = doJSON(t, h.Delete, http.MethodPost, fmt.Sprintf("/products/delete?id=%d", p.ID), admin.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	var movements int64
	db.Model(&models.StockMovement{}).Where("product_id = ?", p.ID).Count(&movements)
	if movements != 0 {
		t.Fatalf("movements = %d, want 0 after delete", movements)
	}
}

func TestProductListSearch(t *testing.T) {
	db := setupHandlerDB(t)
	admin := seedRoleUser(t, db, models.RoleAdmin)
	seedTestProduct(t, db, "WID-1", "5.00", 0)
	seedTestProduct(t, db, "GAD-1", "5.00", 0)
	h := NewProductHandler(db, policy.NewGate(db))

	rec := doJSON(t, h.List, http.MethodGet, "/products?q=wid", admin.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var body struct {
		Items []models.Product `json:"items"`
		Total int64            `json:"total"`
	}
	decodeBody(t, rec, &body)
	if body.Total != 1 || len(body.Items) != 1 || body.Items[0].SKU != "WID-1" {
		t.Fatalf("search result = %+v", body)
	}
}
