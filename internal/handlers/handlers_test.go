package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ledgerline/go-erp/auth"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Customer{},
		&models.Product{}, &models.SalesOrder{}, &models.SalesOrderItem{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedRoleUser(t *testing.T, db *gorm.DB, roleName string) models.User {
	t.Helper()
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName}
		if err := db.Create(&role).Error; err != nil {
			t.Fatalf("role %s: %v", roleName, err)
		}
	}
	user := models.User{Username: roleName + "-user", Password: "x", RoleID: role.ID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func seedTestProduct(t *testing.T, db *gorm.DB, sku string, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		SKU:          sku,
		Name:         "Product " + sku,
		CostPrice:    mustDec(t, "1.00"),
		SellingPrice: mustDec(t, price),
		StockQty:     stock,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("product %s: %v", sku, err)
	}
	return p
}

func seedTestCustomer(t *testing.T, db *gorm.DB, code string) models.Customer {
	t.Helper()
	c := models.Customer{Code: code, Name: "Customer " + code}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("customer %s: %v", code, err)
	}
	return c
}

// doJSON runs a handler with an authenticated request and a JSON body.
func doJSON(t *testing.T, h http.HandlerFunc, method, target string, uid uint, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
