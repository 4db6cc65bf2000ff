package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPolicyDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUserWithRole(t *testing.T, db *gorm.DB, roleName string) models.User {
	t.Helper()
	user := models.User{Username: roleName + "-user", Password: "x"}
	if roleName != "" {
		role := models.Role{Name: roleName}
		if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
			t.Fatalf("role: %v", err)
		}
		user.RoleID = role.ID
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func TestRoleMatrix(t *testing.T) {
	db := setupPolicyDB(t)
	admin := seedUserWithRole(t, db, models.RoleAdmin)
	sales := seedUserWithRole(t, db, models.RoleSales)
	norole := seedUserWithRole(t, db, "")
	g := NewGate(db)
	ctx := context.Background()

	cases := []struct {
		user     uint
		action   gate.Action
		resource string
		want     bool
	}{
		// product: reads open, writes admin-only
		{admin.ID, gate.ActionCreate, ResourceProduct, true},
		{sales.ID, gate.ActionCreate, ResourceProduct, false},
		{sales.ID, gate.ActionList, ResourceProduct, true},
		{norole.ID, gate.ActionUpdate, ResourceProduct, false},
		// customer: create/update admin or sales, delete admin
		{sales.ID, gate.ActionCreate, ResourceCustomer, true},
		{sales.ID, gate.ActionUpdate, ResourceCustomer, true},
		{sales.ID, gate.ActionDelete, ResourceCustomer, false},
		{admin.ID, gate.ActionDelete, ResourceCustomer, true},
		// order: writes admin or sales
		{sales.ID, gate.ActionCreate, ResourceOrder, true},
		{sales.ID, gate.ActionDelete, ResourceOrder, true},
		{norole.ID, gate.ActionCreate, ResourceOrder, false},
		{norole.ID, gate.ActionView, ResourceOrder, true},
		// ledger: read-only for everyone
		{admin.ID, gate.ActionList, ResourceStockMovement, true},
		{admin.ID, gate.ActionCreate, ResourceStockMovement, false},
		{sales.ID, gate.ActionDelete, ResourceStockMovement, false},
	}
	for _, tc := range cases {
		if got := g.Can(ctx, tc.user, tc.action, tc.resource, nil); got != tc.want {
			t.Errorf("user %d %s %s = %v, want %v", tc.user, tc.action, tc.resource, got, tc.want)
		}
	}
}

func TestResolveMissingUser(t *testing.T) {
	db := setupPolicyDB(t)
	resolver := NewRoleResolver(db)
	if _, err := resolver.Resolve(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing user")
	}
	// A write by an unknown subject is denied, not an internal error.
	g := NewGate(db)
	if g.Can(context.Background(), 999, gate.ActionCreate, ResourceOrder, nil) {
		t.Fatal("unknown user allowed to write")
	}
}
