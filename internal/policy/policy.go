// Package policy wires the generic gate to the ERP's role model. The rules
// mirror the role matrix of the API:
//
//	product         reads for any authenticated user, writes admin-only
//	customer        reads for any, create/update admin or sales, delete admin
//	order           reads for any, writes admin or sales
//	stock_movement  read-only for everyone; the ledger has no write surface
package policy

import (
	"context"

	"github.com/ledgerline/go-erp/gate"
	"github.com/ledgerline/go-erp/internal/models"
	"gorm.io/gorm"
)

// Resource type names registered on the gate.
const (
	ResourceProduct       = "product"
	ResourceCustomer      = "customer"
	ResourceOrder         = "order"
	ResourceStockMovement = "stock_movement"
)

var roleProfiles = map[string]gate.Profile{
	models.RoleAdmin: gate.NewStaticProfile(models.RoleAdmin, gate.PermissionSuperAdmin),
	models.RoleSales: gate.NewStaticProfile(models.RoleSales,
		gate.NewPermission(ResourceCustomer, gate.ActionCreate),
		gate.NewPermission(ResourceCustomer, gate.ActionUpdate),
		"order:*",
	),
}

// RoleResolver looks up a user's role name in the database.
type RoleResolver struct {
	DB *gorm.DB
}

func NewRoleResolver(db *gorm.DB) *RoleResolver { return &RoleResolver{DB: db} }

// Resolve returns the role name for userID, or "" when the user has none.
func (r *RoleResolver) Resolve(ctx context.Context, userID uint) (string, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Role").First(&user, userID).Error
	if err != nil {
		return "", err
	}
	return user.Role.Name, nil
}

// rolePolicy grants all reads to any authenticated user and checks writes
// against the subject's role profile.
type rolePolicy struct {
	resourceType string
	resolver     *RoleResolver
}

func (p *rolePolicy) Can(ctx context.Context, userID uint, action gate.Action, _ any) bool {
	if !action.Write() {
		return true
	}
	role, err := p.resolver.Resolve(ctx, userID)
	if err != nil || role == "" {
		return false
	}
	profile, ok := roleProfiles[role]
	if !ok {
		return false
	}
	return profile.HasPermission(gate.NewPermission(p.resourceType, action))
}

// readOnlyPolicy permits reads and denies every write, for any subject.
type readOnlyPolicy struct{}

func (readOnlyPolicy) Can(_ context.Context, _ uint, action gate.Action, _ any) bool {
	return !action.Write()
}

// NewGate builds the fully registered authorization gate for the ERP.
func NewGate(db *gorm.DB) *gate.Gate[uint] {
	resolver := NewRoleResolver(db)
	g := gate.NewGate[uint]()
	g.Register(ResourceProduct, &rolePolicy{resourceType: ResourceProduct, resolver: resolver})
	g.Register(ResourceCustomer, &rolePolicy{resourceType: ResourceCustomer, resolver: resolver})
	g.Register(ResourceOrder, &rolePolicy{resourceType: ResourceOrder, resolver: resolver})
	g.Register(ResourceStockMovement, readOnlyPolicy{})
	return g
}
