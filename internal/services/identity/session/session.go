// Package session resolves a caller's per-request session context.
//
// A session is ephemeral: it is constructed fresh for every request from the
// caller's verified identity plus an optional tenant selector token, and is
// never persisted. Tenant-scoped resolution degrades silently to personal
// mode on any ambiguity; blocking the caller entirely was judged worse than
// temporarily losing tenant context, so this fallback is deliberate and must
// not be "fixed" into a hard error.
package session

import (
	"context"

	"github.com/atriumhq/atrium/internal/services/identity/membership"
	"github.com/atriumhq/atrium/internal/services/identity/storage"
	"github.com/atriumhq/atrium/internal/services/identity/tenant"
	"github.com/atriumhq/atrium/internal/services/identity/user"
)

// Identity resolves the current caller from request context.
type Identity interface {
	CurrentUser(ctx context.Context) (user.Profile, error)
}

// Stores groups the storage interfaces session resolution reads from.
type Stores struct {
	Users       storage.UserStore
	Tenants     storage.TenantStore
	Memberships storage.MembershipStore
}

// Context is the per-request session value.
//
// Tenant and Membership are both nil (personal mode) or both non-nil; no
// state exists with a tenant but no membership.
type Context struct {
	User       user.Profile
	Tenant     *tenant.Tenant
	Membership *membership.Membership
}

// Personal reports whether the session has no active tenant.
func (c *Context) Personal() bool {
	return c == nil || c.Tenant == nil
}

// TenantID returns the active tenant id, or "" in personal mode.
func (c *Context) TenantID() string {
	if c == nil || c.Tenant == nil {
		return ""
	}
	return c.Tenant.ID
}

func tenantFromRecord(rec storage.TenantRecord) tenant.Tenant {
	return tenant.Tenant{
		ID:                 rec.ID,
		Kind:               tenant.Kind(rec.Kind),
		Name:               rec.Name,
		Slug:               rec.Slug,
		RegistrationNumber: rec.RegistrationNumber,
		BillingEmail:       rec.BillingEmail,
		Settings:           rec.Settings,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

func membershipFromRecord(rec storage.MembershipRecord) membership.Membership {
	return membership.Membership{
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		UserID:    rec.UserID,
		Role:      membership.Role(rec.Role),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
