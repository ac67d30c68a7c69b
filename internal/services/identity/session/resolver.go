package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/atriumhq/atrium/internal/services/identity/storage"
	"github.com/atriumhq/atrium/internal/services/identity/tenant"
)

// Resolver turns a selector token into a verified session context.
type Resolver struct {
	identity Identity
	stores   Stores
	cache    *cache
	clock    func() time.Time
}

// NewResolver creates a Resolver without session caching.
func NewResolver(identity Identity, stores Stores) *Resolver {
	return &Resolver{
		identity: identity,
		stores:   stores,
		clock:    time.Now,
	}
}

// NewResolverWithCache creates a Resolver with a short-TTL session cache.
// A non-positive ttl disables caching.
func NewResolverWithCache(identity Identity, stores Stores, ttl time.Duration) *Resolver {
	r := NewResolver(identity, stores)
	r.cache = newCache(ttl)
	return r
}

// ResolveActiveTenant resolves the tenant named by a selector token.
//
// It returns nil for every recoverable condition: an absent or empty token
// (personal mode, no store access performed), a caller without identity, a
// stale token whose membership has been revoked since issuance, and a
// missing tenant row. Membership is re-validated on every call; selector
// tokens are long-lived and membership can be revoked after issuance.
//
// callerID skips a duplicate identity check when the invoker already
// verified the caller; pass "" to resolve identity here.
func (r *Resolver) ResolveActiveTenant(ctx context.Context, selectorToken string, callerID string) *tenant.Tenant {
	selectorToken = strings.TrimSpace(selectorToken)
	if selectorToken == "" {
		return nil
	}
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		profile, err := r.identity.CurrentUser(ctx)
		if err != nil {
			return nil
		}
		callerID = profile.ID
	}
	active, _ := r.resolveMember(ctx, selectorToken, callerID)
	return active
}

// resolveMember resolves the (tenant, membership) pair for a selector token,
// or (nil, nil) when resolution degrades to personal mode.
func (r *Resolver) resolveMember(ctx context.Context, selectorToken string, callerID string) (*tenant.Tenant, *storage.MembershipRecord) {
	selectorToken = strings.TrimSpace(selectorToken)
	if selectorToken == "" {
		return nil, nil
	}

	record, err := r.stores.Memberships.GetMembershipByTenantAndUser(ctx, selectorToken, callerID)
	if err != nil {
		// A missing row means the token is stale, which is expected and
		// recoverable; anything else is a store fault worth logging. Either
		// way the caller degrades to personal mode instead of failing.
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("session: membership check for tenant %s: %v", selectorToken, err)
		}
		return nil, nil
	}

	tenantRecord, err := r.stores.Tenants.GetTenant(ctx, record.TenantID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("session: tenant fetch %s: %v", record.TenantID, err)
		}
		return nil, nil
	}

	resolved := tenantFromRecord(tenantRecord)
	return &resolved, &record
}

// ResolveSession resolves the caller's full session context.
//
// It returns nil only when no caller identity can be established. Every
// tenant-side failure falls back to a personal-mode session.
func (r *Resolver) ResolveSession(ctx context.Context, selectorToken string) *Context {
	profile, err := r.identity.CurrentUser(ctx)
	if err != nil {
		return nil
	}
	selectorToken = strings.TrimSpace(selectorToken)

	now := r.clock().UTC()
	if cached, ok := r.cache.get(profile.ID, selectorToken, now); ok {
		return &cached
	}

	session := Context{User: profile}
	if activeTenant, record := r.resolveMember(ctx, selectorToken, profile.ID); activeTenant != nil {
		member := membershipFromRecord(*record)
		session.Tenant = activeTenant
		session.Membership = &member
	}

	r.cache.put(profile.ID, selectorToken, session, now)
	return &session
}

// InvalidateCachedSession drops the cached session for one caller. It must
// be called whenever the caller's tenant selection changes so a stale
// session is never served across a tenant switch.
func (r *Resolver) InvalidateCachedSession(callerID string) {
	r.cache.invalidate(strings.TrimSpace(callerID))
}
