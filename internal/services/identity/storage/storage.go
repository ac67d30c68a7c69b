package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a requested write violates a uniqueness constraint.
var ErrConflict = errors.New("record conflict")

// UserRecord stores a persisted identity profile.
type UserRecord struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TenantRecord stores a persisted tenant.
type TenantRecord struct {
	ID                 string
	Kind               string
	Name               string
	Slug               string
	RegistrationNumber string
	BillingEmail       string
	Settings           map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MembershipRecord stores one user's membership in one tenant.
type MembershipRecord struct {
	ID        string
	TenantID  string
	UserID    string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore persists identity profiles.
type UserStore interface {
	PutUser(ctx context.Context, record UserRecord) error
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
}

// TenantStore persists tenants.
type TenantStore interface {
	PutTenant(ctx context.Context, record TenantRecord) error
	GetTenant(ctx context.Context, tenantID string) (TenantRecord, error)
	GetTenantBySlug(ctx context.Context, slug string) (TenantRecord, error)
}

// MembershipStore persists tenant memberships.
//
// Uniqueness on (tenant, user) is a storage invariant: PutMembership returns
// ErrConflict when a membership already links the pair.
type MembershipStore interface {
	PutMembership(ctx context.Context, record MembershipRecord) error
	// GetMembershipByTenantAndUser returns the membership row authorizing one
	// user within one tenant. Session resolution depends on this lookup to
	// re-validate long-lived selector tokens on every call.
	GetMembershipByTenantAndUser(ctx context.Context, tenantID string, userID string) (MembershipRecord, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]MembershipRecord, error)
	DeleteMembership(ctx context.Context, tenantID string, userID string) error
}
