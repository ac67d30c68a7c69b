// Package membership models the join fact linking one user to one tenant.
//
// The AI task core only reads memberships to validate access; creation and
// removal belong to the identity subsystem. Storage enforces uniqueness on
// (tenant, user).
package membership

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/platform/id"
)

// Role is the authorization level a member holds within a tenant.
type Role string

const (
	// RoleOwner is assigned to the creating user of a tenant.
	RoleOwner Role = "owner"
	// RoleAdmin may manage members and tenant settings.
	RoleAdmin Role = "admin"
	// RoleMember is the default collaboration role.
	RoleMember Role = "member"
)

var (
	// ErrEmptyTenantID indicates a tenant id is required.
	ErrEmptyTenantID = apperrors.New(apperrors.CodeMembershipEmptyTenantID, "tenant id is required")
	// ErrEmptyUserID indicates a user id is required.
	ErrEmptyUserID = apperrors.New(apperrors.CodeMembershipEmptyUserID, "user id is required")
	// ErrInvalidRole indicates an unsupported role value.
	ErrInvalidRole = apperrors.New(apperrors.CodeMembershipInvalidRole, "membership role is invalid")
)

// Membership links exactly one user to exactly one tenant with a role.
type Membership struct {
	ID        string
	TenantID  string
	UserID    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput captures the fields needed to create a membership.
type CreateInput struct {
	TenantID string
	UserID   string
	Role     Role
}

// NormalizeCreateInput validates and canonicalizes create input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.TenantID = strings.TrimSpace(input.TenantID)
	if input.TenantID == "" {
		return CreateInput{}, ErrEmptyTenantID
	}

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return CreateInput{}, ErrEmptyUserID
	}

	input.Role = Role(strings.ToLower(strings.TrimSpace(string(input.Role))))
	switch input.Role {
	case RoleOwner, RoleAdmin, RoleMember:
	default:
		return CreateInput{}, ErrInvalidRole
	}

	return input, nil
}

// Create constructs a normalized membership with generated identifiers.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Membership, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Membership{}, err
	}

	membershipID, err := idGenerator()
	if err != nil {
		return Membership{}, fmt.Errorf("generate membership id: %w", err)
	}

	createdAt := now().UTC()
	return Membership{
		ID:        membershipID,
		TenantID:  normalized.TenantID,
		UserID:    normalized.UserID,
		Role:      normalized.Role,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
