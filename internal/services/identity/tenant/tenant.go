// Package tenant models shared collaboration scopes.
//
// A tenant is either a household or an organization. Absence of a tenant in
// a session means the caller is operating in personal mode.
package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/platform/id"
)

// Kind discriminates tenant flavors.
type Kind string

const (
	// KindHousehold is a shared-household tenant.
	KindHousehold Kind = "household"
	// KindOrganization is an organization tenant with billing fields.
	KindOrganization Kind = "organization"
)

var (
	// ErrEmptyName indicates a tenant name is required.
	ErrEmptyName = apperrors.New(apperrors.CodeTenantEmptyName, "tenant name is required")
	// ErrInvalidKind indicates an unsupported tenant kind.
	ErrInvalidKind = apperrors.New(apperrors.CodeTenantInvalidKind, "tenant kind is invalid")
	// ErrInvalidSlug indicates a slug that does not match the required format.
	ErrInvalidSlug = apperrors.New(apperrors.CodeTenantInvalidSlug, "tenant slug must be 3-32 lowercase alphanumeric or dash characters")

	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{1,30}[a-z0-9]$`)
)

// Tenant is a named collaboration unit.
//
// RegistrationNumber and BillingEmail only apply to organization tenants;
// Settings is free-form and persisted as JSON.
type Tenant struct {
	ID                 string
	Kind               Kind
	Name               string
	Slug               string
	RegistrationNumber string
	BillingEmail       string
	Settings           map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateInput captures user-provided fields for creating a tenant.
type CreateInput struct {
	Kind               Kind
	Name               string
	Slug               string
	RegistrationNumber string
	BillingEmail       string
	Settings           map[string]string
}

// ValidateSlug enforces canonical slug constraints used by lookup and
// invite paths.
func ValidateSlug(s string) error {
	if !slugPattern.MatchString(s) {
		return ErrInvalidSlug
	}
	return nil
}

// NormalizeCreateInput validates and canonicalizes create input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateInput{}, ErrEmptyName
	}

	input.Kind = Kind(strings.ToLower(strings.TrimSpace(string(input.Kind))))
	if input.Kind != KindHousehold && input.Kind != KindOrganization {
		return CreateInput{}, ErrInvalidKind
	}

	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	if err := ValidateSlug(input.Slug); err != nil {
		return CreateInput{}, err
	}

	input.RegistrationNumber = strings.TrimSpace(input.RegistrationNumber)
	input.BillingEmail = strings.ToLower(strings.TrimSpace(input.BillingEmail))
	if input.Kind == KindHousehold {
		// Household tenants never carry organization billing fields.
		input.RegistrationNumber = ""
		input.BillingEmail = ""
	}

	return input, nil
}

// Create constructs a normalized tenant with generated identifiers.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Tenant, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Tenant{}, err
	}

	tenantID, err := idGenerator()
	if err != nil {
		return Tenant{}, fmt.Errorf("generate tenant id: %w", err)
	}

	createdAt := now().UTC()
	return Tenant{
		ID:                 tenantID,
		Kind:               normalized.Kind,
		Name:               normalized.Name,
		Slug:               normalized.Slug,
		RegistrationNumber: normalized.RegistrationNumber,
		BillingEmail:       normalized.BillingEmail,
		Settings:           normalized.Settings,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}, nil
}
