package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atriumhq/atrium/internal/services/identity/storage"
)

// PutTenant persists a tenant record, replacing any previous row with the same id.
func (s *Store) PutTenant(ctx context.Context, record storage.TenantRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.TrimSpace(record.Kind) == "" {
		return fmt.Errorf("tenant kind is required")
	}
	if strings.TrimSpace(record.Name) == "" {
		return fmt.Errorf("tenant name is required")
	}
	if strings.TrimSpace(record.Slug) == "" {
		return fmt.Errorf("tenant slug is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	settings, err := encodeSettings(record.Settings)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO tenants (id, kind, name, slug, registration_number, billing_email, settings, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind = excluded.kind,
	name = excluded.name,
	slug = excluded.slug,
	registration_number = excluded.registration_number,
	billing_email = excluded.billing_email,
	settings = excluded.settings,
	updated_at = excluded.updated_at
`,
		strings.TrimSpace(record.ID),
		strings.TrimSpace(record.Kind),
		strings.TrimSpace(record.Name),
		strings.TrimSpace(record.Slug),
		nullable(record.RegistrationNumber),
		nullable(record.BillingEmail),
		settings,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put tenant: %w", err)
	}
	return nil
}

// GetTenant returns one tenant by id.
func (s *Store) GetTenant(ctx context.Context, tenantID string) (storage.TenantRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TenantRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TenantRecord{}, fmt.Errorf("storage is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return storage.TenantRecord{}, fmt.Errorf("tenant id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, kind, name, slug, registration_number, billing_email, settings, created_at, updated_at
FROM tenants
WHERE id = ?
`, tenantID)
	return scanTenantRow(row)
}

// GetTenantBySlug returns one tenant by unique slug.
func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (storage.TenantRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TenantRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TenantRecord{}, fmt.Errorf("storage is not configured")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return storage.TenantRecord{}, fmt.Errorf("tenant slug is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, kind, name, slug, registration_number, billing_email, settings, created_at, updated_at
FROM tenants
WHERE slug = ?
`, slug)
	return scanTenantRow(row)
}

func scanTenantRow(row *sql.Row) (storage.TenantRecord, error) {
	var (
		rec                storage.TenantRecord
		registrationNumber sql.NullString
		billingEmail       sql.NullString
		settingsRaw        string
		createdAt          int64
		updatedAt          int64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Name,
		&rec.Slug,
		&registrationNumber,
		&billingEmail,
		&settingsRaw,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TenantRecord{}, storage.ErrNotFound
		}
		return storage.TenantRecord{}, fmt.Errorf("scan tenant row: %w", err)
	}
	settings, err := decodeSettings(settingsRaw)
	if err != nil {
		return storage.TenantRecord{}, err
	}
	rec.RegistrationNumber = registrationNumber.String
	rec.BillingEmail = billingEmail.String
	rec.Settings = settings
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}
