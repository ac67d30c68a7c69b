package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atriumhq/atrium/internal/services/identity/storage"
)

// PutMembership persists a membership row.
//
// Uniqueness on (tenant, user) is enforced by the schema; a duplicate pair
// surfaces as storage.ErrConflict.
func (s *Store) PutMembership(ctx context.Context, record storage.MembershipRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("membership id is required")
	}
	if strings.TrimSpace(record.TenantID) == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(record.Role) == "" {
		return fmt.Errorf("role is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tenant_members (id, tenant_id, user_id, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		strings.TrimSpace(record.ID),
		strings.TrimSpace(record.TenantID),
		strings.TrimSpace(record.UserID),
		strings.TrimSpace(record.Role),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put membership: %w", err)
	}
	return nil
}

// GetMembershipByTenantAndUser returns the membership linking one user to one tenant.
func (s *Store) GetMembershipByTenantAndUser(ctx context.Context, tenantID string, userID string) (storage.MembershipRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MembershipRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MembershipRecord{}, fmt.Errorf("storage is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return storage.MembershipRecord{}, fmt.Errorf("tenant id is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.MembershipRecord{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, tenant_id, user_id, role, created_at, updated_at
FROM tenant_members
WHERE tenant_id = ? AND user_id = ?
`, tenantID, userID)
	return scanMembershipRow(row)
}

// ListMembershipsByUser returns every membership held by one user.
func (s *Store) ListMembershipsByUser(ctx context.Context, userID string) ([]storage.MembershipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, tenant_id, user_id, role, created_at, updated_at
FROM tenant_members
WHERE user_id = ?
ORDER BY created_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships by user: %w", err)
	}
	defer rows.Close()

	var records []storage.MembershipRecord
	for rows.Next() {
		var (
			rec       storage.MembershipRecord
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.UserID, &rec.Role, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan membership row: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		rec.UpdatedAt = fromMillis(updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership rows: %w", err)
	}
	return records, nil
}

// DeleteMembership removes the membership linking one user to one tenant.
func (s *Store) DeleteMembership(ctx context.Context, tenantID string, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM tenant_members WHERE tenant_id = ? AND user_id = ?
`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete membership rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanMembershipRow(row *sql.Row) (storage.MembershipRecord, error) {
	var (
		rec       storage.MembershipRecord
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.UserID, &rec.Role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MembershipRecord{}, storage.ErrNotFound
		}
		return storage.MembershipRecord{}, fmt.Errorf("scan membership row: %w", err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}
