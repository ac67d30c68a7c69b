package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atriumhq/atrium/internal/services/identity/storage"
)

// PutUser persists a user record, replacing any previous row with the same id.
func (s *Store) PutUser(ctx context.Context, record storage.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(record.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, display_name, email, avatar_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	display_name = excluded.display_name,
	email = excluded.email,
	avatar_url = excluded.avatar_url,
	updated_at = excluded.updated_at
`,
		strings.TrimSpace(record.ID),
		nullable(record.DisplayName),
		strings.TrimSpace(record.Email),
		nullable(record.AvatarURL),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.UserRecord{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, display_name, email, avatar_url, created_at, updated_at
FROM users
WHERE id = ?
`, userID)
	return scanUserRow(row)
}

// GetUserByEmail returns one user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return storage.UserRecord{}, fmt.Errorf("email is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, display_name, email, avatar_url, created_at, updated_at
FROM users
WHERE email = ?
`, email)
	return scanUserRow(row)
}

func scanUserRow(row *sql.Row) (storage.UserRecord, error) {
	var (
		rec         storage.UserRecord
		displayName sql.NullString
		avatarURL   sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&rec.ID, &displayName, &rec.Email, &avatarURL, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("scan user row: %w", err)
	}
	rec.DisplayName = displayName.String
	rec.AvatarURL = avatarURL.String
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}
