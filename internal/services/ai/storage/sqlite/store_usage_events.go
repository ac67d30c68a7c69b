package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atriumhq/atrium/internal/services/ai/storage"
)

// AppendUsageEvent writes one immutable ledger row. There is no update or
// delete counterpart.
func (s *Store) AppendUsageEvent(ctx context.Context, record storage.UsageEventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(record.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO usage_events (id, action, tenant_id, user_id, module_id, input_tokens, output_tokens, total_tokens, units, duration_ms, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		strings.TrimSpace(record.ID),
		strings.TrimSpace(record.Action),
		nullable(record.TenantID),
		strings.TrimSpace(record.UserID),
		strings.TrimSpace(record.ModuleID),
		record.InputTokens,
		record.OutputTokens,
		record.TotalTokens,
		record.Units,
		record.Duration.Milliseconds(),
		metadata,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append usage event: %w", err)
	}
	return nil
}

// scopeConditions builds the WHERE fragment shared by listing and
// aggregation. The two scopes are mutually exclusive: a tenant filter never
// matches personal rows and a personal filter matches only NULL-tenant rows
// owned by the user.
func scopeConditions(filter storage.UsageFilter) ([]string, []any, error) {
	var conditions []string
	var args []any

	tenantID := strings.TrimSpace(filter.TenantID)
	userID := strings.TrimSpace(filter.UserID)
	switch {
	case tenantID != "":
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, tenantID)
	case userID != "":
		conditions = append(conditions, "tenant_id IS NULL", "user_id = ?")
		args = append(args, userID)
	default:
		return nil, nil, fmt.Errorf("usage filter requires a tenant id or user id")
	}

	if action := strings.TrimSpace(filter.Action); action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, action)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, toMillis(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, toMillis(filter.To))
	}
	return conditions, args, nil
}

// ListUsageEvents returns newest-first ledger rows for one scope.
//
// Pagination uses an opaque rowid token with a pageSize+1 look-ahead; the
// returned token is empty once the listing is exhausted.
func (s *Store) ListUsageEvents(ctx context.Context, filter storage.UsageFilter, pageSize int, pageToken string) ([]storage.UsageEventRecord, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if s == nil || s.sqlDB == nil {
		return nil, "", fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	conditions, args, err := scopeConditions(filter)
	if err != nil {
		return nil, "", err
	}
	if token := strings.TrimSpace(pageToken); token != "" {
		cursor, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("parse page token: %w", err)
		}
		conditions = append(conditions, "rowid < ?")
		args = append(args, cursor)
	}
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT rowid, id, action, tenant_id, user_id, module_id, input_tokens, output_tokens, total_tokens, units, duration_ms, metadata, created_at
FROM usage_events
WHERE `+strings.Join(conditions, " AND ")+`
ORDER BY rowid DESC
LIMIT ?
`, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list usage events: %w", err)
	}
	defer rows.Close()

	var records []storage.UsageEventRecord
	var rowIDs []int64
	for rows.Next() {
		record, rowID, err := scanUsageEventRow(rows)
		if err != nil {
			return nil, "", err
		}
		records = append(records, record)
		rowIDs = append(rowIDs, rowID)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate usage event rows: %w", err)
	}

	nextToken := ""
	if len(records) > pageSize {
		// The look-ahead row proved another page exists; resume below the
		// last row actually returned.
		records = records[:pageSize]
		nextToken = strconv.FormatInt(rowIDs[pageSize-1], 10)
	}
	return records, nextToken, nil
}

// SummarizeUsage aggregates tokens, units, and counts over every row
// matching the scope and window, grouped by action on the breakdown side.
func (s *Store) SummarizeUsage(ctx context.Context, filter storage.UsageFilter) (storage.UsageSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.UsageSummary{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UsageSummary{}, fmt.Errorf("storage is not configured")
	}

	conditions, args, err := scopeConditions(filter)
	if err != nil {
		return storage.UsageSummary{}, err
	}
	where := strings.Join(conditions, " AND ")

	var summary storage.UsageSummary
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(units), 0)
FROM usage_events
WHERE `+where, args...)
	if err := row.Scan(&summary.Events, &summary.InputTokens, &summary.OutputTokens, &summary.TotalTokens, &summary.Units); err != nil {
		return storage.UsageSummary{}, fmt.Errorf("summarize usage: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT action, COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(units), 0)
FROM usage_events
WHERE `+where+`
GROUP BY action
ORDER BY action
`, args...)
	if err != nil {
		return storage.UsageSummary{}, fmt.Errorf("summarize usage by action: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action storage.ActionSummary
		if err := rows.Scan(&action.Action, &action.Events, &action.TotalTokens, &action.Units); err != nil {
			return storage.UsageSummary{}, fmt.Errorf("scan action summary row: %w", err)
		}
		summary.ByAction = append(summary.ByAction, action)
	}
	if err := rows.Err(); err != nil {
		return storage.UsageSummary{}, fmt.Errorf("iterate action summary rows: %w", err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsageEventRow(row rowScanner) (storage.UsageEventRecord, int64, error) {
	var (
		record     storage.UsageEventRecord
		rowID      int64
		tenantID   sql.NullString
		metadata   string
		durationMS int64
		createdAt  int64
	)
	if err := row.Scan(&rowID, &record.ID, &record.Action, &tenantID, &record.UserID, &record.ModuleID,
		&record.InputTokens, &record.OutputTokens, &record.TotalTokens, &record.Units,
		&durationMS, &metadata, &createdAt); err != nil {
		return storage.UsageEventRecord{}, 0, fmt.Errorf("scan usage event row: %w", err)
	}
	if tenantID.Valid {
		record.TenantID = tenantID.String
	}
	decoded, err := decodeMetadata(metadata)
	if err != nil {
		return storage.UsageEventRecord{}, 0, err
	}
	record.Metadata = decoded
	record.Duration = time.Duration(durationMS) * time.Millisecond
	record.CreatedAt = fromMillis(createdAt)
	return record, rowID, nil
}
