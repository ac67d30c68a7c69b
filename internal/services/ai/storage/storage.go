// Package storage defines persistence contracts for the AI task core.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// UsageEventRecord is one persisted usage fact. Rows are append-only: no
// update or delete path exists.
//
// TenantID is empty for personal-mode events and maps to a NULL column, so
// personal and tenant scopes never mix in reads.
type UsageEventRecord struct {
	ID           string
	Action       string
	TenantID     string
	UserID       string
	ModuleID     string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Units        int64
	Duration     time.Duration
	Metadata     map[string]string
	CreatedAt    time.Time
}

// UsageFilter narrows a history read. Exactly one scope applies: TenantID
// when set, otherwise personal rows for UserID.
type UsageFilter struct {
	TenantID string
	UserID   string
	Action   string
	From     time.Time
	To       time.Time
}

// UsageSummary is a server-side aggregate over one scope and window.
type UsageSummary struct {
	Events       int64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Units        int64
	ByAction     []ActionSummary
}

// ActionSummary is the per-action slice of a summary.
type ActionSummary struct {
	Action      string
	Events      int64
	TotalTokens int64
	Units       int64
}

// UsageStore persists the append-only usage ledger.
type UsageStore interface {
	AppendUsageEvent(ctx context.Context, record UsageEventRecord) error
	// ListUsageEvents returns newest-first events matching the filter plus a
	// token for the next page, empty when the listing is exhausted.
	ListUsageEvents(ctx context.Context, filter UsageFilter, pageSize int, pageToken string) ([]UsageEventRecord, string, error)
	// SummarizeUsage aggregates over the full matching set in the store, not
	// over a fetched page.
	SummarizeUsage(ctx context.Context, filter UsageFilter) (UsageSummary, error)
}
