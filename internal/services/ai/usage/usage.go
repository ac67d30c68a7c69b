// Package usage maintains the append-only billing ledger.
//
// Events are immutable facts: the ledger exposes no update or delete
// operation. Personal events carry no tenant id and never mix with
// tenant-scoped events in any read.
package usage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/platform/id"
	"github.com/atriumhq/atrium/internal/services/ai/storage"
)

var (
	// ErrInvalidAction indicates an action outside module:domain:verb form.
	ErrInvalidAction = apperrors.New(apperrors.CodeUsageInvalidAction, "action must be in module:domain:verb format")
	// ErrNegativeValue indicates a negative token or unit count.
	ErrNegativeValue = apperrors.New(apperrors.CodeUsageNegativeValue, "usage counts must be non-negative")
	// ErrEmptyUserID indicates an event without an owning user.
	ErrEmptyUserID = apperrors.New(apperrors.CodeUsageEmptyUserID, "user id is required")

	actionPattern = regexp.MustCompile(`^[a-z]+:[a-z]+:[a-z]+$`)
)

// ValidateAction checks an action against the billing action pattern. It
// guards both writes and action-filtered reads.
func ValidateAction(action string) error {
	if !actionPattern.MatchString(action) {
		return ErrInvalidAction
	}
	return nil
}

// Event is one recorded usage fact.
type Event struct {
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

// RecordInput captures the fields needed to append an event.
type RecordInput struct {
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
}

// Filter narrows history and summary reads. TenantID selects the tenant
// scope; otherwise UserID selects the personal scope.
type Filter struct {
	TenantID string
	UserID   string
	Action   string
	From     time.Time
	To       time.Time
}

// Summary aggregates one scope over one window.
type Summary struct {
	Events       int64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Units        int64
	ByAction     []ActionSummary
}

// ActionSummary is the per-action slice of a Summary.
type ActionSummary struct {
	Action      string
	Events      int64
	TotalTokens int64
	Units       int64
}

// Ledger validates and persists usage events.
type Ledger struct {
	store       storage.UsageStore
	now         func() time.Time
	idGenerator func() (string, error)
}

// NewLedger creates a Ledger over a usage store.
func NewLedger(store storage.UsageStore) *Ledger {
	return &Ledger{
		store:       store,
		now:         time.Now,
		idGenerator: id.NewID,
	}
}

// NewLedgerForTest creates a Ledger with injected clock and id generation.
func NewLedgerForTest(store storage.UsageStore, now func() time.Time, idGenerator func() (string, error)) *Ledger {
	ledger := NewLedger(store)
	if now != nil {
		ledger.now = now
	}
	if idGenerator != nil {
		ledger.idGenerator = idGenerator
	}
	return ledger
}

// Record validates and appends one event, returning the stored value.
func (l *Ledger) Record(ctx context.Context, input RecordInput) (Event, error) {
	input.Action = strings.TrimSpace(input.Action)
	if err := ValidateAction(input.Action); err != nil {
		return Event{}, err
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return Event{}, ErrEmptyUserID
	}
	if input.InputTokens < 0 || input.OutputTokens < 0 || input.TotalTokens < 0 || input.Units < 0 || input.Duration < 0 {
		return Event{}, ErrNegativeValue
	}

	eventID, err := l.idGenerator()
	if err != nil {
		return Event{}, fmt.Errorf("generate event id: %w", err)
	}
	event := Event{
		ID:           eventID,
		Action:       input.Action,
		TenantID:     strings.TrimSpace(input.TenantID),
		UserID:       input.UserID,
		ModuleID:     strings.TrimSpace(input.ModuleID),
		InputTokens:  input.InputTokens,
		OutputTokens: input.OutputTokens,
		TotalTokens:  input.TotalTokens,
		Units:        input.Units,
		Duration:     input.Duration,
		Metadata:     input.Metadata,
		CreatedAt:    l.now().UTC(),
	}
	if err := l.store.AppendUsageEvent(ctx, recordFromEvent(event)); err != nil {
		return Event{}, fmt.Errorf("append usage event: %w", err)
	}
	return event, nil
}

// History returns newest-first events for one scope plus a continuation
// token, empty when exhausted.
func (l *Ledger) History(ctx context.Context, filter Filter, pageSize int, pageToken string) ([]Event, string, error) {
	if filter.Action != "" {
		if err := ValidateAction(filter.Action); err != nil {
			return nil, "", err
		}
	}
	records, nextToken, err := l.store.ListUsageEvents(ctx, storageFilter(filter), pageSize, pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("list usage events: %w", err)
	}
	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, eventFromRecord(record))
	}
	return events, nextToken, nil
}

// Summarize aggregates one scope server-side over the full matching set.
func (l *Ledger) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	if filter.Action != "" {
		if err := ValidateAction(filter.Action); err != nil {
			return Summary{}, err
		}
	}
	stored, err := l.store.SummarizeUsage(ctx, storageFilter(filter))
	if err != nil {
		return Summary{}, fmt.Errorf("summarize usage: %w", err)
	}
	summary := Summary{
		Events:       stored.Events,
		InputTokens:  stored.InputTokens,
		OutputTokens: stored.OutputTokens,
		TotalTokens:  stored.TotalTokens,
		Units:        stored.Units,
	}
	for _, action := range stored.ByAction {
		summary.ByAction = append(summary.ByAction, ActionSummary(action))
	}
	return summary, nil
}

func storageFilter(filter Filter) storage.UsageFilter {
	return storage.UsageFilter{
		TenantID: strings.TrimSpace(filter.TenantID),
		UserID:   strings.TrimSpace(filter.UserID),
		Action:   strings.TrimSpace(filter.Action),
		From:     filter.From,
		To:       filter.To,
	}
}

func recordFromEvent(event Event) storage.UsageEventRecord {
	return storage.UsageEventRecord(event)
}

func eventFromRecord(record storage.UsageEventRecord) Event {
	return Event(record)
}
