package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atriumhq/atrium/internal/services/ai/storage"
)

type fakeUsageStore struct {
	appended []storage.UsageEventRecord
	err      error
	summary  storage.UsageSummary
}

func (f *fakeUsageStore) AppendUsageEvent(ctx context.Context, record storage.UsageEventRecord) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, record)
	return nil
}

func (f *fakeUsageStore) ListUsageEvents(ctx context.Context, filter storage.UsageFilter, pageSize int, pageToken string) ([]storage.UsageEventRecord, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.appended, "", nil
}

func (f *fakeUsageStore) SummarizeUsage(ctx context.Context, filter storage.UsageFilter) (storage.UsageSummary, error) {
	if f.err != nil {
		return storage.UsageSummary{}, f.err
	}
	return f.summary, nil
}

func TestValidateAction(t *testing.T) {
	valid := []string{"agency:scope:generate", "a:b:c"}
	for _, action := range valid {
		if err := ValidateAction(action); err != nil {
			t.Errorf("ValidateAction(%q) = %v, want nil", action, err)
		}
	}
	invalid := []string{"", "agency:scope", "agency:scope:generate:extra", "Agency:Scope:Generate", "agency:sc0pe:generate", "agency.scope.generate", " agency:scope:generate"}
	for _, action := range invalid {
		if err := ValidateAction(action); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("ValidateAction(%q) = %v, want %v", action, err, ErrInvalidAction)
		}
	}
}

func TestLedgerRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ids := func() (string, error) { return "evt-1", nil }

	t.Run("appends validated event", func(t *testing.T) {
		store := &fakeUsageStore{}
		ledger := NewLedgerForTest(store, clock, ids)
		event, err := ledger.Record(context.Background(), RecordInput{
			Action:      "agency:scope:generate",
			TenantID:    "tenant-1",
			UserID:      "user-1",
			ModuleID:    "agency",
			InputTokens: 100, OutputTokens: 200, TotalTokens: 300,
			Units:    50,
			Duration: time.Second,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if event.ID != "evt-1" || !event.CreatedAt.Equal(now) {
			t.Fatalf("unexpected event %+v", event)
		}
		if len(store.appended) != 1 || store.appended[0].Units != 50 {
			t.Fatalf("unexpected stored rows %+v", store.appended)
		}
	})

	t.Run("rejects malformed action", func(t *testing.T) {
		ledger := NewLedgerForTest(&fakeUsageStore{}, clock, ids)
		_, err := ledger.Record(context.Background(), RecordInput{Action: "agency.scope", UserID: "user-1"})
		if !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("Record error = %v, want %v", err, ErrInvalidAction)
		}
	})

	t.Run("rejects negative counts", func(t *testing.T) {
		ledger := NewLedgerForTest(&fakeUsageStore{}, clock, ids)
		_, err := ledger.Record(context.Background(), RecordInput{Action: "agency:scope:generate", UserID: "user-1", Units: -1})
		if !errors.Is(err, ErrNegativeValue) {
			t.Fatalf("Record error = %v, want %v", err, ErrNegativeValue)
		}
	})

	t.Run("rejects missing user", func(t *testing.T) {
		ledger := NewLedgerForTest(&fakeUsageStore{}, clock, ids)
		_, err := ledger.Record(context.Background(), RecordInput{Action: "agency:scope:generate"})
		if !errors.Is(err, ErrEmptyUserID) {
			t.Fatalf("Record error = %v, want %v", err, ErrEmptyUserID)
		}
	})

	t.Run("store fault surfaces", func(t *testing.T) {
		ledger := NewLedgerForTest(&fakeUsageStore{err: errors.New("disk gone")}, clock, ids)
		if _, err := ledger.Record(context.Background(), RecordInput{Action: "agency:scope:generate", UserID: "user-1"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestLedgerReadsValidateActionFilter(t *testing.T) {
	ledger := NewLedgerForTest(&fakeUsageStore{}, nil, nil)

	if _, _, err := ledger.History(context.Background(), Filter{UserID: "user-1", Action: "Agency:Scope:Generate"}, 10, ""); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("History error = %v, want %v", err, ErrInvalidAction)
	}
	if _, err := ledger.Summarize(context.Background(), Filter{UserID: "user-1", Action: "bad action"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Summarize error = %v, want %v", err, ErrInvalidAction)
	}
}

func TestLedgerSummarize(t *testing.T) {
	store := &fakeUsageStore{summary: storage.UsageSummary{
		Events:      2,
		TotalTokens: 400,
		Units:       80,
		ByAction: []storage.ActionSummary{
			{Action: "agency:scope:generate", Events: 1, TotalTokens: 300, Units: 50},
			{Action: "brief:compose:generate", Events: 1, TotalTokens: 100, Units: 30},
		},
	}}
	ledger := NewLedgerForTest(store, nil, nil)

	summary, err := ledger.Summarize(context.Background(), Filter{TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Events != 2 || summary.Units != 80 || len(summary.ByAction) != 2 {
		t.Fatalf("Summarize = %+v", summary)
	}
}
