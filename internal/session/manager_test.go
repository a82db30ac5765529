package session

import (
	"context"
	"errors"
	"testing"
)

// stubAggregator records one "happy" point per input, in submission order.
type stubAggregator struct{}

func (stubAggregator) Aggregate(ctx context.Context, inputs []InputItem, engine string) map[string][]Point {
	results := make(map[string][]Point)
	for _, item := range inputs {
		results["happy"] = append(results["happy"], Point{Timestamp: item.Timestamp, Value: 42})
	}
	return results
}

func newTestManager(t *testing.T) (*Manager, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewManager(store, stubAggregator{}), store
}

func TestStartSessionPersists(t *testing.T) {
	mgr, store := newTestManager(t)

	id, err := mgr.StartSession(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	loaded, err := store.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("load persisted session: %v", err)
	}
	if loaded.Status != StatusActive {
		t.Fatalf("expected active, got %q", loaded.Status)
	}
	if loaded.CreatedAt == "" {
		t.Fatal("expected created_at to be stamped")
	}
	if len(loaded.Inputs) != 0 {
		t.Fatalf("expected no inputs, got %d", len(loaded.Inputs))
	}
}

func TestAppendAccumulatesAcrossCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	count, err := mgr.AppendInputs(ctx, id, []InputItem{
		{Timestamp: 1.5, File: "a"},
		{Timestamp: 3.2, File: "b"},
	})
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	count, err = mgr.AppendInputs(ctx, id, []InputItem{{Timestamp: 5.8, File: "c"}})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	// Duplicate and out-of-order timestamps are accepted as-is.
	count, err = mgr.AppendInputs(ctx, id, []InputItem{{Timestamp: 1.5, File: "d"}})
	if err != nil {
		t.Fatalf("third append: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}
}

func TestAppendUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.AppendInputs(context.Background(), "no-such-id", []InputItem{{Timestamp: 1, File: "a"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinalizeUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Finalize(context.Background(), "no-such-id", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinalizeNoInputs(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = mgr.Finalize(ctx, id, "")
	if !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
}

func TestFinalizeSealsSession(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := mgr.AppendInputs(ctx, id, []InputItem{{Timestamp: 1.5, File: "a"}, {Timestamp: 3.2, File: "b"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := mgr.Finalize(ctx, id, "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	happy := results["happy"]
	if len(happy) != 2 {
		t.Fatalf("expected 2 points, got %d", len(happy))
	}
	if happy[0].Timestamp != 1.5 || happy[1].Timestamp != 3.2 {
		t.Fatalf("submission order not preserved: %+v", happy)
	}

	// The durable copy is sealed but still readable.
	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("load after finalize: %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", loaded.Status)
	}
	if loaded.CompletedAt == "" {
		t.Fatal("expected completed_at to be stamped")
	}
	if loaded.Results == nil {
		t.Fatal("expected persisted results")
	}

	// No further mutation after completion.
	_, err = mgr.AppendInputs(ctx, id, []InputItem{{Timestamp: 9, File: "z"}})
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestRestartContinuity(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	mgr := NewManager(store, stubAggregator{})

	id, err := mgr.StartSession(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := mgr.AppendInputs(ctx, id, []InputItem{{Timestamp: 1, File: "a"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A fresh manager over the same directory simulates a process restart:
	// the in-memory index is gone, the durable record is not.
	store2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	mgr2 := NewManager(store2, stubAggregator{})

	count, err := mgr2.AppendInputs(ctx, id, []InputItem{{Timestamp: 2, File: "b"}})
	if err != nil {
		t.Fatalf("append after restart: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2 after restart, got %d", count)
	}

	if _, err := mgr2.Finalize(ctx, id, ""); err != nil {
		t.Fatalf("finalize after restart: %v", err)
	}
}

func TestListSessionsOrderAndIdempotence(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	mgr := NewManager(store, stubAggregator{})
	ctx := context.Background()

	// Saved directly so created_at is controlled.
	for _, s := range []*Session{
		{SessionID: "older", Status: StatusActive, CreatedAt: "2026-08-30T08:00:00Z"},
		{SessionID: "newest", Status: StatusCompleted, CreatedAt: "2026-08-31T09:00:00Z",
			Inputs:  []InputItem{{Timestamp: 1, File: "a"}},
			Results: map[string][]Point{"happy": {{Timestamp: 1, Value: 1}}}},
		{SessionID: "middle", Status: StatusActive, CreatedAt: "2026-08-30T22:00:00Z",
			Inputs: []InputItem{{Timestamp: 1, File: "a"}, {Timestamp: 2, File: "b"}}},
	} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.SessionID, err)
		}
	}

	first, err := mgr.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(first))
	}

	order := []string{"newest", "middle", "older"}
	for i, want := range order {
		if first[i].SessionID != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, first[i].SessionID)
		}
	}
	if first[0].PhotoCount != 1 || !first[0].HasResults {
		t.Fatalf("unexpected newest summary: %+v", first[0])
	}
	if first[1].PhotoCount != 2 || first[1].HasResults {
		t.Fatalf("unexpected middle summary: %+v", first[1])
	}

	second, err := mgr.ListSessions(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("listing not idempotent: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if second[i] != first[i] {
			t.Fatalf("listing not idempotent at %d: %+v vs %+v", i, second[i], first[i])
		}
	}
}
