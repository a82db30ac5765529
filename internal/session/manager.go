package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/emotion-gateway/internal/metrics"
)

// Aggregator folds a session's ordered input list into per-emotion series.
// Per-item classification failures are absorbed inside the implementation;
// Aggregate never fails once invoked.
type Aggregator interface {
	Aggregate(ctx context.Context, inputs []InputItem, engine string) map[string][]Point
}

// Manager owns the session lifecycle: an in-memory index of active sessions
// backed by a durable Store. The index is a cache of the persisted copy; a
// record loaded from the store is re-registered before use, so sessions
// survive process restarts as long as the stored record exists.
//
// Mutations on one session id are serialized through a per-id mutex, so
// concurrent appends against the same session cannot interleave.
type Manager struct {
	store Store
	agg   Aggregator

	mu    sync.Mutex
	index map[string]*Session
	locks map[string]*sync.Mutex
}

// NewManager creates a manager over the given store and aggregator.
func NewManager(store Store, agg Aggregator) *Manager {
	return &Manager{
		store: store,
		agg:   agg,
		index: make(map[string]*Session),
		locks: make(map[string]*sync.Mutex),
	}
}

// lockSession returns the per-id mutex, creating it on first use.
func (m *Manager) lockSession(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// resolve returns the session from the index, falling back to the store and
// re-registering on a hit. Caller must hold the session's per-id mutex.
func (m *Manager) resolve(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.index[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.index[id] = s
	m.mu.Unlock()
	metrics.SessionsActive.Inc()
	return s, nil
}

// StartSession creates a fresh active session, registers it in the index and
// persists it.
func (m *Manager) StartSession(ctx context.Context) (string, error) {
	s := &Session{
		SessionID: uuid.NewString(),
		Status:    StatusActive,
		Inputs:    []InputItem{},
		Results:   nil,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := m.store.Save(ctx, s); err != nil {
		return "", fmt.Errorf("persist new session: %w", err)
	}

	m.mu.Lock()
	m.index[s.SessionID] = s
	m.mu.Unlock()

	metrics.SessionsStarted.Inc()
	metrics.SessionsActive.Inc()
	slog.Info("session started", "session_id", s.SessionID)
	return s.SessionID, nil
}

// AppendInputs appends items to an active session in the order supplied and
// returns the new total input count. Fails with ErrNotFound for unknown ids
// and ErrNotActive for completed sessions.
func (m *Manager) AppendInputs(ctx context.Context, id string, items []InputItem) (int, error) {
	l := m.lockSession(id)
	l.Lock()
	defer l.Unlock()

	s, err := m.resolve(ctx, id)
	if err != nil {
		return 0, err
	}
	if s.Status != StatusActive {
		return 0, ErrNotActive
	}

	s.Inputs = append(s.Inputs, items...)
	if err := m.store.Save(ctx, s); err != nil {
		return 0, fmt.Errorf("persist session %s: %w", id, err)
	}

	metrics.InputsReceived.Add(float64(len(items)))
	slog.Info("inputs appended", "session_id", id, "appended", len(items), "total", len(s.Inputs))
	return len(s.Inputs), nil
}

// Finalize runs the aggregator over the session's full input list, seals the
// session and evicts it from the index. The stored record remains readable
// but accepts no further mutation. Classification failures never surface;
// finalize succeeds whenever the session has at least one input.
func (m *Manager) Finalize(ctx context.Context, id, engine string) (map[string][]Point, error) {
	l := m.lockSession(id)
	l.Lock()
	defer l.Unlock()

	s, err := m.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(s.Inputs) == 0 {
		return nil, ErrNoInputs
	}

	start := time.Now()
	results := m.agg.Aggregate(ctx, s.Inputs, engine)
	metrics.FinalizeDuration.Observe(time.Since(start).Seconds())

	s.Results = results
	s.Status = StatusCompleted
	s.CompletedAt = time.Now().UTC().Format(time.RFC3339)

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session %s: %w", id, err)
	}

	// The per-id mutex entry stays behind so late callers still serialize
	// against this finalize before observing the completed status.
	m.mu.Lock()
	if _, ok := m.index[id]; ok {
		delete(m.index, id)
		metrics.SessionsActive.Dec()
	}
	m.mu.Unlock()

	metrics.SessionsFinalized.Inc()
	slog.Info("session finalized", "session_id", id, "inputs", len(s.Inputs), "emotions", len(results))
	return results, nil
}

// ListSessions enumerates all durably persisted sessions, newest first.
// Ordering compares the stored created_at strings directly; the records
// always hold RFC3339 UTC, which sorts lexicographically.
func (m *Manager) ListSessions(ctx context.Context) ([]Summary, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, Summary{
			SessionID:  s.SessionID,
			PhotoCount: len(s.Inputs),
			CreatedAt:  s.CreatedAt,
			HasResults: s.Results != nil,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt != summaries[j].CreatedAt {
			return summaries[i].CreatedAt > summaries[j].CreatedAt
		}
		return summaries[i].SessionID > summaries[j].SessionID
	})
	return summaries, nil
}
