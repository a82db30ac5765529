// Package session owns the lifecycle and persistence of emotion-analysis
// sessions: creation, input append, finalization and enumeration.
package session

import (
	"context"
	"errors"
)

// Session statuses. A session is mutable only while active; completed is terminal.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

var (
	// ErrNotFound indicates no session record exists for the id, in memory or on disk.
	ErrNotFound = errors.New("session not found")
	// ErrNotActive indicates a mutation was attempted on a completed session.
	ErrNotActive = errors.New("session is not active")
	// ErrNoInputs indicates finalization was requested before any inputs arrived.
	ErrNoInputs = errors.New("no inputs found for this session")
)

// Point is one (timestamp, score) entry in an emotion series.
type Point struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

// InputItem is one timestamped visual sample. File is either a data URI
// carrying the image inline or a path to a previously stored upload.
// Timestamps are client-supplied offsets in seconds; duplicates and
// out-of-order values are accepted as-is.
type InputItem struct {
	Timestamp float64 `json:"timestamp"`
	File      string  `json:"file"`
}

// Session is one analysis run. The JSON field names are the wire format
// persisted by the store; CreatedAt and CompletedAt hold RFC3339 UTC
// timestamps so that string comparison orders them chronologically.
type Session struct {
	SessionID   string             `json:"sessionId"`
	Status      string             `json:"status"`
	Inputs      []InputItem        `json:"inputs"`
	Results     map[string][]Point `json:"results"`
	CreatedAt   string             `json:"created_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
}

// Summary is the per-session record returned by ListSessions.
type Summary struct {
	SessionID  string `json:"sessionId"`
	PhotoCount int    `json:"photo_count"`
	CreatedAt  string `json:"created_at"`
	HasResults bool   `json:"has_results"`
}

// Store persists session records. Implementations rewrite the whole record
// on every Save; Load returns ErrNotFound for unknown ids; List skips
// records that fail to parse rather than aborting the enumeration.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Close() error
}
