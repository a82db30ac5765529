package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one <id>.json document per session under a storage
// directory. Every Save rewrites the full document; the file is the sole
// durability mechanism.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

// Save writes the full session document to <id>.json.
func (f *FileStore) Save(ctx context.Context, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.SessionID, err)
	}
	if err := os.WriteFile(f.path(s.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", s.SessionID, err)
	}
	return nil
}

// Load reads one session document, returning ErrNotFound when absent.
func (f *FileStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &s, nil
}

// List returns every parseable session document in the storage directory.
// Corrupt files are skipped with a diagnostic so one bad record cannot take
// down the whole listing.
func (f *FileStore) List(ctx context.Context) ([]*Session, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		s, err := f.Load(ctx, id)
		if err != nil {
			slog.Warn("skipping unreadable session record", "id", id, "error", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Close is a no-op; the file store holds no open handles.
func (f *FileStore) Close() error { return nil }
