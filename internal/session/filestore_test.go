package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreSaveLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	s := &Session{
		SessionID: "sess-1",
		Status:    StatusActive,
		Inputs: []InputItem{
			{Timestamp: 1.5, File: "data:image/jpeg;base64,aGk="},
			{Timestamp: 3.2, File: "/tmp/photo.jpg"},
		},
		CreatedAt: "2026-08-31T12:00:00Z",
	}

	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SessionID != s.SessionID {
		t.Fatalf("expected id %q, got %q", s.SessionID, loaded.SessionID)
	}
	if loaded.Status != StatusActive {
		t.Fatalf("expected status %q, got %q", StatusActive, loaded.Status)
	}
	if len(loaded.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(loaded.Inputs))
	}
	if loaded.Inputs[0].Timestamp != 1.5 || loaded.Inputs[1].Timestamp != 3.2 {
		t.Fatalf("input order not preserved: %+v", loaded.Inputs)
	}
	if loaded.Results != nil {
		t.Fatalf("expected nil results, got %v", loaded.Results)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	_, err = store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreSaveRewritesWholesale(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	s := &Session{SessionID: "sess-1", Status: StatusActive, CreatedAt: "2026-08-31T12:00:00Z"}
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.Status = StatusCompleted
	s.CompletedAt = "2026-08-31T12:05:00Z"
	s.Results = map[string][]Point{"happy": {{Timestamp: 1.5, Value: 90}}}
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("resave: %v", err)
	}

	loaded, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", loaded.Status)
	}
	if len(loaded.Results["happy"]) != 1 || loaded.Results["happy"][0].Value != 90 {
		t.Fatalf("results not rewritten: %v", loaded.Results)
	}
}

func TestFileStoreListSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	good := &Session{SessionID: "good", Status: StatusActive, CreatedAt: "2026-08-31T12:00:00Z"}
	if err := store.Save(context.Background(), good); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	sessions, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].SessionID != "good" {
		t.Fatalf("expected session %q, got %q", "good", sessions[0].SessionID)
	}
}
