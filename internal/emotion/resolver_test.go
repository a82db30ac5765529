package emotion

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePayloadDataURI(t *testing.T) {
	want := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(want)

	got, err := ResolvePayload(uri)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolvePayloadDataURIMissingSeparator(t *testing.T) {
	if _, err := ResolvePayload("data:image/jpeg;base64"); err == nil {
		t.Fatal("expected error for uri without payload separator")
	}
}

func TestResolvePayloadBadBase64(t *testing.T) {
	if _, err := ResolvePayload("data:image/jpeg;base64,!!!not-base64!!!"); err == nil {
		t.Fatal("expected error for invalid base64 payload")
	}
}

func TestResolvePayloadStoredFile(t *testing.T) {
	want := []byte("jpeg bytes")
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := ResolvePayload(path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolvePayloadMissingFile(t *testing.T) {
	if _, err := ResolvePayload(filepath.Join(t.TempDir(), "gone.jpg")); err == nil {
		t.Fatal("expected error for missing stored file")
	}
}
