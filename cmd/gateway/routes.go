package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/emotion-gateway/internal/session"
)

// maxUploadMemory bounds the in-memory portion of a multipart append;
// larger parts spill to temp files.
const maxUploadMemory = 32 << 20

type deps struct {
	mgr       *session.Manager
	engines   []string
	uploadDir string
	wsHandler http.Handler
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("GET /start", d.handleStart)
	mux.HandleFunc("POST /{$}", d.handleUpload)
	mux.HandleFunc("GET /end", d.handleEnd)
	mux.HandleFunc("GET /sessions", d.handleSessions)
	mux.HandleFunc("GET /{$}", d.handleRoot)
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if d.wsHandler != nil {
		mux.Handle("/ws/ingest", d.wsHandler)
	}
}

func (d deps) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := d.mgr.StartSession(r.Context())
	if err != nil {
		slog.Error("start session", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"sessionId": id})
}

// uploadRequest is the JSON append payload.
type uploadRequest struct {
	SessionID string              `json:"sessionId"`
	Inputs    []session.InputItem `json:"inputs"`
}

func (d deps) handleUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var sessionID string
	var items []session.InputItem
	var err error

	if mediaType == "multipart/form-data" {
		sessionID, items, err = d.parseMultipartUpload(r)
	} else {
		sessionID, items, err = parseJSONUpload(r)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, err := d.mgr.AppendInputs(r.Context(), sessionID, items)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"message":     "Inputs uploaded successfully",
		"inputsCount": count,
	})
}

func parseJSONUpload(r *http.Request) (string, []session.InputItem, error) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, fmt.Errorf("malformed request body")
	}
	return req.SessionID, req.Inputs, nil
}

// parseMultipartUpload handles browser-style uploads: a sessionId field, a
// comma-separated timestamps field and repeated image file parts. Uploaded
// files are stored under the upload dir and referenced by path.
func (d deps) parseMultipartUpload(r *http.Request) (string, []session.InputItem, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return "", nil, fmt.Errorf("malformed multipart form")
	}

	sessionID := r.FormValue("sessionId")
	timestamps, err := parseTimestamps(r.FormValue("timestamps"))
	if err != nil {
		return "", nil, err
	}

	files := r.MultipartForm.File["files"]
	if len(files) != len(timestamps) {
		return "", nil, fmt.Errorf("got %d files for %d timestamps", len(files), len(timestamps))
	}

	items := make([]session.InputItem, 0, len(files))
	for i, fh := range files {
		if ct := fh.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
			return "", nil, fmt.Errorf("file %q is not an image (%s)", fh.Filename, ct)
		}
		path, err := d.storeUpload(fh)
		if err != nil {
			return "", nil, err
		}
		items = append(items, session.InputItem{Timestamp: timestamps[i], File: path})
	}
	return sessionID, items, nil
}

func parseTimestamps(field string) ([]float64, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("timestamps field is required")
	}
	parts := strings.Split(field, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		ts, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp %q", strings.TrimSpace(p))
		}
		out = append(out, ts)
	}
	return out, nil
}

func (d deps) storeUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(d.uploadDir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store upload %q: %w", fh.Filename, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("store upload %q: %w", fh.Filename, err)
	}
	return path, nil
}

func (d deps) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}
	engine := r.URL.Query().Get("engine")

	results, err := d.mgr.Finalize(r.Context(), sessionID, engine)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"sessionId": sessionID,
		"aspects":   results,
	})
}

func (d deps) handleSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := d.mgr.ListSessions(r.Context())
	if err != nil {
		slog.Error("list sessions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"sessions":       summaries,
		"total_sessions": len(summaries),
		"message":        fmt.Sprintf("Found %d session(s)", len(summaries)),
	})
}

func (d deps) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"message": "Emotion Analysis API",
		"version": "1.0.0",
		"engines": d.engines,
		"endpoints": map[string]string{
			"start":    "GET /start - Start new session",
			"upload":   "POST / - Upload timestamp and file pairs",
			"end":      "GET /end?sessionId={id} - End session and get results",
			"sessions": "GET /sessions - List all stored sessions",
			"health":   "GET /health - Health check",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeLifecycleError maps session lifecycle errors onto the status codes of
// the public API; anything else is a persistence failure surfaced as 500.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, session.ErrNotActive):
		http.Error(w, "Session is not active", http.StatusBadRequest)
	case errors.Is(err, session.ErrNoInputs):
		http.Error(w, "No inputs found for this session", http.StatusBadRequest)
	default:
		slog.Error("session operation failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
