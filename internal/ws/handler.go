// Package ws provides a streaming append path: capture clients hold one
// websocket open and push timestamped frames into a session one at a time.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/emotion-gateway/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler manages websocket ingest connections with admission control.
type Handler struct {
	mgr *session.Manager
	sem chan struct{}
}

// NewHandler creates an ingest handler over the session manager with a
// concurrent-connection limit.
func NewHandler(mgr *session.Manager, maxConcurrent int) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	return &Handler{
		mgr: mgr,
		sem: make(chan struct{}, maxConcurrent),
	}
}

// ingestMetadata is the first text frame sent by the client.
type ingestMetadata struct {
	SessionID string `json:"sessionId"`
}

// ingestFrame is one input item pushed by the client.
type ingestFrame struct {
	Timestamp float64 `json:"timestamp"`
	File      string  `json:"file"`
}

type ingestAck struct {
	InputsCount int    `json:"inputsCount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ServeHTTP upgrades the connection and appends each pushed frame to the
// session named in the metadata frame. Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.runIngest(r.Context(), conn)
}

func (h *Handler) runIngest(ctx context.Context, conn *websocket.Conn) {
	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read ingest metadata", "error", err)
		return
	}

	slog.Info("ingest stream opened", "session_id", meta.SessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("ingest stream read", "session_id", meta.SessionID, "error", err)
			}
			return
		}

		var frame ingestFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			conn.WriteJSON(ingestAck{Error: "malformed frame"})
			continue
		}

		count, err := h.mgr.AppendInputs(ctx, meta.SessionID, []session.InputItem{
			{Timestamp: frame.Timestamp, File: frame.File},
		})
		if err != nil {
			conn.WriteJSON(ingestAck{Error: appendErrorMessage(err)})
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrNotActive) {
				return
			}
			continue
		}

		if err := conn.WriteJSON(ingestAck{InputsCount: count}); err != nil {
			slog.Warn("ingest ack write", "session_id", meta.SessionID, "error", err)
			return
		}
	}
}

func readMetadata(conn *websocket.Conn) (*ingestMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta ingestMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func appendErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session not found"
	case errors.Is(err, session.ErrNotActive):
		return "session is not active"
	default:
		return "append failed"
	}
}
