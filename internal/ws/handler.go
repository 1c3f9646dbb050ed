// Package ws carries the live sentiment side channel. While a session is
// still RECORDING, the client streams sentiment frames it computed on
// device; the server appends them to the session timeline verbatim and
// acks each one. Frames for a session in any other state are rejected.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/calmloop/voicejournal/internal/models"
	"github.com/calmloop/voicejournal/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler manages live snapshot connections with admission control.
type Handler struct {
	svc *session.Service
	sem chan struct{}
}

// NewHandler creates a handler backed by the session service. maxConcurrent
// bounds simultaneous live connections; zero or negative picks a default.
func NewHandler(svc *session.Service, maxConcurrent int) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	return &Handler{svc: svc, sem: make(chan struct{}, maxConcurrent)}
}

// ack is sent back after every frame, accepted or not.
type ack struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// ServeHTTP upgrades the connection and runs the snapshot loop.
// Returns 503 at max concurrent capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.PathValue("id")
	if _, err := h.svc.Get(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
		} else {
			http.Error(w, "lookup failed", http.StatusInternalServerError)
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("live channel opened", "session_id", sessionID)
	h.runLoop(r.Context(), conn, sessionID)
	slog.Info("live channel closed", "session_id", sessionID)
}

func (h *Handler) runLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	send := newFrameSender(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "session_id", sessionID, "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var snap models.LiveSnapshot
		if err = json.Unmarshal(data, &snap); err != nil {
			send(ack{Type: "error", Error: "malformed snapshot"})
			continue
		}

		if err = h.svc.AppendLiveSnapshot(ctx, sessionID, snap); err != nil {
			send(ack{Type: "error", Timestamp: snap.Timestamp, Error: err.Error()})
			// A state conflict means the session moved past RECORDING
			// and no further frames can land.
			if errors.Is(err, session.ErrStateConflict) {
				return
			}
			continue
		}
		send(ack{Type: "ack", Timestamp: snap.Timestamp})
	}
}

func newFrameSender(conn *websocket.Conn) func(ack) {
	var mu sync.Mutex
	return func(a ack) {
		mu.Lock()
		defer mu.Unlock()
		payload, err := json.Marshal(a)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("write frame", "error", err)
		}
	}
}
