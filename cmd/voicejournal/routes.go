package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calmloop/voicejournal/internal/session"
)

const (
	// maxUploadBytes caps a single recording upload. Ten minutes of
	// 16 kHz mono 16-bit PCM is under 20 MB; 50 MB leaves headroom for
	// higher sample rates.
	maxUploadBytes = 50 << 20

	defaultListLimit = 20
)

type deps struct {
	svc       *session.Service
	wsHandler http.Handler
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/sessions", d.handleCreate)
	mux.HandleFunc("GET /api/sessions", d.handleList)
	mux.HandleFunc("GET /api/sessions/{id}", d.handleGet)
	mux.HandleFunc("POST /api/sessions/{id}/audio", d.handleUpload)
	mux.HandleFunc("GET /api/sessions/{id}/result", d.handleResult)
	mux.HandleFunc("GET /api/sessions/{id}/entries", d.handleEntries)
	mux.HandleFunc("DELETE /api/sessions/{id}", d.handleDelete)

	mux.Handle("GET /ws/sessions/{id}/live", d.wsHandler)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner       string `json:"owner"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}
	sess, err := d.svc.Create(r.Context(), req.Owner, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (d deps) handleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)
	sessions, err := d.svc.List(r.Context(), owner, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (d deps) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := d.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleUpload accepts the recording, answers 202, and runs analysis in the
// background. The caller polls the result endpoint for the terminal state.
func (d deps) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "audio too large", http.StatusRequestEntityTooLarge)
		return
	}

	clip, err := d.svc.Upload(r.Context(), id, r.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, err)
		return
	}

	// The request context dies with the response; processing carries on
	// under its own context.
	go d.svc.Process(context.Background(), id, clip)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": id,
		"status":     "PROCESSING",
		"duration":   clip.Duration(),
	})
}

func (d deps) handleResult(w http.ResponseWriter, r *http.Request) {
	sess, err := d.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Status.Terminal() {
		writeJSON(w, http.StatusOK, map[string]any{"status": sess.Status})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (d deps) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := d.svc.Entries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (d deps) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := d.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrStateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
