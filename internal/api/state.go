package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/session"
	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes caps a POST /state body.
const MaxBodyBytes = 10000

// ErrPayloadTooLarge is returned for bodies over MaxBodyBytes.
var ErrPayloadTooLarge = errors.New("payload too large")

// Submitter accepts normalized sessions.
type Submitter interface {
	Submit(s domain.Session) bool
}

// StateHandler accepts session updates over HTTP.
type StateHandler struct {
	sink   Submitter
	now    func() time.Time
	logger *slog.Logger
}

// NewStateHandler creates a handler that submits accepted updates to sink.
func NewStateHandler(sink Submitter, now func() time.Time, logger *slog.Logger) *StateHandler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateHandler{sink: sink, now: now, logger: logger}
}

// RegisterRoutes registers the listener routes.
func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/state", h.PostState)
}

// Health reports that the listener is up.
func (h *StateHandler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok", "app": "clawdachi"})
}

// PostState normalizes the body and submits it.
func (h *StateHandler) PostState(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if errors.Is(err, ErrPayloadTooLarge) {
		h.logger.Warn("[REMOTE] Rejected oversized payload", "remote_addr", r.RemoteAddr, "limit", MaxBodyBytes)
		w.Header().Set("Connection", "close")
		Error(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}
	if err != nil {
		h.logger.Warn("[REMOTE] Failed to read body", "remote_addr", r.RemoteAddr, "error", err)
		Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := session.Normalize(body, session.RemoteOptions(h.now))
	if err != nil {
		h.logger.Warn("[REMOTE] Rejected payload", "remote_addr", r.RemoteAddr, "error", err)
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			Error(w, http.StatusBadRequest, fmt.Sprintf("Missing %s", verr.Field))
			return
		}
		Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	changed := h.sink.Submit(s)
	h.logger.Debug("[REMOTE] State received",
		"session_id", s.SessionID,
		"status", s.Status,
		"changed", changed)

	JSON(w, http.StatusOK, map[string]bool{"success": true, "changed": changed})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.ContentLength > MaxBodyBytes {
		return nil, ErrPayloadTooLarge
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrPayloadTooLarge
		}
		return nil, err
	}
	return body, nil
}
