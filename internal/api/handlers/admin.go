package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/store"
)

// AdminHandler exposes operational introspection and recovery actions
// that sit above a single Execution: worker liveness and the manual
// recover_dead trigger of engine specification §4.1. Like
// ExecutionHandler, it is a thin wrapper over the Dispatcher — no state
// lives here that the Store doesn't already own.
type AdminHandler struct {
	dispatcher       *dispatcher.Dispatcher
	heartbeatTimeout time.Duration
}

// NewAdminHandler constructs an AdminHandler. heartbeatTimeout is the
// duration the manual POST /v1/admin/recover endpoint passes to
// recover_dead; the Worker's own Recoverer sub-loop runs the same
// operation on a timer, this endpoint is for operators who want to force
// a reclaim out of band.
func NewAdminHandler(d *dispatcher.Dispatcher, heartbeatTimeout time.Duration) *AdminHandler {
	return &AdminHandler{dispatcher: d, heartbeatTimeout: heartbeatTimeout}
}

// ListWorkers handles GET /v1/admin/workers.
func (h *AdminHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.dispatcher.ListWorkers(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("admin: failed to list workers")
		h.respondError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workers": workers,
		"count":   len(workers),
	})
}

// GetWorker handles GET /v1/admin/workers/{workerID}.
func (h *AdminHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if workerID == "" {
		h.respondError(w, http.StatusBadRequest, "worker ID is required")
		return
	}

	wk, err := h.dispatcher.GetWorker(r.Context(), workerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "worker not found")
			return
		}
		logger.Error().Err(err).Str("worker_id", workerID).Msg("admin: failed to get worker")
		h.respondError(w, http.StatusInternalServerError, "failed to get worker")
		return
	}

	h.respondJSON(w, http.StatusOK, wk)
}

// RecoverDeadResponse is the response body for POST /v1/admin/recover.
type RecoverDeadResponse struct {
	Recovered int `json:"recovered"`
}

// RecoverDead handles POST /v1/admin/recover: forces an out-of-band run
// of recover_dead (engine specification §4.1), reclaiming every
// Execution whose claiming worker has stopped heartbeating for longer
// than the configured heartbeat timeout.
func (h *AdminHandler) RecoverDead(w http.ResponseWriter, r *http.Request) {
	recovered, err := h.dispatcher.RecoverDead(r.Context(), h.heartbeatTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("admin: recover dead failed")
		h.respondError(w, http.StatusInternalServerError, "failed to recover dead workers")
		return
	}

	logger.Info().Int("recovered", recovered).Msg("admin: recovered orphaned executions")
	h.respondJSON(w, http.StatusOK, RecoverDeadResponse{Recovered: recovered})
}

// Health handles GET /v1/admin/health. It is a liveness probe only — it
// does not touch the Store, so it stays up even if the database is
// briefly unreachable; readiness is inferred from ListWorkers or
// GetExecution erroring instead.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
