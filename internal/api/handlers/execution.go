package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/store"
)

// ExecutionHandler exposes the engine's introspection surface over HTTP:
// starting tasks and workflows, reading an execution's current state,
// listing, cancelling, and sending signals. It is a thin wrapper over the
// Dispatcher — no state lives here that the Store doesn't already own.
type ExecutionHandler struct {
	dispatcher *dispatcher.Dispatcher
}

// NewExecutionHandler constructs an ExecutionHandler.
func NewExecutionHandler(d *dispatcher.Dispatcher) *ExecutionHandler {
	return &ExecutionHandler{dispatcher: d}
}

// QueueTaskRequest is the request body for POST /v1/tasks.
type QueueTaskRequest struct {
	FunctionName   string         `json:"function_name"`
	Queue          string         `json:"queue"`
	Inputs         execution.JSON `json:"inputs"`
	Priority       int            `json:"priority"`
	MaxRetries     int            `json:"max_retries"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty"`
}

// QueueTask handles POST /v1/tasks, enqueuing a new top-level task.
func (h *ExecutionHandler) QueueTask(w http.ResponseWriter, r *http.Request) {
	var req QueueTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FunctionName == "" {
		respondError(w, http.StatusBadRequest, "function_name is required")
		return
	}

	queue := req.Queue
	if queue == "" {
		queue = "default"
	}
	maxRetries := req.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	e := &execution.Execution{
		ID:             "task_" + uuid.New().String(),
		Kind:           execution.KindTask,
		FunctionName:   req.FunctionName,
		Queue:          queue,
		Status:         execution.StatusPending,
		Inputs:         req.Inputs,
		MaxRetries:     maxRetries,
		Priority:       req.Priority,
		TimeoutSeconds: req.TimeoutSeconds,
	}

	if err := h.dispatcher.InsertExecution(r.Context(), e); err != nil {
		logger.Error().Err(err).Str("function_name", req.FunctionName).Msg("failed to enqueue task")
		respondError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	logger.Info().Str("execution_id", e.ID).Str("function_name", e.FunctionName).Msg("task queued")
	respondJSON(w, http.StatusCreated, e)
}

// StartWorkflowRequest is the request body for POST /v1/workflows.
type StartWorkflowRequest struct {
	FunctionName   string         `json:"function_name"`
	Queue          string         `json:"queue"`
	Inputs         execution.JSON `json:"inputs"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty"`
}

// StartWorkflow handles POST /v1/workflows, enqueuing a new top-level
// workflow execution.
func (h *ExecutionHandler) StartWorkflow(w http.ResponseWriter, r *http.Request) {
	var req StartWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FunctionName == "" {
		respondError(w, http.StatusBadRequest, "function_name is required")
		return
	}

	queue := req.Queue
	if queue == "" {
		queue = "default"
	}

	e := &execution.Execution{
		ID:             "wf_" + uuid.New().String(),
		Kind:           execution.KindWorkflow,
		FunctionName:   req.FunctionName,
		Queue:          queue,
		Status:         execution.StatusPending,
		Inputs:         req.Inputs,
		MaxRetries:     1,
		TimeoutSeconds: req.TimeoutSeconds,
	}

	if err := h.dispatcher.InsertExecution(r.Context(), e); err != nil {
		logger.Error().Err(err).Str("function_name", req.FunctionName).Msg("failed to start workflow")
		respondError(w, http.StatusInternalServerError, "failed to start workflow")
		return
	}

	logger.Info().Str("execution_id", e.ID).Str("function_name", e.FunctionName).Msg("workflow started")
	respondJSON(w, http.StatusCreated, e)
}

// Get handles GET /v1/executions/{executionID}.
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	if id == "" {
		respondError(w, http.StatusBadRequest, "execution ID is required")
		return
	}

	e, err := h.dispatcher.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "execution not found")
			return
		}
		logger.Error().Err(err).Str("execution_id", id).Msg("failed to get execution")
		respondError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	respondJSON(w, http.StatusOK, e)
}

// Cancel handles DELETE /v1/executions/{executionID}.
func (h *ExecutionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	if id == "" {
		respondError(w, http.StatusBadRequest, "execution ID is required")
		return
	}

	if err := h.dispatcher.CancelExecution(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "execution not found")
			return
		}
		if errors.Is(err, store.ErrIllegalTransition) {
			respondError(w, http.StatusConflict, "execution cannot be cancelled in its current status")
			return
		}
		logger.Error().Err(err).Str("execution_id", id).Msg("failed to cancel execution")
		respondError(w, http.StatusInternalServerError, "failed to cancel execution")
		return
	}

	logger.Info().Str("execution_id", id).Msg("execution cancelled")
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /v1/executions.
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.ListFilter{
		Queue:  q.Get("queue"),
		Status: execution.Status(q.Get("status")),
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			f.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			f.Offset = n
		}
	}

	executions, err := h.dispatcher.ListExecutions(r.Context(), f)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list executions")
		respondError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"executions": executions,
		"count":      len(executions),
	})
}

// SendSignalRequest is the request body for POST
// /v1/workflows/{workflowID}/signals/{signalName}.
type SendSignalRequest struct {
	Payload execution.JSON `json:"payload"`
}

// SendSignal handles POST /v1/workflows/{workflowID}/signals/{signalName}.
func (h *ExecutionHandler) SendSignal(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	signalName := chi.URLParam(r, "signalName")
	if workflowID == "" || signalName == "" {
		respondError(w, http.StatusBadRequest, "workflow ID and signal name are required")
		return
	}

	var req SendSignalRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	signalID, err := h.dispatcher.SendSignal(r.Context(), workflowID, signalName, req.Payload)
	if err != nil {
		logger.Error().Err(err).Str("workflow_id", workflowID).Str("signal", signalName).Msg("failed to send signal")
		respondError(w, http.StatusInternalServerError, "failed to send signal")
		return
	}

	logger.Info().Str("workflow_id", workflowID).Str("signal", signalName).Str("signal_id", signalID).Msg("signal sent")
	respondJSON(w, http.StatusAccepted, map[string]string{"signal_id": signalID})
}

// ErrorResponse is the JSON body returned for a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
