// Package execution defines the durable record at the heart of the engine:
// the Execution, its Kind and Status, and the structured Error it carries
// on failure. Tasks and workflows are both Executions; the Kind decides
// who interprets the payload.
package execution

import (
	"encoding/json"
	"time"
)

// Kind distinguishes a one-shot task from a multi-step workflow.
type Kind string

const (
	KindTask     Kind = "task"
	KindWorkflow Kind = "workflow"
)

func (k Kind) Valid() bool {
	return k == KindTask || k == KindWorkflow
}

// Status is the lifecycle state of an Execution. The state machine is
// pending -> running -> {completed, failed} for tasks;
// pending -> running -> suspended -> pending -> ... -> {completed, failed}
// for workflows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusSuspended, StatusCompleted, StatusFailed:
		return Status(s)
	default:
		return StatusPending
	}
}

// IsTerminal reports whether s is a final state with no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorKind classifies a failure for retry policy purposes. See §7 of the
// engine specification for the full taxonomy.
type ErrorKind string

const (
	ErrorUnknownFunction ErrorKind = "UnknownFunction" // permanent
	ErrorInputValidation ErrorKind = "InputValidation" // permanent
	ErrorTimeout         ErrorKind = "Timeout"          // retryable
	ErrorCancelled       ErrorKind = "Cancelled"        // permanent
	ErrorNonDeterminism  ErrorKind = "NonDeterminism"   // permanent, workflow-only
	ErrorTransient       ErrorKind = "Transient"        // retryable (catch-all)
	ErrorIllegalTransition ErrorKind = "IllegalTransition" // internal, halts caller
)

// Retryable reports whether an error of this kind should be retried,
// subject to the execution's remaining attempt budget.
func (k ErrorKind) Retryable() bool {
	return k == ErrorTimeout || k == ErrorTransient
}

// Error is the structured failure record persisted on a failed or retrying
// Execution.
type Error struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	Trace   string    `json:"trace,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

// JSON is a free-form JSON-serialisable value: workflow inputs, outputs,
// locals, and signal payloads are all represented this way, matching the
// "structured value" language used throughout the engine specification.
type JSON = map[string]interface{}

// Execution is the primary durable record: one attempt at running a task
// or workflow. Field invariants are enforced by the store, not by this
// type — this is a plain data carrier.
type Execution struct {
	ID               string     `json:"id"`
	Kind             Kind       `json:"kind"`
	FunctionName     string     `json:"function_name"`
	Queue            string     `json:"queue"`
	Status           Status     `json:"status"`
	Inputs           JSON       `json:"inputs"`
	Output           JSON       `json:"output,omitempty"`
	Error            *Error     `json:"error,omitempty"`
	Attempt          int        `json:"attempt"`
	MaxRetries       int        `json:"max_retries"`
	ParentWorkflowID *string    `json:"parent_workflow_id,omitempty"`
	ClaimedBy        *string    `json:"claimed_by,omitempty"`
	Priority         int        `json:"priority"`
	TimeoutSeconds   *int       `json:"timeout_seconds,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ClaimedAt        *time.Time `json:"claimed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	AvailableAt      time.Time  `json:"available_at"`
}

// CanRetry reports whether another attempt is permitted by the retry budget.
func (e *Execution) CanRetry() bool {
	return e.Attempt+1 < e.MaxRetries
}

// IsWorkflow is a convenience guard used throughout the worker and engine.
func (e *Execution) IsWorkflow() bool { return e.Kind == KindWorkflow }

// ToJSON serialises the Execution, primarily for log fields and the HTTP API.
func (e *Execution) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
