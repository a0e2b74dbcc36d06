// Package dispatcher is the thin façade over internal/store that Workers
// call. It owns no in-memory queue itself — persistence is the queue — and
// exists only to centralize the small amount of policy the Store shouldn't
// know about (child queue inheritance, default retry policy selection).
// See engine specification §4.2.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/store"
)

func newChildSuffix() string {
	return uuid.New().String()
}

// Dispatcher exposes claim/complete/fail/recover/create-child to the
// Worker runtime, delegating all durability to the Store.
type Dispatcher struct {
	store  *store.Store
	policy *execution.RetryPolicy
}

// New constructs a Dispatcher backed by s, using policy for retry backoff
// (DefaultRetryPolicy if nil).
func New(s *store.Store, policy *execution.RetryPolicy) *Dispatcher {
	if policy == nil {
		policy = execution.DefaultRetryPolicy()
	}
	return &Dispatcher{store: s, policy: policy}
}

// ClaimBatch claims up to limit pending executions from queues for
// workerID. Never blocks; returns an empty slice when nothing is
// claimable (engine specification §4.2, "must return an empty batch
// rather than block").
func (d *Dispatcher) ClaimBatch(ctx context.Context, queues []string, workerID string, limit int) ([]*execution.Execution, error) {
	return d.store.ClaimBatch(ctx, queues, workerID, limit)
}

// CompleteBatch finishes a batch of successful executions.
func (d *Dispatcher) CompleteBatch(ctx context.Context, results map[string]execution.JSON) error {
	return d.store.CompleteBatch(ctx, results)
}

// Fail records a failed attempt, retrying under the Dispatcher's policy
// when retry is true and the attempt budget allows it.
func (d *Dispatcher) Fail(ctx context.Context, id string, err *execution.Error, retry bool) error {
	return d.store.Fail(ctx, id, err, retry, d.policy)
}

// RecoverDead reclaims executions whose claiming worker has stopped
// heartbeating for longer than timeout.
func (d *Dispatcher) RecoverDead(ctx context.Context, timeout time.Duration) (int, error) {
	return d.store.RecoverDead(ctx, timeout)
}

// CreateChildExecution wraps insert_execution for a workflow's call_task
// statement: it stamps the parent link and idempotency key, and inherits
// the parent's queue unless overridden (engine specification §4.2,
// "A child execution inherits its parent workflow's queue unless
// overridden").
func (d *Dispatcher) CreateChildExecution(
	ctx context.Context,
	parent *execution.Execution,
	statementIndex int,
	taskName string,
	queueOverride string,
	priorityOverride int,
	maxRetriesOverride int,
	inputs execution.JSON,
) (string, error) {
	queue := parent.Queue
	if queueOverride != "" {
		queue = queueOverride
	}
	priority := parent.Priority
	if priorityOverride != 0 {
		priority = priorityOverride
	}
	retries := 3
	if maxRetriesOverride != 0 {
		retries = maxRetriesOverride
	}

	child := &execution.Execution{
		ID:           "task_" + newChildSuffix(),
		Kind:         execution.KindTask,
		FunctionName: taskName,
		Queue:        queue,
		Status:       execution.StatusPending,
		Inputs:       inputs,
		MaxRetries:   retries,
		Priority:     priority,
	}

	childID, err := d.store.CreateChildExecution(ctx, parent.ID, statementIndex, 0, child)
	if err != nil {
		return "", fmt.Errorf("dispatcher: create child execution: %w", err)
	}
	return childID, nil
}

// StartChildWorkflow is CreateChildExecution's workflow-kind counterpart,
// used when a call_task statement's target name resolves to a registered
// workflow instead of a task (composition: workflows calling workflows).
func (d *Dispatcher) StartChildWorkflow(
	ctx context.Context,
	parent *execution.Execution,
	statementIndex int,
	workflowName string,
	queueOverride string,
	inputs execution.JSON,
) (string, error) {
	queue := parent.Queue
	if queueOverride != "" {
		queue = queueOverride
	}

	child := &execution.Execution{
		ID:           "wf_" + newChildSuffix(),
		Kind:         execution.KindWorkflow,
		FunctionName: workflowName,
		Queue:        queue,
		Status:       execution.StatusPending,
		Inputs:       inputs,
		MaxRetries:   1,
		Priority:     parent.Priority,
	}

	childID, err := d.store.CreateChildExecution(ctx, parent.ID, statementIndex, 0, child)
	if err != nil {
		return "", fmt.Errorf("dispatcher: start child workflow: %w", err)
	}
	return childID, nil
}

// SuspendWorkflow persists the context update and suspends a running
// workflow execution.
func (d *Dispatcher) SuspendWorkflow(ctx context.Context, id string, update store.WorkflowContextUpdate) error {
	return d.store.SuspendWorkflow(ctx, id, update)
}

// GetWorkflowContext loads the replay state for a workflow execution.
func (d *Dispatcher) GetWorkflowContext(ctx context.Context, id string) (*store.WorkflowContext, error) {
	return d.store.GetWorkflowContext(ctx, id)
}

// SendSignal delivers a signal, resuming the target workflow in the same
// transaction if it is suspended awaiting exactly that signal.
func (d *Dispatcher) SendSignal(ctx context.Context, workflowID, name string, payload execution.JSON) (string, error) {
	return d.store.SendSignal(ctx, workflowID, name, payload)
}

// PendingSignal checks for an already-delivered, unconsumed signal.
func (d *Dispatcher) PendingSignal(ctx context.Context, workflowID, name string) (*execution.JSON, string, error) {
	return d.store.PendingSignal(ctx, workflowID, name)
}

// GetExecution fetches a single execution by id.
func (d *Dispatcher) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	return d.store.GetExecution(ctx, id)
}

// ListExecutions lists executions matching f.
func (d *Dispatcher) ListExecutions(ctx context.Context, f store.ListFilter) ([]*execution.Execution, error) {
	return d.store.ListExecutions(ctx, f)
}

// CancelExecution cancels a pending or suspended execution.
func (d *Dispatcher) CancelExecution(ctx context.Context, id string) error {
	return d.store.CancelExecution(ctx, id)
}

// InsertExecution enqueues a brand-new top-level task or workflow
// execution (no parent), used by the client surface's StartWorkflow and
// QueueTask.
func (d *Dispatcher) InsertExecution(ctx context.Context, e *execution.Execution) error {
	return d.store.InsertExecution(ctx, e)
}

// UpsertHeartbeat records a worker's liveness.
func (d *Dispatcher) UpsertHeartbeat(ctx context.Context, workerID string, queues []string, metadata map[string]interface{}) error {
	return d.store.UpsertHeartbeat(ctx, workerID, queues, metadata)
}

// DeregisterWorker marks a worker stopped and releases its claimed work.
func (d *Dispatcher) DeregisterWorker(ctx context.Context, workerID string) error {
	return d.store.DeregisterWorker(ctx, workerID)
}

// ListWorkers returns every worker's last heartbeat row.
func (d *Dispatcher) ListWorkers(ctx context.Context) ([]*store.WorkerHeartbeat, error) {
	return d.store.ListWorkers(ctx)
}

// GetWorker returns one worker's last heartbeat row.
func (d *Dispatcher) GetWorker(ctx context.Context, workerID string) (*store.WorkerHeartbeat, error) {
	return d.store.GetWorker(ctx, workerID)
}
