package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
)

// InsertExecution persists a new Execution row. Fails with ErrConflict if
// id is already taken (engine specification §4.1).
func (s *Store) InsertExecution(ctx context.Context, e *execution.Execution) error {
	inputs, err := json.Marshal(e.Inputs)
	if err != nil {
		return fmt.Errorf("store: marshal inputs: %w", err)
	}

	availableAt := e.AvailableAt
	if availableAt.IsZero() {
		availableAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO executions (
			id, kind, function_name, queue, status, inputs,
			attempt, max_retries, parent_workflow_id, priority,
			timeout_seconds, available_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.ID, string(e.Kind), e.FunctionName, e.Queue, string(e.Status), inputs,
		e.Attempt, e.MaxRetries, e.ParentWorkflowID, e.Priority,
		e.TimeoutSeconds, availableAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("store: insert execution: %w", err)
	}

	if e.Status == execution.StatusPending {
		if nerr := s.notify(ctx, e.Queue); nerr != nil {
			logNotifyFailure(e.Queue, nerr)
		}
	}

	return nil
}

// notify runs NOTIFY outside of any particular caller's transaction,
// using its own connection; a failure to notify must never fail the
// enclosing operation since pollers are still a correct fallback.
func (s *Store) notify(ctx context.Context, queue string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("NOTIFY %s", quoteIdent(channelName(queue))))
	return err
}

// ClaimBatch atomically claims up to limit pending executions from the
// given queues, ordered by (priority DESC, created_at ASC), using
// FOR UPDATE SKIP LOCKED so concurrent claimers never contend on the same
// row. Returns an empty slice (never blocks) when nothing is claimable.
func (s *Store) ClaimBatch(ctx context.Context, queues []string, workerID string, limit int) ([]*execution.Execution, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE executions
		SET status = 'running', claimed_by = $1, claimed_at = now()
		WHERE id IN (
			SELECT id FROM executions
			WHERE queue = ANY($2)
			  AND status = 'pending'
			  AND available_at <= now()
			ORDER BY priority DESC, created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+executionColumns,
		workerID, queues, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: claim batch: %w", err)
	}
	defer rows.Close()

	claimed, err := scanExecutions(rows)
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// CompleteBatch transitions each (id, output) pair from running to
// completed. Idempotent against a row already completed with an
// identical output; any other terminal-state conflict raises
// ErrIllegalTransition.
func (s *Store) CompleteBatch(ctx context.Context, results map[string]execution.JSON) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin complete batch: %w", err)
	}
	defer tx.Rollback(ctx)

	resumeQueues := make(map[string]struct{})

	for id, output := range results {
		parentQueue, err := s.completeOne(ctx, tx, id, output)
		if err != nil {
			return err
		}
		if parentQueue != "" {
			resumeQueues[parentQueue] = struct{}{}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit complete batch: %w", err)
	}

	for q := range resumeQueues {
		if err := s.notify(ctx, q); err != nil {
			logNotifyFailure(q, err)
		}
	}

	return nil
}

// completeOne completes a single execution within tx and, if it has a
// parent workflow, appends the task_result history event and resumes the
// parent in the same transaction (engine specification §4.5, "Child
// completion hand-off"). Returns the parent's queue if a resume occurred,
// so the caller can emit a wake-up after commit.
func (s *Store) completeOne(ctx context.Context, tx pgx.Tx, id string, output execution.JSON) (string, error) {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("store: marshal output: %w", err)
	}

	var status string
	var existingOutput []byte
	err = tx.QueryRow(ctx, `SELECT status, output FROM executions WHERE id = $1 FOR UPDATE`, id).
		Scan(&status, &existingOutput)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup execution %s: %w", id, err)
	}

	if status == string(execution.StatusCompleted) {
		if string(existingOutput) == string(outputJSON) {
			return "", nil // idempotent no-op
		}
		return "", fmt.Errorf("%w: execution %s already completed with a different output", ErrIllegalTransition, id)
	}
	if status != string(execution.StatusRunning) {
		return "", fmt.Errorf("%w: execution %s is %s, not running", ErrIllegalTransition, id, status)
	}

	var parentID *string
	var functionName string
	err = tx.QueryRow(ctx, `
		UPDATE executions
		SET status = 'completed', output = $2, error = NULL, completed_at = now(), claimed_by = NULL
		WHERE id = $1
		RETURNING parent_workflow_id, function_name
	`, id, outputJSON).Scan(&parentID, &functionName)
	if err != nil {
		return "", fmt.Errorf("store: complete execution %s: %w", id, err)
	}

	if parentID == nil {
		return "", nil
	}

	return s.resumeParentWithResult(ctx, tx, *parentID, id, functionName, output, nil)
}

// Fail records a failed attempt. If retry is true and the attempt budget
// is not exhausted, the execution returns to pending with a deferred
// available_at; otherwise it transitions to failed terminally.
func (s *Store) Fail(ctx context.Context, id string, execErr *execution.Error, retry bool, policy *execution.RetryPolicy) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin fail: %w", err)
	}
	defer tx.Rollback(ctx)

	var attempt, maxRetries int
	var parentID *string
	var queue, functionName string
	err = tx.QueryRow(ctx, `
		SELECT attempt, max_retries, parent_workflow_id, queue, function_name
		FROM executions WHERE id = $1 AND status = 'running' FOR UPDATE
	`, id).Scan(&attempt, &maxRetries, &parentID, &queue, &functionName)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: lookup execution %s: %w", id, err)
	}

	errJSON, err := json.Marshal(execErr)
	if err != nil {
		return fmt.Errorf("store: marshal error: %w", err)
	}

	nextAttempt := attempt + 1
	canRetry := retry && nextAttempt < maxRetries

	if canRetry {
		if policy == nil {
			policy = execution.DefaultRetryPolicy()
		}
		delay := policy.Delay(attempt)
		_, err = tx.Exec(ctx, `
			UPDATE executions
			SET status = 'pending', attempt = $2, error = $3,
			    claimed_by = NULL, available_at = now() + ($4 * interval '1 second')
			WHERE id = $1
		`, id, nextAttempt, errJSON, delay.Seconds())
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE executions
			SET status = 'failed', attempt = $2, error = $3, completed_at = now(), claimed_by = NULL
			WHERE id = $1
		`, id, nextAttempt, errJSON)
	}
	if err != nil {
		return fmt.Errorf("store: fail execution %s: %w", id, err)
	}

	var resumeQueue string
	if !canRetry && parentID != nil {
		resumeQueue, err = s.resumeParentWithResult(ctx, tx, *parentID, id, functionName, nil, execErr)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit fail: %w", err)
	}

	if canRetry {
		logger.Debug().Str("execution_id", id).Int("attempt", nextAttempt).Msg("store: execution scheduled for retry")
	}
	if resumeQueue != "" {
		if err := s.notify(ctx, resumeQueue); err != nil {
			logNotifyFailure(resumeQueue, err)
		}
	}

	return nil
}

// resumeParentWithResult appends a task_result history event (success or
// failure) to the parent workflow's context, clears awaiting_child_id,
// and transitions the parent back to pending. Must run inside the same
// transaction as the child's own terminal transition so the hand-off is
// atomic, per engine specification §4.5.
func (s *Store) resumeParentWithResult(ctx context.Context, tx pgx.Tx, parentID, childID, childFunctionName string, output execution.JSON, failErr *execution.Error) (string, error) {
	var historyRaw []byte
	var status string
	var queue string
	err := tx.QueryRow(ctx, `
		SELECT wc.history, e.status, e.queue
		FROM workflow_contexts wc JOIN executions e ON e.id = wc.execution_id
		WHERE wc.execution_id = $1 FOR UPDATE
	`, parentID).Scan(&historyRaw, &status, &queue)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn().Str("parent_workflow_id", parentID).Msg("store: parent workflow context not found for child completion")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup parent context %s: %w", parentID, err)
	}

	var history []json.RawMessage
	if len(historyRaw) > 0 {
		if err := json.Unmarshal(historyRaw, &history); err != nil {
			return "", fmt.Errorf("store: unmarshal parent history %s: %w", parentID, err)
		}
	}

	event := map[string]interface{}{
		"type":     "task_result",
		"child_id": childID,
		"name":     childFunctionName,
		"value":    output,
	}
	if failErr != nil {
		event["error"] = failErr
	}

	encodedEvent, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("store: marshal history event: %w", err)
	}
	history = append(history, encodedEvent)

	newHistory, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("store: marshal history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE workflow_contexts SET history = $2, awaiting_child_id = NULL WHERE execution_id = $1
	`, parentID, newHistory)
	if err != nil {
		return "", fmt.Errorf("store: update parent context %s: %w", parentID, err)
	}

	if status == string(execution.StatusSuspended) {
		_, err = tx.Exec(ctx, `UPDATE executions SET status = 'pending' WHERE id = $1`, parentID)
		if err != nil {
			return "", fmt.Errorf("store: resume parent %s: %w", parentID, err)
		}
		return queue, nil
	}

	return "", nil
}

// SuspendWorkflow requires kind=workflow and status=running; it persists
// the provided context update and transitions to suspended atomically.
func (s *Store) SuspendWorkflow(ctx context.Context, id string, update WorkflowContextUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin suspend: %w", err)
	}
	defer tx.Rollback(ctx)

	var kind, status string
	err = tx.QueryRow(ctx, `SELECT kind, status FROM executions WHERE id = $1 FOR UPDATE`, id).Scan(&kind, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: lookup execution %s: %w", id, err)
	}
	if kind != string(execution.KindWorkflow) || status != string(execution.StatusRunning) {
		return fmt.Errorf("%w: execution %s is %s %s, not a running workflow", ErrIllegalTransition, id, kind, status)
	}

	if err := s.writeContext(ctx, tx, id, update); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `UPDATE executions SET status = 'suspended', claimed_by = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: suspend execution %s: %w", id, err)
	}

	return tx.Commit(ctx)
}

// ResumeWorkflow requires status=suspended and sets it to pending. Used
// after a child completes or a signal arrives outside of this call's own
// transaction (those paths call the lower-level resume logic directly);
// this entry point exists for external callers such as a manual nudge.
func (s *Store) ResumeWorkflow(ctx context.Context, id string) error {
	var queue string
	err := s.pool.QueryRow(ctx, `
		UPDATE executions SET status = 'pending'
		WHERE id = $1 AND status = 'suspended'
		RETURNING queue
	`, id).Scan(&queue)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: resume workflow %s: %w", id, err)
	}

	if err := s.notify(ctx, queue); err != nil {
		logNotifyFailure(queue, err)
	}
	return nil
}

// RecoverDead finds worker heartbeats older than timeout, marks them
// stopped, and resets any Execution still claimed by them back to
// pending. Idempotent: safe for every worker to run on a timer.
func (s *Store) RecoverDead(ctx context.Context, timeout time.Duration) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin recover: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT worker_id FROM worker_heartbeats
		WHERE status = 'running' AND last_heartbeat < now() - ($1 * interval '1 second')
	`, timeout.Seconds())
	if err != nil {
		return 0, fmt.Errorf("store: query dead workers: %w", err)
	}

	var deadWorkers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: scan dead worker: %w", err)
		}
		deadWorkers = append(deadWorkers, id)
	}
	rows.Close()

	if len(deadWorkers) == 0 {
		return 0, nil
	}

	_, err = tx.Exec(ctx, `UPDATE worker_heartbeats SET status = 'stopped' WHERE worker_id = ANY($1)`, deadWorkers)
	if err != nil {
		return 0, fmt.Errorf("store: mark workers stopped: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE executions
		SET status = 'pending', claimed_by = NULL, claimed_at = NULL
		WHERE claimed_by = ANY($1) AND status = 'running'
	`, deadWorkers)
	if err != nil {
		return 0, fmt.Errorf("store: recover executions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit recover: %w", err)
	}

	recovered := int(tag.RowsAffected())
	if recovered > 0 {
		logger.Warn().Strs("dead_workers", deadWorkers).Int("recovered", recovered).Msg("store: recovered orphaned executions")
	}

	return recovered, nil
}

// GetExecution fetches a single Execution by id.
func (s *Store) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListFilter narrows ListExecutions results.
type ListFilter struct {
	Queue  string
	Status execution.Status
	Limit  int
	Offset int
}

// ListExecutions returns executions newest-first, optionally filtered by
// queue and/or status.
func (s *Store) ListExecutions(ctx context.Context, f ListFilter) ([]*execution.Execution, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + ` FROM executions WHERE ($1 = '' OR queue = $1) AND ($2 = '' OR status = $2) ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := s.pool.Query(ctx, query, f.Queue, string(f.Status), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("store: list executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// CancelExecution fails a pending or suspended execution with a
// Cancelled error. Running or terminal executions cannot be cancelled
// (engine specification §5, "Cancellation and timeouts").
func (s *Store) CancelExecution(ctx context.Context, id string) error {
	errJSON, _ := json.Marshal(&execution.Error{Message: "execution cancelled", Kind: execution.ErrorCancelled})

	tag, err := s.pool.Exec(ctx, `
		UPDATE executions
		SET status = 'failed', error = $2, completed_at = now()
		WHERE id = $1 AND status IN ('pending', 'suspended')
	`, id, errJSON)
	if err != nil {
		return fmt.Errorf("store: cancel execution %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WorkflowContextUpdate carries the fields SuspendWorkflow persists
// alongside the status transition.
type WorkflowContextUpdate struct {
	StatementIndex  int
	Locals          execution.JSON
	History         []json.RawMessage
	AwaitingChildID *string
	AwaitingSignal  *string
}

func (s *Store) writeContext(ctx context.Context, tx pgx.Tx, executionID string, u WorkflowContextUpdate) error {
	locals, err := json.Marshal(u.Locals)
	if err != nil {
		return fmt.Errorf("store: marshal locals: %w", err)
	}
	history, err := json.Marshal(u.History)
	if err != nil {
		return fmt.Errorf("store: marshal history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_contexts (execution_id, statement_index, locals, history, awaiting_child_id, awaiting_signal)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (execution_id) DO UPDATE SET
			statement_index = $2, locals = $3, history = $4,
			awaiting_child_id = $5, awaiting_signal = $6
	`, executionID, u.StatementIndex, locals, history, u.AwaitingChildID, u.AwaitingSignal)
	if err != nil {
		return fmt.Errorf("store: write workflow context %s: %w", executionID, err)
	}
	return nil
}

// WorkflowContext mirrors the workflow_contexts row, decoded for the DSL
// engine's consumption.
type WorkflowContext struct {
	ExecutionID     string
	StatementIndex  int
	Locals          execution.JSON
	History         []json.RawMessage
	AwaitingChildID *string
	AwaitingSignal  *string
}

// GetWorkflowContext loads (or lazily creates) the context for a workflow
// execution. A freshly-enqueued workflow has no row yet; this returns a
// zero-value context in that case rather than erroring.
func (s *Store) GetWorkflowContext(ctx context.Context, executionID string) (*WorkflowContext, error) {
	var localsRaw, historyRaw []byte
	wc := &WorkflowContext{ExecutionID: executionID}

	err := s.pool.QueryRow(ctx, `
		SELECT statement_index, locals, history, awaiting_child_id, awaiting_signal
		FROM workflow_contexts WHERE execution_id = $1
	`, executionID).Scan(&wc.StatementIndex, &localsRaw, &historyRaw, &wc.AwaitingChildID, &wc.AwaitingSignal)
	if errors.Is(err, pgx.ErrNoRows) {
		wc.Locals = execution.JSON{}
		wc.History = nil
		return wc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get workflow context %s: %w", executionID, err)
	}

	if len(localsRaw) > 0 {
		if err := json.Unmarshal(localsRaw, &wc.Locals); err != nil {
			return nil, fmt.Errorf("store: unmarshal locals %s: %w", executionID, err)
		}
	}
	if len(historyRaw) > 0 {
		if err := json.Unmarshal(historyRaw, &wc.History); err != nil {
			return nil, fmt.Errorf("store: unmarshal history %s: %w", executionID, err)
		}
	}

	return wc, nil
}

// CreateChildExecution inserts a child task/workflow execution and records
// it against (parentWorkflowID, statementIndex, attempt) so a replay after
// a crash between "insert child" and "persist history" does not create a
// duplicate. Returns the existing child id without inserting if the key
// was already claimed.
func (s *Store) CreateChildExecution(ctx context.Context, parentWorkflowID string, statementIndex, attempt int, child *execution.Execution) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("store: begin create child: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingID string
	err = tx.QueryRow(ctx, `
		SELECT child_id FROM workflow_children
		WHERE parent_workflow_id = $1 AND statement_index = $2 AND attempt = $3
	`, parentWorkflowID, statementIndex, attempt).Scan(&existingID)
	if err == nil {
		return existingID, tx.Commit(ctx)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("store: lookup existing child: %w", err)
	}

	inputs, err := json.Marshal(child.Inputs)
	if err != nil {
		return "", fmt.Errorf("store: marshal child inputs: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO executions (
			id, kind, function_name, queue, status, inputs,
			attempt, max_retries, parent_workflow_id, priority, timeout_seconds, available_at
		) VALUES ($1, $2, $3, $4, 'pending', $5, 0, $6, $7, $8, $9, now())
	`, child.ID, string(child.Kind), child.FunctionName, child.Queue, inputs,
		child.MaxRetries, parentWorkflowID, child.Priority, child.TimeoutSeconds)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("store: insert child execution: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_children (parent_workflow_id, statement_index, attempt, child_id)
		VALUES ($1, $2, $3, $4)
	`, parentWorkflowID, statementIndex, attempt, child.ID)
	if err != nil {
		return "", fmt.Errorf("store: record child creation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("store: commit create child: %w", err)
	}

	if err := s.notify(ctx, child.Queue); err != nil {
		logNotifyFailure(child.Queue, err)
	}

	return child.ID, nil
}

const executionColumns = `
	id, kind, function_name, queue, status, inputs, output, error,
	attempt, max_retries, parent_workflow_id, claimed_by, priority,
	timeout_seconds, created_at, claimed_at, completed_at, available_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExecution(row rowScanner) (*execution.Execution, error) {
	var e execution.Execution
	var kind, status string
	var inputsRaw, outputRaw, errorRaw []byte

	err := row.Scan(
		&e.ID, &kind, &e.FunctionName, &e.Queue, &status, &inputsRaw, &outputRaw, &errorRaw,
		&e.Attempt, &e.MaxRetries, &e.ParentWorkflowID, &e.ClaimedBy, &e.Priority,
		&e.TimeoutSeconds, &e.CreatedAt, &e.ClaimedAt, &e.CompletedAt, &e.AvailableAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = execution.Kind(kind)
	e.Status = execution.Status(status)

	if len(inputsRaw) > 0 {
		if err := json.Unmarshal(inputsRaw, &e.Inputs); err != nil {
			return nil, fmt.Errorf("store: unmarshal inputs: %w", err)
		}
	}
	if len(outputRaw) > 0 {
		if err := json.Unmarshal(outputRaw, &e.Output); err != nil {
			return nil, fmt.Errorf("store: unmarshal output: %w", err)
		}
	}
	if len(errorRaw) > 0 {
		e.Error = &execution.Error{}
		if err := json.Unmarshal(errorRaw, e.Error); err != nil {
			return nil, fmt.Errorf("store: unmarshal error: %w", err)
		}
	}

	return &e, nil
}

func scanExecutions(rows pgx.Rows) ([]*execution.Execution, error) {
	var out []*execution.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan execution: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
