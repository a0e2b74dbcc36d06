// Package worker implements the Worker Runtime: the long-lived process
// that claims batches of pending Executions from the Dispatcher, bounds
// concurrency, executes tasks directly and workflows through the DSL
// Engine, reports outcomes in batches, and heartbeats its own liveness.
// See engine specification §4.4.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/dsl"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/registry"
	"github.com/durablex/durablex/internal/store"
)

// Outcome is what one Execute Protocol run produced for a claimed
// Execution.
type Outcome int

const (
	// OutcomeCompleted means the Execution finished successfully and
	// should flow through the Completer's batched CompleteBatch call.
	OutcomeCompleted Outcome = iota

	// OutcomeFailed means the Execution raised an error; the Completer
	// reports it via Fail immediately, not batched.
	OutcomeFailed

	// OutcomeSuspended means a workflow reached call_task or wait_signal
	// and executeWorkflow already persisted the suspend through the
	// Dispatcher; the Worker does nothing further for this Execution (engine specification
	// §4.5, "Suspended").
	OutcomeSuspended
)

// Result is what Executor.Execute returns for one claimed Execution.
type Result struct {
	ID      string
	Outcome Outcome
	Output  execution.JSON
	Err     *execution.Error
	Retry   bool
}

// defaultTimeout bounds a task or one workflow step-call when neither the
// Execution nor the process configuration specifies one.
const defaultTimeout = 30 * time.Second

// defaultWorkflowTimeout bounds a workflow's total wall-clock lifetime
// when neither the Execution nor the process configuration specifies one.
const defaultWorkflowTimeout = 24 * time.Hour

// Executor resolves a claimed Execution's function_name against the
// Registry and runs it: a task is invoked directly, a workflow is handed
// to the DSL Engine. It never touches the Store directly except through
// the Dispatcher, matching the engine specification's "Worker Runtime"
// component boundary.
type Executor struct {
	registry        *registry.Registry
	dispatcher      *dispatcher.Dispatcher
	engine          *dsl.Engine
	defaultTimeout  time.Duration
	workflowTimeout time.Duration
}

// NewExecutor constructs an Executor. Either timeout, if zero, falls back
// to a package default. taskTimeout bounds one task invocation (or one
// workflow replay step); workflowTimeout bounds a workflow's total
// wall-clock lifetime from its Execution's CreatedAt, per engine
// specification §4.5, "Timeouts" ("A per-workflow timeout bounds the
// total wall-clock lifetime, not per-step").
func NewExecutor(reg *registry.Registry, disp *dispatcher.Dispatcher, taskTimeout, workflowTimeout time.Duration) *Executor {
	if taskTimeout <= 0 {
		taskTimeout = defaultTimeout
	}
	if workflowTimeout <= 0 {
		workflowTimeout = defaultWorkflowTimeout
	}
	return &Executor{
		registry:        reg,
		dispatcher:      disp,
		engine:          dsl.NewEngine(),
		defaultTimeout:  taskTimeout,
		workflowTimeout: workflowTimeout,
	}
}

// Execute runs the Execute Protocol for one claimed Execution: resolve,
// apply timeout, dispatch by kind.
func (ex *Executor) Execute(ctx context.Context, e *execution.Execution) Result {
	switch e.Kind {
	case execution.KindTask:
		timeout := ex.defaultTimeout
		if e.TimeoutSeconds != nil {
			timeout = time.Duration(*e.TimeoutSeconds) * time.Second
		}
		execCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ex.executeTask(execCtx, e)

	case execution.KindWorkflow:
		wfTimeout := ex.workflowTimeout
		if e.TimeoutSeconds != nil {
			wfTimeout = time.Duration(*e.TimeoutSeconds) * time.Second
		}
		if wfTimeout > 0 && time.Since(e.CreatedAt) >= wfTimeout {
			return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: &execution.Error{
				Message: "workflow exceeded its total wall-clock timeout",
				Kind:    execution.ErrorTimeout,
			}}
		}
		stepCtx, cancel := context.WithTimeout(ctx, ex.defaultTimeout)
		defer cancel()
		return ex.executeWorkflow(stepCtx, e)

	default:
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: &execution.Error{
			Message: fmt.Sprintf("unknown execution kind %q", e.Kind),
			Kind:    execution.ErrorInputValidation,
		}}
	}
}

func (ex *Executor) executeTask(ctx context.Context, e *execution.Execution) (res Result) {
	fn, err := ex.registry.Task(e.FunctionName)
	if err != nil {
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: err.(*execution.Error)}
	}

	log := logger.Get().With().Str("component", "worker").Str("execution_id", e.ID).Str("function", e.FunctionName).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("task handler panicked")
			res = Result{ID: e.ID, Outcome: OutcomeFailed, Retry: true, Err: &execution.Error{
				Message: fmt.Sprintf("task handler panicked: %v", r),
				Kind:    execution.ErrorTransient,
				Trace:   string(debug.Stack()),
			}}
		}
	}()

	start := time.Now()
	output, err := fn(e.Inputs)
	duration := time.Since(start)

	if err != nil {
		execErr := classifyTaskError(ctx, err)
		log.Error().Err(err).Dur("duration", duration).Str("error_kind", string(execErr.Kind)).Msg("task failed")
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: execErr.Kind.Retryable(), Err: execErr}
	}

	log.Debug().Dur("duration", duration).Msg("task completed")
	return Result{ID: e.ID, Outcome: OutcomeCompleted, Output: output}
}

// classifyTaskError turns a task's raw error into the structured taxonomy
// of engine specification §7. A task may return an *execution.Error
// directly to pick a specific permanent classification (e.g.
// InputValidation); anything else is Transient unless the context
// deadline was the actual cause.
func classifyTaskError(ctx context.Context, err error) *execution.Error {
	var execErr *execution.Error
	if errors.As(err, &execErr) {
		return execErr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &execution.Error{Message: err.Error(), Kind: execution.ErrorTimeout}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return &execution.Error{Message: err.Error(), Kind: execution.ErrorCancelled}
	}
	return &execution.Error{Message: err.Error(), Kind: execution.ErrorTransient}
}

func (ex *Executor) executeWorkflow(ctx context.Context, e *execution.Execution) Result {
	prog, err := ex.registry.Workflow(e.FunctionName)
	if err != nil {
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: err.(*execution.Error)}
	}

	wc, err := ex.dispatcher.GetWorkflowContext(ctx, e.ID)
	if err != nil {
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: true, Err: &execution.Error{Message: err.Error(), Kind: execution.ErrorTransient}}
	}

	history, err := dsl.DecodeHistory(wc.History)
	if err != nil {
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: &execution.Error{Message: err.Error(), Kind: execution.ErrorNonDeterminism}}
	}

	// Step re-runs the program from its first statement, so history is
	// matched from position 0 on every call; the persisted statement index
	// only records how far the previous step got.
	state := dsl.State{
		Cursor:          0,
		Locals:          wc.Locals,
		History:         history,
		AwaitingChildID: wc.AwaitingChildID,
		AwaitingSignal:  wc.AwaitingSignal,
	}

	deps := &engineDeps{ctx: ctx, dispatcher: ex.dispatcher, registry: ex.registry, parent: e}
	result := ex.engine.Step(ctx, prog, state, e.Inputs, deps)

	switch result.Outcome {
	case dsl.Suspended:
		encoded, err := dsl.EncodeHistory(result.State.History)
		if err != nil {
			return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: &execution.Error{Message: err.Error(), Kind: execution.ErrorNonDeterminism}}
		}
		update := store.WorkflowContextUpdate{
			StatementIndex:  result.State.Cursor,
			Locals:          result.State.Locals,
			History:         encoded,
			AwaitingChildID: result.State.AwaitingChildID,
			AwaitingSignal:  result.State.AwaitingSignal,
		}
		if err := ex.dispatcher.SuspendWorkflow(ctx, e.ID, update); err != nil {
			return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: true, Err: &execution.Error{Message: err.Error(), Kind: execution.ErrorTransient}}
		}
		return Result{ID: e.ID, Outcome: OutcomeSuspended}

	case dsl.Completed:
		return Result{ID: e.ID, Outcome: OutcomeCompleted, Output: result.Output}

	case dsl.Continue:
		// This Engine resolves a workflow by full deterministic replay on
		// every Step call (see internal/dsl/engine.go): execBlock recurses
		// through the whole statement tree and only returns before the end
		// when it hits a suspension, a return, or a failure. Continue
		// therefore means the program ran to the end of its statement list
		// without ever executing a return — the workflow fell off the end.
		// Re-invoking Step would replay the identical program with
		// identical history and reach the same place again, so treating
		// Continue as an implicit empty-output completion (rather than
		// looping) is the only progress-making interpretation available
		// to this caller.
		return Result{ID: e.ID, Outcome: OutcomeCompleted, Output: execution.JSON{}}

	default: // dsl.Failed
		return Result{ID: e.ID, Outcome: OutcomeFailed, Retry: false, Err: result.Err}
	}
}

// engineDeps bridges dsl.Deps to the Dispatcher for one workflow
// Execution's live-mode side effects.
type engineDeps struct {
	ctx        context.Context
	dispatcher *dispatcher.Dispatcher
	registry   *registry.Registry
	parent     *execution.Execution
}

func (d *engineDeps) CreateChild(ctx context.Context, statementIndex int, name string, opts dsl.CallOptions, args execution.JSON) (string, error) {
	if d.registry.HasWorkflow(name) {
		return d.dispatcher.StartChildWorkflow(ctx, d.parent, statementIndex, name, opts.Queue, args)
	}
	return d.dispatcher.CreateChildExecution(ctx, d.parent, statementIndex, name, opts.Queue, opts.Priority, opts.MaxRetries, args)
}

func (d *engineDeps) DrainSignal(ctx context.Context, name string) (execution.JSON, string, bool, error) {
	payload, signalID, err := d.dispatcher.PendingSignal(ctx, d.parent.ID, name)
	if errors.Is(err, store.ErrSignalNotFound) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	return *payload, signalID, true, nil
}
