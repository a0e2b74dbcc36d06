package dsl

import (
	"context"
	"fmt"

	"github.com/durablex/durablex/internal/execution"
)

// Outcome is the result of one Engine.Step call, matching the three
// transitions named in the engine specification's Workflow Engine section.
type Outcome string

const (
	// Continue means the top-level statement list ran to its end without
	// reaching a return, a suspension point, or a failure. Step re-runs the
	// whole program on every call, so invoking it again with the same
	// State reaches the same place; the Worker treats Continue as
	// completion with an empty output.
	Continue Outcome = "continue"

	// Suspended means the Engine reached a call_task or wait_signal that
	// cannot resolve synchronously; the caller persists State and stops.
	Suspended Outcome = "suspended"

	// Completed means the program ran to a return statement; Output
	// carries the returned value.
	Completed Outcome = "completed"

	// Failed means the Engine detected a NonDeterminism violation or a
	// loop that would not terminate; the workflow fails permanently.
	Failed Outcome = "failed"
)

// State is the mutable replay state threaded through one Engine.Step call:
// the statement cursor, the local variable bindings, the history consulted
// or extended so far, and which side effect (if any) the workflow is
// currently awaiting. It mirrors WorkflowContext but is store-agnostic so
// this package has no dependency on internal/store.
type State struct {
	Cursor          int
	Locals          execution.JSON
	History         []HistoryEvent
	AwaitingChildID *string
	AwaitingSignal  *string
}

// Deps is the set of side-effecting operations the Engine needs from the
// surrounding Dispatcher/Store while it is live (not replaying). All calls
// must be idempotent against statementIndex, since a crash between the
// Engine deciding to suspend and the caller persisting State must be safe
// to repeat.
type Deps interface {
	// CreateChild schedules a child task execution at the given program
	// position and returns its id. Calling it again for the same
	// statementIndex must return the same id rather than creating a
	// second child (engine specification §9, "Idempotent child
	// creation").
	CreateChild(ctx context.Context, statementIndex int, name string, opts CallOptions, args execution.JSON) (childID string, err error)

	// DrainSignal returns an already-delivered, unconsumed signal of the
	// given name if one exists, so a wait_signal reached in live mode
	// does not suspend needlessly when the signal beat the workflow to
	// the wait point.
	DrainSignal(ctx context.Context, name string) (payload execution.JSON, signalID string, found bool, err error)
}

// Result is what Engine.Step returns to its caller (the Worker's workflow
// dispatch path).
type Result struct {
	Outcome Outcome
	Output  execution.JSON
	Err     *execution.Error
	State   State // the state to persist, regardless of outcome
}

// Engine interprets a Program against a State, one step at a time.
type Engine struct{}

// NewEngine constructs an Engine. It carries no fields; it exists as a
// named type so callers read naturally as dsl.NewEngine().Step(...), and
// to leave room for future interpreter options without changing the call
// signature.
func NewEngine() *Engine { return &Engine{} }

// Step interprets prog from its first statement to the first suspension
// point, completion, or failure. See engine specification §4.5 for the full
// discipline; in short: each call_task, wait_signal and version statement
// is replayed from state.History[state.Cursor] while state.Cursor <
// len(state.History), and runs live (with real side effects) thereafter.
// Because every call starts at the first statement, state.Cursor must be 0
// on entry.
func (eng *Engine) Step(ctx context.Context, prog *Program, state State, inputs execution.JSON, deps Deps) Result {
	env := make(execution.JSON, len(inputs)+len(state.Locals))
	for k, v := range inputs {
		env[k] = v
	}
	for k, v := range state.Locals {
		env[k] = v
	}

	r := &runner{
		ctx:   ctx,
		deps:  deps,
		state: state,
		env:   env,
	}

	outcome, output, failErr := r.execBlock(prog.Statements)

	r.state.Locals = execution.JSON{}
	for k, v := range env {
		if _, isInput := inputs[k]; !isInput {
			r.state.Locals[k] = v
		}
	}

	return Result{
		Outcome: outcome,
		Output:  output,
		Err:     failErr,
		State:   r.state,
	}
}

// runner carries the mutable interpretation state through one recursive
// descent over a statement block. A non-nil stop signals the caller to
// unwind without executing further sibling statements.
type runner struct {
	ctx   context.Context
	deps  Deps
	state State
	env   execution.JSON
}

// execBlock runs stmts in order. It returns Continue (fell through
// normally), or Suspended/Completed/Failed if execution must stop here and
// propagate up to the top of the program.
func (r *runner) execBlock(stmts []Statement) (Outcome, execution.JSON, *execution.Error) {
	for i := range stmts {
		outcome, output, failErr := r.execStatement(&stmts[i])
		if outcome != Continue {
			return outcome, output, failErr
		}
	}
	return Continue, nil, nil
}

func (r *runner) execStatement(s *Statement) (Outcome, execution.JSON, *execution.Error) {
	switch s.Kind {
	case StmtAssign:
		v, err := Eval(s.Expr, r.env)
		if err != nil {
			return Failed, nil, nonDeterminism("assign %s: %v", s.Var, err)
		}
		r.env[s.Var] = v
		return Continue, nil, nil

	case StmtCallTask:
		return r.execCallTask(s)

	case StmtWaitSignal:
		return r.execWaitSignal(s)

	case StmtVersion:
		return r.execVersion(s)

	case StmtBranch:
		cond, err := Eval(s.Cond, r.env)
		if err != nil {
			return Failed, nil, nonDeterminism("branch condition: %v", err)
		}
		if truthy(cond) {
			return r.execBlock(s.Then)
		}
		return r.execBlock(s.Else)

	case StmtLoop:
		return r.execLoop(s)

	case StmtReturn:
		v, err := Eval(s.Result, r.env)
		if err != nil {
			return Failed, nil, nonDeterminism("return: %v", err)
		}
		out, ok := v.(execution.JSON)
		if !ok {
			out = execution.JSON{"value": v}
		}
		return Completed, out, nil

	default:
		return Failed, nil, nonDeterminism("unknown statement kind %q", s.Kind)
	}
}

func (r *runner) execLoop(s *Statement) (Outcome, execution.JSON, *execution.Error) {
	if s.Init != nil {
		if outcome, output, failErr := r.execStatement(s.Init); outcome != Continue {
			return outcome, output, failErr
		}
	}

	for iterations := 0; ; iterations++ {
		if iterations >= MaxLoopIterations {
			return Failed, nil, &execution.Error{
				Message: fmt.Sprintf("loop exceeded %d iterations without terminating", MaxLoopIterations),
				Kind:    execution.ErrorTransient,
			}
		}

		cond, err := Eval(s.Cond, r.env)
		if err != nil {
			return Failed, nil, nonDeterminism("loop condition: %v", err)
		}
		if !truthy(cond) {
			return Continue, nil, nil
		}

		if outcome, output, failErr := r.execBlock(s.Body); outcome != Continue {
			return outcome, output, failErr
		}

		if s.Post != nil {
			if outcome, output, failErr := r.execStatement(s.Post); outcome != Continue {
				return outcome, output, failErr
			}
		}
	}
}

func (r *runner) execCallTask(s *Statement) (Outcome, execution.JSON, *execution.Error) {
	if r.state.Cursor < len(r.state.History) {
		event := r.state.History[r.state.Cursor]
		if event.Type != HistoryTaskResult || event.Name != s.TaskName {
			return Failed, nil, nonDeterminism(
				"statement %d: expected task_result for %q, history has %s %q",
				r.state.Cursor, s.TaskName, event.Type, event.Name,
			)
		}
		r.bindCallResult(s, event.Value, event.Error)
		r.state.Cursor++
		return Continue, nil, nil
	}

	args, err := Eval(s.Args, r.env)
	if err != nil {
		return Failed, nil, nonDeterminism("call_task %s args: %v", s.TaskName, err)
	}
	argsJSON, ok := args.(execution.JSON)
	if !ok {
		argsJSON = execution.JSON{}
	}

	childID, err := r.deps.CreateChild(r.ctx, r.state.Cursor, s.TaskName, s.Options, argsJSON)
	if err != nil {
		return Failed, nil, &execution.Error{Message: err.Error(), Kind: execution.ErrorTransient}
	}

	r.state.AwaitingChildID = &childID
	return Suspended, nil, nil
}

// bindCallResult binds a call_task's ResultVar to a structured outcome
// value, since a child's failure does not automatically fail the parent:
// the workflow observes {success, value|error} and branches on it itself
// (engine specification §7, "Propagation policy").
func (r *runner) bindCallResult(s *Statement, value interface{}, callErr *execution.Error) {
	if s.ResultVar == "" {
		return
	}
	if callErr != nil {
		r.env[s.ResultVar] = execution.JSON{
			"success": false,
			"error":   execution.JSON{"message": callErr.Message, "kind": string(callErr.Kind)},
		}
		return
	}
	r.env[s.ResultVar] = execution.JSON{"success": true, "value": value}
}

func (r *runner) execWaitSignal(s *Statement) (Outcome, execution.JSON, *execution.Error) {
	if r.state.Cursor < len(r.state.History) {
		event := r.state.History[r.state.Cursor]
		if event.Type != HistorySignal || event.Name != s.SignalName {
			return Failed, nil, nonDeterminism(
				"statement %d: expected signal %q, history has %s %q",
				r.state.Cursor, s.SignalName, event.Type, event.Name,
			)
		}
		if s.ResultVar != "" {
			r.env[s.ResultVar] = event.Payload
		}
		r.state.Cursor++
		return Continue, nil, nil
	}

	payload, signalID, found, err := r.deps.DrainSignal(r.ctx, s.SignalName)
	if err != nil {
		return Failed, nil, &execution.Error{Message: err.Error(), Kind: execution.ErrorTransient}
	}
	if found {
		r.state.History = append(r.state.History, HistoryEvent{
			Type:     HistorySignal,
			Name:     s.SignalName,
			Payload:  payload,
			SignalID: signalID,
		})
		if s.ResultVar != "" {
			r.env[s.ResultVar] = payload
		}
		r.state.Cursor++
		return Continue, nil, nil
	}

	r.state.AwaitingSignal = &s.SignalName
	return Suspended, nil, nil
}

func (r *runner) execVersion(s *Statement) (Outcome, execution.JSON, *execution.Error) {
	if r.state.Cursor < len(r.state.History) {
		event := r.state.History[r.state.Cursor]
		if event.Type != HistoryVersion || event.ChangeID != s.ChangeID {
			return Failed, nil, nonDeterminism(
				"statement %d: expected version %q, history has %s %q",
				r.state.Cursor, s.ChangeID, event.Type, event.ChangeID,
			)
		}
		if s.ResultVar != "" {
			r.env[s.ResultVar] = event.Value
		}
		r.state.Cursor++
		return Continue, nil, nil
	}

	value := s.Max
	r.state.History = append(r.state.History, HistoryEvent{
		Type:     HistoryVersion,
		ChangeID: s.ChangeID,
		Value:    value,
	})
	if s.ResultVar != "" {
		r.env[s.ResultVar] = value
	}
	r.state.Cursor++
	return Continue, nil, nil
}
