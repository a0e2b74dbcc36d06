// Package registry binds function names to the Go closures or dsl.Programs
// that implement them, matching the engine specification's Function
// Registry component. Tasks and workflows are registered by name; the
// worker's Executor looks up an Execution's function_name here when it
// runs that Execution.
package registry

import (
	"fmt"
	"sync"

	"github.com/durablex/durablex/internal/dsl"
	"github.com/durablex/durablex/internal/execution"
)

// TaskFunc is an ordinary Go task: it receives its decoded inputs and
// returns a JSON-able output or an error. Tasks have no replay
// requirement, so they remain plain closures (engine specification's
// Open Question resolution: "the Go-function/closure-based registration
// path remains, but only for tasks").
type TaskFunc func(inputs execution.JSON) (execution.JSON, error)

// Registry is the process-wide binding of function_name to its
// implementation. One Registry is shared by every Worker in a process.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]TaskFunc
	workflows map[string]*dsl.Program
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		tasks:     make(map[string]TaskFunc),
		workflows: make(map[string]*dsl.Program),
	}
}

// RegisterTask binds name to fn. Re-registering the same name overwrites
// the previous binding, which is convenient for tests but a footgun in
// production wiring; callers that care should check Task first.
func (r *Registry) RegisterTask(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// RegisterWorkflow binds a workflow's name (taken from prog.Name) to its
// compiled Program.
func (r *Registry) RegisterWorkflow(prog *dsl.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[prog.Name] = prog
}

// Task looks up a registered task function. Returns an UnknownFunction
// error (permanent, per engine specification §7) on a miss.
func (r *Registry) Task(name string) (TaskFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[name]
	if !ok {
		return nil, unknownFunction(name)
	}
	return fn, nil
}

// Workflow looks up a registered workflow program.
func (r *Registry) Workflow(name string) (*dsl.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prog, ok := r.workflows[name]
	if !ok {
		return nil, unknownFunction(name)
	}
	return prog, nil
}

// HasTask reports whether name is bound to a task function.
func (r *Registry) HasTask(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// HasWorkflow reports whether name is bound to a workflow program.
func (r *Registry) HasWorkflow(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.workflows[name]
	return ok
}

func unknownFunction(name string) *execution.Error {
	return &execution.Error{
		Message: fmt.Sprintf("no function registered under name %q", name),
		Kind:    execution.ErrorUnknownFunction,
	}
}
