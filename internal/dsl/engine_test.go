package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablex/durablex/internal/execution"
)

type fakeDeps struct {
	childID      string
	signalFound  bool
	signalValue  execution.JSON
	createCalled int
}

func (f *fakeDeps) CreateChild(ctx context.Context, statementIndex int, name string, opts CallOptions, args execution.JSON) (string, error) {
	f.createCalled++
	return f.childID, nil
}

func (f *fakeDeps) DrainSignal(ctx context.Context, name string) (execution.JSON, string, bool, error) {
	if f.signalFound {
		return f.signalValue, "sig_1", true, nil
	}
	return nil, "", false, nil
}

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	return prog
}

func TestEngineSuspendsOnLiveCallTask(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    r = call_task("do_thing", {})
    return {r: r}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{childID: "child-1"}

	result := eng.Step(context.Background(), prog, State{Locals: execution.JSON{}}, execution.JSON{}, deps)

	assert.Equal(t, Suspended, result.Outcome)
	require.NotNil(t, result.State.AwaitingChildID)
	assert.Equal(t, "child-1", *result.State.AwaitingChildID)
	assert.Equal(t, 1, deps.createCalled)
}

func TestEngineReplaysMatchingHistory(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    r = call_task("do_thing", {})
    return {r: r.value}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{}

	state := State{
		Cursor: 0,
		Locals: execution.JSON{},
		History: []HistoryEvent{
			{Type: HistoryTaskResult, Name: "do_thing", Value: "done"},
		},
	}

	result := eng.Step(context.Background(), prog, state, execution.JSON{}, deps)

	require.Equal(t, Completed, result.Outcome)
	assert.Equal(t, "done", result.Output["r"])
	assert.Equal(t, 0, deps.createCalled, "replay must not re-invoke CreateChild")
}

func TestEngineDetectsNonDeterminism(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    r = call_task("expected_task", {})
    return {r: r}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{}

	state := State{
		History: []HistoryEvent{
			{Type: HistoryTaskResult, Name: "different_task", Value: "done"},
		},
	}

	result := eng.Step(context.Background(), prog, state, execution.JSON{}, deps)

	require.Equal(t, Failed, result.Outcome)
	require.NotNil(t, result.Err)
	assert.Equal(t, execution.ErrorNonDeterminism, result.Err.Kind)
}

func TestEngineDrainsPendingSignalWithoutSuspending(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    approved = wait_signal("approval")
    return {approved: approved}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{signalFound: true, signalValue: execution.JSON{"ok": true}}

	result := eng.Step(context.Background(), prog, State{Locals: execution.JSON{}}, execution.JSON{}, deps)

	require.Equal(t, Completed, result.Outcome)
	assert.Equal(t, execution.JSON{"ok": true}, result.Output["approved"])
}

func TestEngineSuspendsOnWaitSignalWithNoneDelivered(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    approved = wait_signal("approval")
    return {approved: approved}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{signalFound: false}

	result := eng.Step(context.Background(), prog, State{Locals: execution.JSON{}}, execution.JSON{}, deps)

	require.Equal(t, Suspended, result.Outcome)
	require.NotNil(t, result.State.AwaitingSignal)
	assert.Equal(t, "approval", *result.State.AwaitingSignal)
}

func TestEngineVersionGatesOnFirstRunAndReplay(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    v = version("change-1", 1, 2)
    return {v: v}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{}

	fresh := eng.Step(context.Background(), prog, State{Locals: execution.JSON{}}, execution.JSON{}, deps)
	require.Equal(t, Completed, fresh.Outcome)
	assert.Equal(t, 2, fresh.Output["v"])
	require.Len(t, fresh.State.History, 1)
	assert.Equal(t, HistoryVersion, fresh.State.History[0].Type)

	replay := eng.Step(context.Background(), prog, State{History: fresh.State.History}, execution.JSON{}, deps)
	require.Equal(t, Completed, replay.Outcome)
	assert.Equal(t, 2, replay.Output["v"])
}

func TestEngineFailsOnRunawayLoop(t *testing.T) {
	prog := mustParse(t, `
workflow w {
    i = 0
    while i >= 0 {
        i = i + 1
    }
    return {i: i}
}
`)
	eng := NewEngine()
	deps := &fakeDeps{}

	result := eng.Step(context.Background(), prog, State{Locals: execution.JSON{}}, execution.JSON{}, deps)
	require.Equal(t, Failed, result.Outcome)
	assert.Equal(t, execution.ErrorTransient, result.Err.Kind)
}
