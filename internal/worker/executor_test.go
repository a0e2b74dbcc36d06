package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/registry"
)

func TestExecutor_Task_Success(t *testing.T) {
	reg := registry.New()
	reg.RegisterTask("increment", func(inputs execution.JSON) (execution.JSON, error) {
		v, _ := inputs["value"].(float64)
		return execution.JSON{"result": v + 1}, nil
	})

	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)
	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "task_1", Kind: execution.KindTask, FunctionName: "increment",
		Inputs: execution.JSON{"value": float64(1)},
	})

	require.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, float64(2), res.Output["result"])
}

func TestExecutor_Task_UnknownFunction(t *testing.T) {
	reg := registry.New()
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "task_1", Kind: execution.KindTask, FunctionName: "nope",
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry)
	assert.Equal(t, execution.ErrorUnknownFunction, res.Err.Kind)
}

func TestExecutor_Task_TransientErrorIsRetryable(t *testing.T) {
	reg := registry.New()
	reg.RegisterTask("flaky", func(inputs execution.JSON) (execution.JSON, error) {
		return nil, errors.New("boom")
	})
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "task_1", Kind: execution.KindTask, FunctionName: "flaky",
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, res.Retry)
	assert.Equal(t, execution.ErrorTransient, res.Err.Kind)
}

func TestExecutor_Task_InputValidationIsPermanent(t *testing.T) {
	reg := registry.New()
	reg.RegisterTask("strict", func(inputs execution.JSON) (execution.JSON, error) {
		return nil, &execution.Error{Message: "missing field", Kind: execution.ErrorInputValidation}
	})
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "task_1", Kind: execution.KindTask, FunctionName: "strict",
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry)
	assert.Equal(t, execution.ErrorInputValidation, res.Err.Kind)
}

func TestExecutor_Task_Panic_IsRecoveredAsTransient(t *testing.T) {
	reg := registry.New()
	reg.RegisterTask("panics", func(inputs execution.JSON) (execution.JSON, error) {
		panic("unexpected")
	})
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "task_1", Kind: execution.KindTask, FunctionName: "panics",
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, res.Retry)
	assert.Equal(t, execution.ErrorTransient, res.Err.Kind)
}

func TestExecutor_Workflow_UnknownFunction(t *testing.T) {
	reg := registry.New()
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "wf_1", Kind: execution.KindWorkflow, FunctionName: "nope",
		CreatedAt: time.Now(),
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry)
	assert.Equal(t, execution.ErrorUnknownFunction, res.Err.Kind)
}

func TestExecutor_Workflow_ExpiredTimeoutFailsPermanently(t *testing.T) {
	reg := registry.New()
	ex := NewExecutor(reg, dispatcher.New(nil, nil), 0, 0)

	res := ex.Execute(context.Background(), &execution.Execution{
		ID: "wf_1", Kind: execution.KindWorkflow, FunctionName: "anything",
		TimeoutSeconds: intPtr(1),
		CreatedAt:      time.Now().Add(-time.Hour),
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry)
	assert.Equal(t, execution.ErrorTimeout, res.Err.Kind)
}

func intPtr(v int) *int { return &v }
