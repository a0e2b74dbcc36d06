package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	// promauto registers these at init; just verify they exist.
	assert.NotNil(t, ExecutionsSubmitted)
	assert.NotNil(t, ExecutionsCompleted)
	assert.NotNil(t, ExecutionDuration)
	assert.NotNil(t, ExecutionRetries)
	assert.NotNil(t, WorkflowSuspensions)
	assert.NotNil(t, WorkflowResumptions)

	assert.NotNil(t, QueueDepth)
	assert.NotNil(t, QueueLatency)

	assert.NotNil(t, ActiveWorkers)
	assert.NotNil(t, WorkerBusyTime)
	assert.NotNil(t, WorkerActiveExecutions)

	assert.NotNil(t, RecoveredExecutions)

	assert.NotNil(t, StoreOperationDuration)
	assert.NotNil(t, StoreErrors)

	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)

	assert.NotNil(t, WebSocketConnections)
	assert.NotNil(t, WebSocketMessages)
}

func TestRecordExecutionSubmission(t *testing.T) {
	ExecutionsSubmitted.Reset()

	RecordExecutionSubmission("task", "send_email", "default")
	RecordExecutionSubmission("task", "send_email", "default")
	RecordExecutionSubmission("workflow", "onboard_user", "default")
}

func TestRecordExecutionCompletion(t *testing.T) {
	ExecutionsCompleted.Reset()
	ExecutionDuration.Reset()

	RecordExecutionCompletion("task", "send_email", "completed", 1.5)
	RecordExecutionCompletion("task", "send_email", "failed", 0.5)
}

func TestRecordExecutionRetry(t *testing.T) {
	ExecutionRetries.Reset()

	RecordExecutionRetry("task", "send_email")
	RecordExecutionRetry("task", "send_email")
}

func TestRecordWorkflowSuspensionAndResumption(t *testing.T) {
	WorkflowSuspensions.Reset()
	WorkflowResumptions.Reset()

	RecordWorkflowSuspension("onboard_user", "call_task")
	RecordWorkflowSuspension("onboard_user", "wait_signal")
	RecordWorkflowResumption("onboard_user")
}

func TestUpdateQueueDepth(t *testing.T) {
	QueueDepth.Reset()

	UpdateQueueDepth("default", 100)
	UpdateQueueDepth("high", 500)
	UpdateQueueDepth("low", 50)
}

func TestRecordQueueLatency(t *testing.T) {
	QueueLatency.Reset()

	RecordQueueLatency("default", 0.001)
	RecordQueueLatency("high", 0.5)
}

func TestSetActiveWorkers(t *testing.T) {
	SetActiveWorkers(5)
	SetActiveWorkers(10)
	SetActiveWorkers(0)
}

func TestRecordWorkerBusyTime(t *testing.T) {
	WorkerBusyTime.Reset()

	RecordWorkerBusyTime("worker-1", 10.5)
	RecordWorkerBusyTime("worker-2", 5.0)
}

func TestSetWorkerActiveExecutions(t *testing.T) {
	WorkerActiveExecutions.Reset()

	SetWorkerActiveExecutions("worker-1", 3)
	SetWorkerActiveExecutions("worker-1", 0)
}

func TestRecordRecovery(t *testing.T) {
	RecoveredExecutions.Reset()

	RecordRecovery("default")
	RecordRecovery("default")
}

func TestRecordStoreOperationAndError(t *testing.T) {
	StoreOperationDuration.Reset()
	StoreErrors.Reset()

	RecordStoreOperation("claim_batch", 0.001)
	RecordStoreOperation("complete_batch", 0.005)
	RecordStoreError("claim_batch")
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestDuration.Reset()
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("GET", "/v1/executions", "200", 0.05)
	RecordHTTPRequest("POST", "/v1/workflows", "201", 0.1)
	RecordHTTPRequest("GET", "/v1/executions/123", "404", 0.01)
}

func TestSetWebSocketConnections(t *testing.T) {
	SetWebSocketConnections(0)
	SetWebSocketConnections(10)
	SetWebSocketConnections(5)
}

func TestRecordWebSocketMessage(t *testing.T) {
	WebSocketMessages.Reset()

	RecordWebSocketMessage("execution.submitted")
	RecordWebSocketMessage("execution.completed")
	RecordWebSocketMessage("worker.joined")
}
