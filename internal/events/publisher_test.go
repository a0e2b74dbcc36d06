package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_Constants(t *testing.T) {
	assert.Equal(t, EventType("execution.submitted"), EventExecutionSubmitted)
	assert.Equal(t, EventType("execution.started"), EventExecutionStarted)
	assert.Equal(t, EventType("execution.suspended"), EventExecutionSuspended)
	assert.Equal(t, EventType("execution.completed"), EventExecutionCompleted)
	assert.Equal(t, EventType("execution.failed"), EventExecutionFailed)
	assert.Equal(t, EventType("signal.delivered"), EventSignalDelivered)
	assert.Equal(t, EventType("worker.joined"), EventWorkerJoined)
	assert.Equal(t, EventType("worker.left"), EventWorkerLeft)
}

func TestNewEvent(t *testing.T) {
	data := ExecutionEventData("task_123", "task", "send_email", nil)

	event := NewEvent(EventExecutionSubmitted, "default", data)

	assert.Equal(t, EventExecutionSubmitted, event.Type)
	assert.Equal(t, "default", event.Queue)
	assert.Equal(t, data, event.Data)
	assert.False(t, event.Timestamp.IsZero())
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
}

func TestEvent_ToJSON(t *testing.T) {
	event := &Event{
		Type:      EventExecutionCompleted,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Queue:     "default",
		Data: map[string]interface{}{
			"execution_id": "task_456",
			"result":       "success",
		},
	}

	data, err := event.ToJSON()
	require.NoError(t, err)

	var parsed map[string]interface{}
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "execution.completed", parsed["type"])
	assert.NotEmpty(t, parsed["timestamp"])
	assert.NotNil(t, parsed["data"])
}

func TestFromJSON(t *testing.T) {
	jsonData := `{
		"type": "execution.failed",
		"timestamp": "2024-01-15T10:30:00Z",
		"queue": "default",
		"data": {"execution_id": "task_789", "error": "timeout"}
	}`

	event, err := FromJSON([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, EventExecutionFailed, event.Type)
	assert.Equal(t, "task_789", event.Data["execution_id"])
	assert.Equal(t, "timeout", event.Data["error"])
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte("invalid json"))
	assert.Error(t, err)
}

func TestEvent_RoundTrip(t *testing.T) {
	original := NewEvent(EventWorkerJoined, "", WorkerEventData("worker-1", map[string]interface{}{
		"state": "active",
	}))

	data, err := original.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, original.Type, restored.Type)
	assert.Equal(t, original.Data["worker_id"], restored.Data["worker_id"])
	assert.Equal(t, original.Data["state"], restored.Data["state"])
}

func TestExecutionEventData(t *testing.T) {
	data := ExecutionEventData("task_123", "task", "send_email", map[string]interface{}{
		"attempt": 2,
		"error":   "timeout",
	})

	assert.Equal(t, "task_123", data["execution_id"])
	assert.Equal(t, "task", data["kind"])
	assert.Equal(t, "send_email", data["function_name"])
	assert.Equal(t, 2, data["attempt"])
	assert.Equal(t, "timeout", data["error"])
}

func TestExecutionEventData_NoExtra(t *testing.T) {
	data := ExecutionEventData("task_456", "workflow", "onboard_user", nil)

	assert.Equal(t, "task_456", data["execution_id"])
	assert.Equal(t, "workflow", data["kind"])
	assert.Equal(t, "onboard_user", data["function_name"])
	assert.Len(t, data, 3)
}

func TestWorkerEventData(t *testing.T) {
	data := WorkerEventData("worker-1", map[string]interface{}{
		"concurrency":  10,
		"active_tasks": 5,
	})

	assert.Equal(t, "worker-1", data["worker_id"])
	assert.Equal(t, 10, data["concurrency"])
	assert.Equal(t, 5, data["active_tasks"])
}

func TestWorkerEventData_NoExtra(t *testing.T) {
	data := WorkerEventData("worker-2", nil)

	assert.Equal(t, "worker-2", data["worker_id"])
	assert.Len(t, data, 1)
}
