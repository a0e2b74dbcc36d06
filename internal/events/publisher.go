// Package events defines the execution lifecycle event stream consumed by
// the WebSocket fan-out (internal/api/websocket). It is a thin, optional
// observability layer on top of the Store's transitions: nothing in the
// engine's durability story depends on an event ever being delivered.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType tags the kind of execution lifecycle transition an Event
// reports.
type EventType string

const (
	EventExecutionSubmitted EventType = "execution.submitted"
	EventExecutionStarted   EventType = "execution.started"
	EventExecutionSuspended EventType = "execution.suspended"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
	EventSignalDelivered    EventType = "signal.delivered"

	EventWorkerJoined EventType = "worker.joined"
	EventWorkerLeft   EventType = "worker.left"
)

// Event is one execution lifecycle notification, broadcast to WebSocket
// clients by event type; Queue is informational and not used for routing.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Queue     string                 `json:"queue,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent constructs an Event stamped with the current time.
func NewEvent(eventType EventType, queue string, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Queue:     queue,
		Data:      data,
	}
}

// ToJSON serializes the event for WebSocket delivery.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event previously produced by ToJSON.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher fans Events out to Subscribe callers. Publish must never
// block the caller on a slow subscriber; a full subscriber channel drops
// the event rather than back-pressuring the Worker or Dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error)
	Close() error
}

// ExecutionEventData builds the Data payload for an execution lifecycle
// event.
func ExecutionEventData(executionID, kind, functionName string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"execution_id":  executionID,
		"kind":          kind,
		"function_name": functionName,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// WorkerEventData builds the Data payload for a worker lifecycle event.
func WorkerEventData(workerID string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{"worker_id": workerID}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
