package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/durablex/durablex/internal/execution"
)

// HistoryEventType tags the three kinds of resolved side effect a workflow
// can replay: a completed or failed child task, a delivered signal, or a
// recorded version decision. See engine specification §3, "History event".
type HistoryEventType string

const (
	HistoryTaskResult HistoryEventType = "task_result"
	HistorySignal     HistoryEventType = "signal"
	HistoryVersion    HistoryEventType = "version"
)

// HistoryEvent is the tagged variant persisted in WorkflowContext.History.
// Field names are chosen to match what internal/store writes when it
// appends task_result and signal events on the Store side of the
// rendezvous, so the same JSON round-trips through both packages without
// translation.
type HistoryEvent struct {
	Type     HistoryEventType `json:"type"`
	ChildID  string           `json:"child_id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Value    interface{}      `json:"value,omitempty"`
	Payload  interface{}      `json:"payload,omitempty"`
	SignalID string           `json:"signal_id,omitempty"`
	Error    *execution.Error `json:"error,omitempty"`
	ChangeID string           `json:"change_id,omitempty"`
}

// DecodeHistory parses the raw JSON array the store persists into typed
// HistoryEvents.
func DecodeHistory(raw []json.RawMessage) ([]HistoryEvent, error) {
	out := make([]HistoryEvent, 0, len(raw))
	for i, r := range raw {
		var ev HistoryEvent
		if err := json.Unmarshal(r, &ev); err != nil {
			return nil, fmt.Errorf("dsl: decode history event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// EncodeHistory serializes typed HistoryEvents back to the raw JSON form
// the store persists.
func EncodeHistory(events []HistoryEvent) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(events))
	for i, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("dsl: encode history event %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// nonDeterminism builds the permanent NonDeterminism failure the
// specification requires whenever a replayed statement does not match its
// recorded history event on kind, name, or position.
func nonDeterminism(format string, args ...interface{}) *execution.Error {
	return &execution.Error{
		Message: fmt.Sprintf(format, args...),
		Kind:    execution.ErrorNonDeterminism,
	}
}
