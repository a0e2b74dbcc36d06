package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/durablex/durablex/internal/execution"
)

// SendSignal delivers a signal to a workflow. If the workflow is currently
// suspended and awaiting exactly this signal name, the delivery is folded
// into the same transaction as the resume: a signal history event is
// appended and the workflow returns to pending. Otherwise the signal is
// recorded unconsumed, to be picked up (via PendingSignal) when the
// workflow next reaches a wait_signal for this name (engine specification
// §4.3, "Signals").
func (s *Store) SendSignal(ctx context.Context, workflowID, signalName string, payload execution.JSON) (string, error) {
	signalID := "sig_" + newID()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("store: marshal signal payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("store: begin send signal: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO signals (id, workflow_id, name, payload, consumed)
		VALUES ($1, $2, $3, $4, FALSE)
	`, signalID, workflowID, signalName, payloadJSON)
	if err != nil {
		return "", fmt.Errorf("store: insert signal: %w", err)
	}

	var status, queue string
	var awaitingSignal *string
	var historyRaw []byte
	err = tx.QueryRow(ctx, `
		SELECT e.status, e.queue, wc.awaiting_signal, wc.history
		FROM executions e LEFT JOIN workflow_contexts wc ON wc.execution_id = e.id
		WHERE e.id = $1 AND e.kind = 'workflow' FOR UPDATE
	`, workflowID).Scan(&status, &queue, &awaitingSignal, &historyRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return signalID, tx.Commit(ctx) // workflow not found; signal recorded for later inspection
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup workflow %s: %w", workflowID, err)
	}

	if status != string(execution.StatusSuspended) || awaitingSignal == nil || *awaitingSignal != signalName {
		return signalID, tx.Commit(ctx)
	}

	var history []json.RawMessage
	if len(historyRaw) > 0 {
		if err := json.Unmarshal(historyRaw, &history); err != nil {
			return "", fmt.Errorf("store: unmarshal history %s: %w", workflowID, err)
		}
	}

	event, err := json.Marshal(map[string]interface{}{
		"type":      "signal",
		"name":      signalName,
		"payload":   payload,
		"signal_id": signalID,
	})
	if err != nil {
		return "", fmt.Errorf("store: marshal signal event: %w", err)
	}
	history = append(history, event)

	newHistory, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("store: marshal history: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE workflow_contexts SET history = $2, awaiting_signal = NULL WHERE execution_id = $1
	`, workflowID, newHistory)
	if err != nil {
		return "", fmt.Errorf("store: update workflow context %s: %w", workflowID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE signals SET consumed = TRUE WHERE id = $1
	`, signalID)
	if err != nil {
		return "", fmt.Errorf("store: mark signal consumed: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE executions SET status = 'pending' WHERE id = $1`, workflowID)
	if err != nil {
		return "", fmt.Errorf("store: resume workflow %s: %w", workflowID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("store: commit send signal: %w", err)
	}

	if err := s.notify(ctx, queue); err != nil {
		logNotifyFailure(queue, err)
	}

	return signalID, nil
}

// PendingSignal checks for an already-delivered, unconsumed signal of the
// given name for workflowID — used when a workflow first evaluates a
// wait_signal statement, in case the signal arrived before the workflow
// suspended to await it.
func (s *Store) PendingSignal(ctx context.Context, workflowID, signalName string) (*execution.JSON, string, error) {
	var payloadRaw []byte
	var signalID string
	err := s.pool.QueryRow(ctx, `
		SELECT id, payload FROM signals
		WHERE workflow_id = $1 AND name = $2 AND NOT consumed
		ORDER BY created_at ASC LIMIT 1
	`, workflowID, signalName).Scan(&signalID, &payloadRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrSignalNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("store: pending signal: %w", err)
	}

	var payload execution.JSON
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &payload); err != nil {
			return nil, "", fmt.Errorf("store: unmarshal signal payload: %w", err)
		}
	}

	if _, err := s.pool.Exec(ctx, `UPDATE signals SET consumed = TRUE WHERE id = $1`, signalID); err != nil {
		return nil, "", fmt.Errorf("store: consume signal: %w", err)
	}

	return &payload, signalID, nil
}
