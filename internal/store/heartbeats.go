package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// WorkerHeartbeat is one worker's last-reported liveness row, surfaced by
// the admin introspection handlers.
type WorkerHeartbeat struct {
	WorkerID      string                 `json:"worker_id"`
	LastHeartbeat time.Time              `json:"last_heartbeat"`
	Queues        []string               `json:"queues"`
	Status        string                 `json:"status"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// UpsertHeartbeat records a worker's liveness. Called on a timer by every
// running worker; RecoverDead later uses the last_heartbeat column to
// detect workers that stopped reporting in.
func (s *Store) UpsertHeartbeat(ctx context.Context, workerID string, queues []string, metadata map[string]interface{}) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal heartbeat metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO worker_heartbeats (worker_id, last_heartbeat, queues, status, metadata)
		VALUES ($1, now(), $2, 'running', $3)
		ON CONFLICT (worker_id) DO UPDATE SET
			last_heartbeat = now(), queues = $2, status = 'running', metadata = $3
	`, workerID, queues, metaJSON)
	if err != nil {
		return fmt.Errorf("store: upsert heartbeat %s: %w", workerID, err)
	}
	return nil
}

// DeregisterWorker marks a worker stopped on graceful shutdown, so
// RecoverDead does not have to wait out the timeout before reclaiming its
// executions.
func (s *Store) DeregisterWorker(ctx context.Context, workerID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE worker_heartbeats SET status = 'stopped' WHERE worker_id = $1`, workerID)
	if err != nil {
		return fmt.Errorf("store: deregister worker %s: %w", workerID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE executions SET status = 'pending', claimed_by = NULL, claimed_at = NULL
		WHERE claimed_by = $1 AND status = 'running'
	`, workerID)
	if err != nil {
		return fmt.Errorf("store: release executions for %s: %w", workerID, err)
	}
	_ = tag
	return nil
}

// ListWorkers returns every worker's last heartbeat row, most recently
// seen first.
func (s *Store) ListWorkers(ctx context.Context) ([]*WorkerHeartbeat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT worker_id, last_heartbeat, queues, status, metadata
		FROM worker_heartbeats ORDER BY last_heartbeat DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list workers: %w", err)
	}
	defer rows.Close()

	var workers []*WorkerHeartbeat
	for rows.Next() {
		w, err := scanWorkerHeartbeat(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan worker heartbeat: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// GetWorker returns one worker's last heartbeat row, or ErrNotFound.
func (s *Store) GetWorker(ctx context.Context, workerID string) (*WorkerHeartbeat, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT worker_id, last_heartbeat, queues, status, metadata
		FROM worker_heartbeats WHERE worker_id = $1
	`, workerID)

	w, err := scanWorkerHeartbeat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get worker %s: %w", workerID, err)
	}
	return w, nil
}

func scanWorkerHeartbeat(row rowScanner) (*WorkerHeartbeat, error) {
	var w WorkerHeartbeat
	var metaJSON []byte
	if err := row.Scan(&w.WorkerID, &w.LastHeartbeat, &w.Queues, &w.Status, &metaJSON); err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &w.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal heartbeat metadata: %w", err)
		}
	}
	return &w, nil
}
