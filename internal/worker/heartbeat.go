package worker

import (
	"context"
	"sync"
	"time"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/logger"
)

// Heartbeat periodically reports a worker's liveness to the Dispatcher's
// worker_heartbeats table, and deregisters it on graceful shutdown so
// RecoverDead does not have to wait out the timeout before reclaiming its
// in-flight work (engine specification §4.4, "Heartbeater").
type Heartbeat struct {
	dispatcher *dispatcher.Dispatcher
	workerID   string
	queues     []string
	interval   time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu          sync.RWMutex
	activeTasks int
	startedAt   time.Time
}

// NewHeartbeat constructs a Heartbeat for workerID, reporting on queues at
// interval.
func NewHeartbeat(disp *dispatcher.Dispatcher, workerID string, queues []string, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		dispatcher: disp,
		workerID:   workerID,
		queues:     queues,
		interval:   interval,
		stopCh:     make(chan struct{}),
		startedAt:  time.Now().UTC(),
	}
}

// Start begins the periodic heartbeat loop, sending one immediately.
func (h *Heartbeat) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.loop(ctx)
}

// Stop halts the heartbeat loop and deregisters the worker, releasing any
// executions it still holds claimed.
func (h *Heartbeat) Stop() {
	close(h.stopCh)
	h.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.dispatcher.DeregisterWorker(ctx, h.workerID); err != nil {
		logger.Warn().Err(err).Str("worker_id", h.workerID).Msg("worker: failed to deregister on shutdown")
	}
}

// SetActiveTasks updates the count reported in heartbeat metadata.
func (h *Heartbeat) SetActiveTasks(n int) {
	h.mu.Lock()
	h.activeTasks = n
	h.mu.Unlock()
}

func (h *Heartbeat) loop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.send(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.send(ctx)
		}
	}
}

func (h *Heartbeat) send(ctx context.Context) {
	h.mu.RLock()
	meta := map[string]interface{}{
		"active_tasks": h.activeTasks,
		"started_at":   h.startedAt,
	}
	h.mu.RUnlock()

	if err := h.dispatcher.UpsertHeartbeat(ctx, h.workerID, h.queues, meta); err != nil {
		logger.Error().Err(err).Str("worker_id", h.workerID).Msg("worker: failed to send heartbeat")
	}
}
