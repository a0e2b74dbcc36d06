package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/durablex/durablex/internal/config"
	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/registry"
	"github.com/durablex/durablex/internal/store"
)

// State represents the worker pool's current operational state.
type State int

const (
	StateIdle         State = iota // constructed, not yet started
	StateBusy                      // claiming and executing
	StatePaused                    // not claiming; in-flight work still runs
	StateShuttingDown              // draining for shutdown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StatePaused:
		return "paused"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// completion is what a runner goroutine hands to the Completer for one
// finished Execution.
type completion struct {
	id      string
	output  execution.JSON
	failed  bool
	err     *execution.Error
	retry   bool
}

// Pool is one Worker process: it claims batches from the Dispatcher,
// bounds concurrency at cfg.Concurrency, runs the Execute Protocol, and
// reports outcomes in batches. Its five sub-loops mirror the engine
// specification's §4.4 component breakdown: Claimer, Executor (the
// runner goroutines below), Completer, Heartbeater, Recoverer.
type Pool struct {
	id     string
	queues []string
	cfg    config.WorkerConfig

	dispatcher *dispatcher.Dispatcher
	store      *store.Store
	executor   *Executor
	heartbeat  *Heartbeat

	localQueue chan *execution.Execution
	completeCh chan completion

	stateMu sync.RWMutex
	state   State

	wg     sync.WaitGroup
	stopCh chan struct{}

	activeMu sync.Mutex
	active   int
}

// NewPool constructs a Pool. reg must already carry every task and
// workflow this worker may be asked to run; the Registry is populated by
// external bindings before Start is called (engine specification §4.3).
func NewPool(cfg config.WorkerConfig, defaults config.DefaultsConfig, disp *dispatcher.Dispatcher, st *store.Store, reg *registry.Registry) *Pool {
	id := cfg.ID
	if id == "" {
		id = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	p := &Pool{
		id:         id,
		queues:     cfg.Queues,
		cfg:        cfg,
		dispatcher: disp,
		store:      st,
		executor:   NewExecutor(reg, disp, defaults.Timeout, defaults.WorkflowTimeout),
		localQueue: make(chan *execution.Execution, concurrency*2),
		completeCh: make(chan completion, concurrency*2),
		state:      StateIdle,
		stopCh:     make(chan struct{}),
	}
	p.heartbeat = NewHeartbeat(disp, id, cfg.Queues, cfg.HeartbeatInterval)
	return p
}

// ID returns the worker's identifier, either configured or generated.
func (p *Pool) ID() string { return p.id }

// State returns the Pool's current operational state.
func (p *Pool) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *Pool) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// ActiveExecutions returns the number of Executions currently running.
func (p *Pool) ActiveExecutions() int {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	return p.active
}

// Start spawns the claimer, runner, completer, heartbeater, and recoverer
// goroutines and returns immediately; Stop blocks until they drain.
func (p *Pool) Start(ctx context.Context) error {
	if len(p.queues) == 0 {
		return fmt.Errorf("worker: at least one queue is required")
	}

	p.setState(StateBusy)
	p.heartbeat.Start(ctx)

	notifyCh := p.startListener(ctx)

	p.wg.Add(1)
	go p.claimLoop(ctx, notifyCh)

	concurrency := p.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.runLoop(ctx)
	}

	p.wg.Add(1)
	go p.completeLoop(ctx)

	p.wg.Add(1)
	go p.recoverLoop(ctx)

	logger.Info().Str("worker_id", p.id).Strs("queues", p.queues).Int("concurrency", concurrency).Msg("worker: started")
	return nil
}

// startListener opens a Postgres LISTEN connection on the worker's queues
// and forwards wake-ups onto a channel, falling back silently to polling
// (engine specification §4.1, "if unavailable, fall back to polling") if
// LISTEN cannot be established.
func (p *Pool) startListener(ctx context.Context) <-chan struct{} {
	notifyCh := make(chan struct{}, 1)

	listener, err := store.Listen(ctx, p.store, p.queues)
	if err != nil {
		logger.Warn().Err(err).Str("worker_id", p.id).Msg("worker: LISTEN unavailable, falling back to polling only")
		return notifyCh
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer listener.Close()
		for {
			if err := listener.WaitForNotification(ctx); err != nil {
				select {
				case <-ctx.Done():
					return
				case <-p.stopCh:
					return
				default:
				}
				logger.Warn().Err(err).Str("worker_id", p.id).Msg("worker: notification listener error, retrying")
				select {
				case <-time.After(time.Second):
				case <-p.stopCh:
					return
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case notifyCh <- struct{}{}:
			default:
			}
		}
	}()

	return notifyCh
}

// claimLoop is the Claimer sub-loop: it keeps the local queue topped up
// to a 2x-concurrency prefetch window, waiting on a notification or the
// poll interval whenever a claim comes back smaller than requested
// (engine specification §4.4, "Claimer").
func (p *Pool) claimLoop(ctx context.Context, notifyCh <-chan struct{}) {
	defer p.wg.Done()

	concurrency := p.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		if p.State() == StatePaused {
			select {
			case <-time.After(p.cfg.PollInterval):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		space := concurrency*2 - len(p.localQueue)
		if space < 1 {
			space = 1
		}

		batch, err := p.dispatcher.ClaimBatch(ctx, p.queues, p.id, space)
		if err != nil {
			logger.Error().Err(err).Str("worker_id", p.id).Msg("worker: claim batch failed")
			select {
			case <-time.After(p.cfg.PollInterval):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, e := range batch {
			select {
			case p.localQueue <- e:
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}

		if len(batch) < space {
			select {
			case <-notifyCh:
			case <-time.After(p.cfg.PollInterval):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// runLoop is one Executor slot: it pulls claimed Executions off the local
// queue and runs the Execute Protocol, one at a time, forever.
func (p *Pool) runLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case e := <-p.localQueue:
			p.runOne(ctx, e)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) runOne(ctx context.Context, e *execution.Execution) {
	p.activeMu.Lock()
	p.active++
	p.activeMu.Unlock()
	p.heartbeat.SetActiveTasks(p.ActiveExecutions())
	defer func() {
		p.activeMu.Lock()
		p.active--
		p.activeMu.Unlock()
		p.heartbeat.SetActiveTasks(p.ActiveExecutions())
	}()

	result := p.executor.Execute(ctx, e)

	switch result.Outcome {
	case OutcomeSuspended:
		// Already persisted by executeWorkflow; nothing further to report.
	case OutcomeCompleted:
		select {
		case p.completeCh <- completion{id: e.ID, output: result.Output}:
		case <-p.stopCh:
		case <-ctx.Done():
		}
	case OutcomeFailed:
		select {
		case p.completeCh <- completion{id: e.ID, failed: true, err: result.Err, retry: result.Retry}:
		case <-p.stopCh:
		case <-ctx.Done():
		}
	}
}

// completeLoop is the Completer sub-loop: successful outcomes are
// buffered and flushed as a batch every ~1ms or when the buffer crosses
// cfg.BatchSize; failures are flushed immediately (engine specification
// §4.4, "Completer").
func (p *Pool) completeLoop(ctx context.Context) {
	defer p.wg.Done()

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	buffer := make(map[string]execution.JSON)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		if err := p.dispatcher.CompleteBatch(ctx, buffer); err != nil {
			logger.Error().Err(err).Str("worker_id", p.id).Int("count", len(buffer)).Msg("worker: complete batch failed")
		}
		buffer = make(map[string]execution.JSON)
	}

	for {
		select {
		case c := <-p.completeCh:
			if c.failed {
				if err := p.dispatcher.Fail(ctx, c.id, c.err, c.retry); err != nil {
					logger.Error().Err(err).Str("worker_id", p.id).Str("execution_id", c.id).Msg("worker: fail report failed")
				}
				continue
			}
			buffer[c.id] = c.output
			if len(buffer) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.stopCh:
			p.drainCompletions(buffer, flush)
			return
		case <-ctx.Done():
			p.drainCompletions(buffer, flush)
			return
		}
	}
}

// drainCompletions flushes whatever the Completer already buffered plus
// anything still sitting in the channel, so a graceful shutdown does not
// drop outcomes the runners already produced.
func (p *Pool) drainCompletions(buffer map[string]execution.JSON, flush func()) {
	for {
		select {
		case c := <-p.completeCh:
			if c.failed {
				_ = p.dispatcher.Fail(context.Background(), c.id, c.err, c.retry)
				continue
			}
			buffer[c.id] = c.output
		default:
			flush()
			return
		}
	}
}

// recoverLoop is the Recoverer sub-loop: every Pool runs it and relies on
// RecoverDead being idempotent (engine specification §4.4, "Recoverer").
func (p *Pool) recoverLoop(ctx context.Context) {
	defer p.wg.Done()

	interval := p.cfg.HeartbeatTimeout
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			recovered, err := p.dispatcher.RecoverDead(ctx, p.cfg.HeartbeatTimeout)
			if err != nil {
				logger.Error().Err(err).Str("worker_id", p.id).Msg("worker: recover dead failed")
				continue
			}
			if recovered > 0 {
				logger.Info().Str("worker_id", p.id).Int("recovered", recovered).Msg("worker: recovered orphaned executions")
			}
		}
	}
}

// Pause stops the Claimer from pulling new work; in-flight Executions
// still run to completion.
func (p *Pool) Pause() {
	if p.State() == StateBusy {
		p.setState(StatePaused)
		logger.Info().Str("worker_id", p.id).Msg("worker: paused")
	}
}

// Resume restarts claiming after a Pause.
func (p *Pool) Resume() {
	if p.State() == StatePaused {
		p.setState(StateBusy)
		logger.Info().Str("worker_id", p.id).Msg("worker: resumed")
	}
}

// Stop performs the graceful shutdown sequence of engine specification
// §4.4: stop the Claimer, drain the Completer, wait up to
// cfg.ShutdownTimeout for in-flight Executions, then deregister.
// Deregistering marks the worker stopped and returns every Execution it
// still holds in running to pending at once, including work whose runner
// has not returned when the wait ends; that work does not stay running
// until a Recoverer picks it up.
func (p *Pool) Stop(ctx context.Context) error {
	p.setState(StateShuttingDown)
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Str("worker_id", p.id).Msg("worker: stopped gracefully")
	case <-time.After(p.cfg.ShutdownTimeout):
		logger.Warn().Str("worker_id", p.id).Msg("worker: shutdown timed out, in-flight work released to pending on deregistration")
	case <-ctx.Done():
		logger.Warn().Str("worker_id", p.id).Msg("worker: shutdown canceled")
	}

	p.heartbeat.Stop()
	return nil
}
