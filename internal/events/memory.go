package events

import (
	"context"
	"sync"
)

// subscriberBuffer is how many pending Events a slow Subscribe caller may
// accumulate before new Events for it are dropped.
const subscriberBuffer = 64

// MemoryPublisher is an in-process Publisher: it fans an Event out to every
// live Subscribe channel whose filter matches. It requires no external
// broker, matching the engine's "one store is the source of truth"
// design — this layer is best-effort observability, not a delivery
// guarantee, so an in-process hub is sufficient and keeps the WebSocket
// fan-out (internal/api/websocket) in the same process as the Worker that
// produces the events it reports.
type MemoryPublisher struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	ch     chan *Event
	filter map[EventType]bool
}

// NewMemoryPublisher constructs a ready-to-use MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{subs: make(map[int]*subscription)}
}

// Publish delivers event to every Subscribe channel whose filter accepts
// its Type, dropping it for any subscriber whose channel is full rather
// than blocking the caller.
func (p *MemoryPublisher) Publish(ctx context.Context, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.subs {
		if len(sub.filter) > 0 && !sub.filter[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving every future Event whose Type is
// in eventTypes (or every Event, if eventTypes is empty). The channel is
// closed and the subscription removed when ctx is cancelled.
func (p *MemoryPublisher) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	filter := make(map[EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		filter[t] = true
	}

	sub := &subscription{ch: make(chan *Event, subscriberBuffer), filter: filter}

	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = sub
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		_, live := p.subs[id]
		delete(p.subs, id)
		p.mu.Unlock()
		if live {
			close(sub.ch)
		}
	}()

	return sub.ch, nil
}

// Close removes every live subscription, closing their channels.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sub := range p.subs {
		close(sub.ch)
		delete(p.subs, id)
	}
	return nil
}
