package memory

import (
	"context"
	"sync"

	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
)

type subscription struct {
	ctx     context.Context
	handler ports.EventHandler
}

// InMemoryEventBus implements EventBus with direct handler dispatch. Used in
// tests and single-node deployments without Redis.
type InMemoryEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]*subscription
	closed      bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]*subscription),
	}
}

// Publish delivers an event to all subscribers of a topic (ports.EventBus interface)
func (e *InMemoryEventBus) Publish(_ context.Context, topic string, event domain.Event) error {
	e.mu.Lock()
	subs := e.subscribers[topic]
	kept := subs[:0]
	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		kept = append(kept, s)
	}
	e.subscribers[topic] = kept
	active := append([]*subscription(nil), kept...)
	e.mu.Unlock()

	// Handlers run asynchronously to match the Redis bus behavior.
	for _, s := range active {
		go func(s *subscription) {
			_ = s.handler(s.ctx, event)
		}(s)
	}

	return nil
}

// Subscribe registers a handler for a topic (ports.EventBus interface).
// The handler stops receiving events once ctx is done.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.subscribers[topic] = append(e.subscribers[topic], &subscription{ctx: ctx, handler: handler})
	return nil
}

// Close drops all subscriptions (ports.EventBus interface)
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.subscribers = make(map[string][]*subscription)
	return nil
}
