package bus

import (
	"context"
	"sync"

	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
)

// MemoryBus is an in-process event bus. Dispatch is synchronous: Publish
// returns after every handler has run, which keeps event ordering aligned
// with the ablate/measure/restore cycle that produces them.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	log      *logger.Logger
}

// NewMemoryBus creates a new in-memory event bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		log:      logger.Default(),
	}
}

// Publish delivers an event to all subscribers of a topic. Handler errors are
// logged, not propagated; a misbehaving listener cannot fail a run.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	for _, handler := range b.handlers[topic] {
		if err := handler(ctx, event); err != nil {
			b.log.WithError(err).Warn("event handler failed", "topic", topic)
		}
	}
	return nil
}

// Subscribe registers a handler for events on a topic.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Close closes the bus.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
