// Package events is a small in-process bus for lifecycle and tracking
// notifications consumed by collaborators (notification delivery,
// observability).
package events

import (
	"sync"
	"time"
)

// Event names emitted by the engine.
const (
	ExperimentCreated = "test:created"
	ExperimentStarted = "test:started"
	ExperimentPaused  = "test:paused"
	ExperimentStopped = "test:stopped"
	ConversionTracked = "conversion:tracked"
)

// Event is a single engine notification.
type Event struct {
	Name         string
	ExperimentID string
	VariantID    string
	UserID       string
	Reason       string
	At           time.Time
}

// Handler receives emitted events. Handlers run synchronously on the
// emitting goroutine and must not block.
type Handler func(Event)

// Bus fans events out to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit delivers the event to every handler. A nil bus is a no-op.
func (b *Bus) Emit(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
