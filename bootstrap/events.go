package bootstrap

import (
	"context"
	"sync"
)

// EventKind identifies the kind of an ambient event.
type EventKind int

const (
	// EventError is a runtime error reported by any component.
	EventError EventKind = iota
	// EventRejection is an unhandled asynchronous failure.
	EventRejection
	// EventVisibility reports the client becoming visible or hidden.
	EventVisibility
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventError:
		return "error"
	case EventRejection:
		return "rejection"
	case EventVisibility:
		return "visibility"
	default:
		return "unknown"
	}
}

// Event is published on an EventBus.
type Event struct {
	Kind    EventKind
	Message string
	Visible bool
}

// Handler receives events. Returning true marks the event handled, which
// tells the publisher to skip its default reporting.
type Handler func(ctx context.Context, ev Event) bool

// EventBus delivers events synchronously to its subscribers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[uint64]Handler
	next uint64
}

// NewEventBus creates a bus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it. The
// returned function is idempotent.
func (b *EventBus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber and reports whether any handled it.
func (b *EventBus) Publish(ctx context.Context, ev Event) bool {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	handled := false
	for _, h := range handlers {
		if h(ctx, ev) {
			handled = true
		}
	}
	return handled
}

// PublishError publishes err as an EventError. nil is ignored.
func (b *EventBus) PublishError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return b.Publish(ctx, Event{Kind: EventError, Message: err.Error()})
}

// PublishRejection publishes an EventRejection with reason.
func (b *EventBus) PublishRejection(ctx context.Context, reason string) bool {
	return b.Publish(ctx, Event{Kind: EventRejection, Message: reason})
}

// PublishVisibility publishes an EventVisibility.
func (b *EventBus) PublishVisibility(ctx context.Context, visible bool) bool {
	return b.Publish(ctx, Event{Kind: EventVisibility, Visible: visible})
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
