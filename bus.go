package asyncfsm

import (
	"fmt"
	"slices"
	"sync"
)

// Handler reacts to an event. A nil return means the handler finished
// synchronously; otherwise the event is complete once the future settles.
type Handler func(payload ...any) *Future

// ListenerID identifies a registered handler for later removal
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Handler
}

// EventBus is a named-event pub/sub whose Emit waits for every handler
type EventBus struct {
	mu        sync.Mutex
	listeners map[string][]listener
	nextID    ListenerID
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[string][]listener),
	}
}

// On appends h to the handlers of event. The same function may be
// registered more than once.
func (b *EventBus) On(event string, h Handler) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[event] = append(b.listeners[event], listener{id: b.nextID, fn: h})
	return b.nextID
}

// RemoveListener removes the handler registered under id for event.
// Returns false if no such handler exists.
func (b *EventBus) RemoveListener(event string, id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[event]
	for i, l := range ls {
		if l.id != id {
			continue
		}
		ls = append(ls[:i:i], ls[i+1:]...)
		if len(ls) == 0 {
			delete(b.listeners, event)
		} else {
			b.listeners[event] = ls
		}
		return true
	}
	return false
}

// ListenerCount returns the number of handlers registered for event
func (b *EventBus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// Emit calls every handler of event in registration order, in the calling
// goroutine, before returning. The returned future resolves once all handler
// futures have resolved and rejects with the first failure observed.
func (b *EventBus) Emit(event string, payload ...any) *Future {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners[event]))
	copy(ls, b.listeners[event])
	b.mu.Unlock()

	futures := make([]*Future, 0, len(ls))
	for _, l := range ls {
		futures = append(futures, invoke(event, l.fn, payload))
	}
	return All(futures...)
}

func invoke(event string, h Handler, payload []any) (f *Future) {
	defer func() {
		if r := recover(); r != nil {
			f = Rejected(fmt.Errorf("%w: %s: %v", ErrListenerPanic, event, r))
		}
	}()
	// each handler gets its own copy so writes stay local to it
	return h(slices.Clone(payload)...)
}
