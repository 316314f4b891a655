// Package events provides the widget's publish/subscribe registry. It backs
// both internal state signaling and the SDK's public event hooks.
package events

import (
	"log/slog"
	"sync"
)

// Callback receives the arguments passed to Emit.
type Callback func(args ...any)

// Bus is a minimal event registry keyed by event name. Callbacks run
// synchronously on the emitting goroutine; a panicking callback is logged
// and never propagates to the emitter.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string]map[int]Callback
	nextID    int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string]map[int]Callback)}
}

// On registers a callback for an event and returns its subscription id.
func (b *Bus) On(event string, cb Callback) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if b.listeners[event] == nil {
		b.listeners[event] = make(map[int]Callback)
	}
	b.listeners[event][b.nextID] = cb
	return b.nextID
}

// Off removes a subscription. Unknown ids are ignored.
func (b *Bus) Off(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners[event], id)
}

// Emit invokes every callback registered for the event.
func (b *Bus) Emit(event string, args ...any) {
	b.mu.RLock()
	cbs := make([]Callback, 0, len(b.listeners[event]))
	for _, cb := range b.listeners[event] {
		cbs = append(cbs, cb)
	}
	b.mu.RUnlock()

	for _, cb := range cbs {
		invoke(event, cb, args)
	}
}

// RemoveAll drops every registered listener.
func (b *Bus) RemoveAll() {
	b.mu.Lock()
	b.listeners = make(map[string]map[int]Callback)
	b.mu.Unlock()
}

func invoke(event string, cb Callback, args []any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	cb(args...)
}
