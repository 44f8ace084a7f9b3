// ABOUTME: Listener registry shared by platform adapters for Client.On
// ABOUTME: Handlers are keyed by event name and subscription ID and invoked in registration order

package platform

import (
	"context"
	"sync"
)

// Listeners is a concurrency-safe handler registry. The zero value is ready to use.
type Listeners struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string][]subscription
}

type subscription struct {
	id      uint64
	handler Handler
}

// On registers a handler and returns a function that removes it. The remover is idempotent.
func (l *Listeners) On(event string, handler Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = make(map[string][]subscription)
	}
	l.next++
	id := l.next
	l.handlers[event] = append(l.handlers[event], subscription{id: id, handler: handler})

	return func() { l.remove(event, id) }
}

func (l *Listeners) remove(event string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.handlers[event]
	for i, s := range subs {
		if s.id == id {
			l.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(l.handlers[event]) == 0 {
		delete(l.handlers, event)
	}
}

// Emit invokes every handler registered for event on the calling goroutine.
func (l *Listeners) Emit(ctx context.Context, event string, payload any) {
	l.mu.RLock()
	subs := make([]subscription, len(l.handlers[event]))
	copy(subs, l.handlers[event])
	l.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, payload)
	}
}

// Count returns the number of handlers registered for event.
func (l *Listeners) Count(event string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers[event])
}

// Clear removes every handler.
func (l *Listeners) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = nil
}
