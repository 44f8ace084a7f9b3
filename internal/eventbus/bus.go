// ABOUTME: Event bus that multiplexes platform events to module listeners
// ABOUTME: Tracks platform attachments so Close can detach them all

package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/coven-clan/internal/platform"
)

// Source is where platform events come from. platform.Client satisfies it.
type Source interface {
	On(event string, handler platform.Handler) (remove func())
}

// Bus delivers platform and in-process events to listeners.
type Bus struct {
	source    Source
	listeners platform.Listeners
	logger    *slog.Logger

	mu       sync.Mutex
	attached map[string]func() // event name -> platform detach
	closed   bool
	inflight sync.WaitGroup // platform deliveries still running
}

// New creates a bus reading from source. Pass nil logger for default.
func New(source Source, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		source:   source,
		logger:   logger.With("component", "eventbus"),
		attached: make(map[string]func()),
	}
}

// On registers a listener. The returned function removes it.
func (b *Bus) On(event string, handler platform.Handler) func() {
	remove := b.listeners.On(event, handler)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		remove()
		return func() {}
	}
	if _, ok := b.attached[event]; !ok && b.source != nil {
		b.attached[event] = b.source.On(event, func(ctx context.Context, payload any) {
			if !b.enter() {
				return
			}
			defer b.inflight.Done()
			b.listeners.Emit(ctx, event, payload)
		})
		b.logger.Debug("attached to platform event", "event", event)
	}

	b.logger.Debug("listener added", "event", event, "listeners", b.listeners.Count(event))
	return remove
}

// enter registers a platform delivery. It reports false once the bus is closed.
func (b *Bus) enter() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.inflight.Add(1)
	return true
}

// Emit delivers an in-process event to listeners on the calling goroutine.
func (b *Bus) Emit(ctx context.Context, event string, payload any) {
	b.listeners.Emit(ctx, event, payload)
}

// Listeners returns the number of listeners registered for event.
func (b *Bus) Listeners(event string) int {
	return b.listeners.Count(event)
}

// Close detaches from the platform, waits for platform deliveries already
// running, and drops every listener. It must not be called from a listener.
func (b *Bus) Close() {
	b.mu.Lock()
	for event, detach := range b.attached {
		detach()
		delete(b.attached, event)
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	b.listeners.Clear()

	b.logger.Debug("event bus closed")
}
