// ABOUTME: Package eventbus fans platform and in-process events out to module listeners
// ABOUTME: Also provides the bounded background queue used for best-effort side effects

// Package eventbus connects module listeners to the platform event stream.
//
// Bus attaches to the platform client once per event name, on the first
// listener for that name, and delivers every event to all listeners in
// registration order. Modules also publish in-process events with Emit.
// Close detaches everything.
//
// Queue runs best-effort work off the event path. Submit never blocks: when
// the buffer is full the task is dropped with a warning. Task errors are logged.
package eventbus
