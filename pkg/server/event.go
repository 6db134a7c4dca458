package server

import (
	"context"
	"sync"
	"time"
)

// Event is a binary, settable/clearable, awaitable flag.
//
// Set broadcasts to every waiter by closing an internal channel; Clear
// re-arms the event with a fresh channel. It is the one-shot wait/notify
// primitive handed out by the EventPool and the shutdown signal observed
// by every background loop.
type Event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewEvent returns a new Event in the unset state.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set marks the event. All current and future waiters are released.
// Setting an already-set event is a no-op.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear returns the event to the unset state.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports whether the event is currently set.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Done returns a channel that is closed while the event is set.
// The returned channel is only valid until the next Clear.
func (e *Event) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}

// Wait blocks until the event is set or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout blocks until the event is set or the timeout elapses.
// It reports true if the event was set.
func (e *Event) WaitTimeout(d time.Duration) bool {
	done := e.Done()
	select {
	case <-done:
		return true
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
