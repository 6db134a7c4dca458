package server

import "sync"

// DefaultEventPoolSize is the capacity ceiling for the event pool.
const DefaultEventPoolSize = 1000

// EventPool is a bounded pool of reusable Events.
//
// Under high request rates handlers need a fresh one-shot signal per
// request; the pool trades a small fixed amount of memory for avoiding
// that per-request allocation. Reuse is best-effort: losing a race for
// the last pooled event falls back to allocation, never blocks.
type EventPool struct {
	mu      sync.Mutex
	events  []*Event
	maxSize int
}

// NewEventPool creates a pool with the given capacity ceiling.
// A capacity of 0 degrades the pool to pure allocate-on-demand.
func NewEventPool(maxSize int) *EventPool {
	if maxSize < 0 {
		maxSize = 0
	}
	return &EventPool{
		events:  make([]*Event, 0, min(maxSize, DefaultEventPoolSize)),
		maxSize: maxSize,
	}
}

// Acquire returns an unset Event, reusing a pooled one when available.
func (p *EventPool) Acquire() *Event {
	p.mu.Lock()
	if n := len(p.events); n > 0 {
		ev := p.events[n-1]
		p.events[n-1] = nil
		p.events = p.events[:n-1]
		p.mu.Unlock()
		ev.Clear()
		return ev
	}
	p.mu.Unlock()
	return NewEvent()
}

// Release clears the event and returns it to the pool if there is room.
// Events released beyond capacity are discarded. Never blocks.
func (p *EventPool) Release(ev *Event) {
	if ev == nil {
		return
	}
	ev.Clear()
	p.mu.Lock()
	if len(p.events) < p.maxSize {
		p.events = append(p.events, ev)
	}
	p.mu.Unlock()
}

// Len returns the current number of pooled events.
func (p *EventPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
