package server

import (
	"sync"
	"testing"
)

func TestEventPool_AcquireReturnsUnsetEvents(t *testing.T) {
	pool := NewEventPool(10)

	ev := pool.Acquire()
	ev.Set()
	pool.Release(ev)

	for i := 0; i < 20; i++ {
		got := pool.Acquire()
		if got.IsSet() {
			t.Fatalf("acquire %d returned a set event", i)
		}
		got.Set()
		pool.Release(got)
	}
}

func TestEventPool_CapacityBound(t *testing.T) {
	pool := NewEventPool(DefaultEventPoolSize)

	// Acquire 1500 fresh events, then release them all; the pool must
	// settle at exactly the ceiling and discard the rest.
	events := make([]*Event, 0, 1500)
	for i := 0; i < 1500; i++ {
		events = append(events, pool.Acquire())
	}
	for _, ev := range events {
		pool.Release(ev)
	}
	if got := pool.Len(); got != DefaultEventPoolSize {
		t.Errorf("pool size = %d, want %d", got, DefaultEventPoolSize)
	}
}

func TestEventPool_ZeroCapacityNeverReuses(t *testing.T) {
	pool := NewEventPool(0)

	ev := pool.Acquire()
	pool.Release(ev)

	if pool.Len() != 0 {
		t.Fatalf("pool size = %d, want 0", pool.Len())
	}
	if got := pool.Acquire(); got == ev {
		t.Error("zero-capacity pool returned a previously released event")
	}
}

func TestEventPool_ConcurrentAcquireRelease(t *testing.T) {
	pool := NewEventPool(8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				ev := pool.Acquire()
				if ev.IsSet() {
					t.Error("acquired a set event")
					return
				}
				ev.Set()
				pool.Release(ev)
			}
		}()
	}
	wg.Wait()

	if got := pool.Len(); got > 8 {
		t.Errorf("pool size = %d exceeds capacity 8", got)
	}
}
