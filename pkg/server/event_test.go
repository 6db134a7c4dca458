package server

import (
	"context"
	"testing"
	"time"
)

func TestEvent_SetReleasesWaiters(t *testing.T) {
	ev := NewEvent()

	done := make(chan struct{})
	go func() {
		ev.Wait(context.Background())
		close(done)
	}()

	ev.Set()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released after Set")
	}
	if !ev.IsSet() {
		t.Error("IsSet() = false after Set")
	}
}

func TestEvent_SetIsIdempotent(t *testing.T) {
	ev := NewEvent()
	ev.Set()
	ev.Set() // must not panic on double close
	if !ev.IsSet() {
		t.Error("IsSet() = false after double Set")
	}
}

func TestEvent_ClearRearms(t *testing.T) {
	ev := NewEvent()
	ev.Set()
	ev.Clear()

	if ev.IsSet() {
		t.Error("IsSet() = true after Clear")
	}
	if ev.WaitTimeout(10 * time.Millisecond) {
		t.Error("WaitTimeout returned true on a cleared event")
	}

	ev.Set()
	if !ev.WaitTimeout(time.Second) {
		t.Error("WaitTimeout returned false on a re-set event")
	}
}

func TestEvent_WaitHonorsContext(t *testing.T) {
	ev := NewEvent()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := ev.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}
