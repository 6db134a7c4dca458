package server

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_StateCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.MetricsRegistry = reg
	srv := New(cfg)
	state := srv.State()
	m := state.metrics

	h := &closeHandler{}
	state.AddConnection(h)
	if got := testutil.ToFloat64(m.connectionsActive); got != 1 {
		t.Errorf("connections_active = %v after register, want 1", got)
	}

	state.RemoveConnection(h)
	if got := testutil.ToFloat64(m.connectionsActive); got != 0 {
		t.Errorf("connections_active = %v after deregister, want 0", got)
	}

	// Removing a handler that is not registered must not decrement.
	state.RemoveConnection(h)
	if got := testutil.ToFloat64(m.connectionsActive); got != 0 {
		t.Errorf("connections_active = %v after duplicate remove, want 0", got)
	}

	task := NewTask("stream", func(error) {})
	state.AddTask(task)
	if got := testutil.ToFloat64(m.tasksActive); got != 1 {
		t.Errorf("tasks_active = %v after register, want 1", got)
	}
	state.RemoveTask(task)
	state.RemoveTask(task)
	if got := testutil.ToFloat64(m.tasksActive); got != 0 {
		t.Errorf("tasks_active = %v after deregister, want 0", got)
	}

	state.RequestServed()
	state.RequestServed()
	if got := testutil.ToFloat64(m.requestsTotal); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"uvicorn_connections_active",
		"uvicorn_tasks_active",
		"uvicorn_requests_total",
		"uvicorn_forced_task_cancellations_total",
	} {
		if !names[want] {
			t.Errorf("registry is missing %s", want)
		}
	}
}

func TestMetrics_ForcedCancelsOnDrainTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.MetricsRegistry = reg
	cfg.TimeoutGracefulShutdown = 200 * time.Millisecond
	cfg.Factory = func(_ *Config, state *ServerState, _ map[string]any) ConnectionHandler {
		return &stickyHandler{state: state, release: release}
	}

	srv, errCh := startServer(t, cfg)
	m := srv.State().metrics

	conn, err := net.Dial(srv.Addrs()[0].Network(), srv.Addrs()[0].String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitUntil(t, 2*time.Second, func() bool { return srv.State().ConnectionCount() == 1 },
		"connection was not registered")
	if got := testutil.ToFloat64(m.connectionsActive); got != 1 {
		t.Errorf("connections_active = %v with one open connection, want 1", got)
	}

	srv.State().AddTask(NewTask("stream", func(error) {}))

	srv.State().RequestShutdown()
	if err := waitServe(t, errCh, 3*time.Second); err != nil {
		t.Fatalf("Serve() error: %v", err)
	}

	if got := testutil.ToFloat64(m.forcedCancels); got != 1 {
		t.Errorf("forced_task_cancellations_total = %v after drain timeout, want 1", got)
	}
}
