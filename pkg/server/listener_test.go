package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestBindListeners_TCP(t *testing.T) {
	cfg := testConfig()
	srv := New(cfg)

	listeners, err := srv.bindListeners()
	if err != nil {
		t.Fatalf("bindListeners() error: %v", err)
	}
	t.Cleanup(func() { closeAll(listeners) })

	if len(listeners) != 1 {
		t.Fatalf("bindListeners() returned %d listeners, want 1", len(listeners))
	}
	addr := listeners[0].Addr().(*net.TCPAddr)
	if addr.Port == 0 {
		t.Error("ephemeral port was not resolved at bind time")
	}
}

func TestBindListeners_UnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uvicorn.sock")
	cfg := testConfig()
	cfg.UDS = path
	srv := New(cfg)

	listeners, err := srv.bindListeners()
	if err != nil {
		t.Fatalf("bindListeners() error: %v", err)
	}
	t.Cleanup(func() { closeAll(listeners) })

	if got := listeners[0].Addr().Network(); got != "unix" {
		t.Errorf("Addr().Network() = %q, want unix", got)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatalf("dial unix socket: %v", err)
	}
	conn.Close()
}

func TestBindListeners_PreBoundTakesPrecedence(t *testing.T) {
	prebound, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { prebound.Close() })

	cfg := testConfig()
	cfg.Listeners = []net.Listener{prebound}
	cfg.UDS = filepath.Join(t.TempDir(), "ignored.sock")
	cfg.Port = 1 // would fail to bind; must never be attempted
	srv := New(cfg)

	listeners, err := srv.bindListeners()
	if err != nil {
		t.Fatalf("bindListeners() error: %v", err)
	}
	if len(listeners) != 1 {
		t.Fatalf("bindListeners() returned %d listeners, want 1", len(listeners))
	}
	if got := listeners[0].Addr().String(); got != prebound.Addr().String() {
		t.Errorf("listener addr = %q, want pre-bound %q", got, prebound.Addr())
	}
}

func TestServer_ServesOnUnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.sock")
	cfg := testConfig()
	cfg.UDS = path

	srv, errCh := startServer(t, cfg)

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatalf("dial unix socket: %v", err)
	}
	conn.Close()

	srv.State().RequestShutdown()
	if err := waitServe(t, errCh, 2*time.Second); err != nil {
		t.Fatalf("Serve() error: %v", err)
	}
}

func TestServer_PreBoundListenerIsClosedOnShutdown(t *testing.T) {
	prebound, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := testConfig()
	cfg.Listeners = []net.Listener{prebound}

	srv := New(cfg)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background()) }()
	waitUntil(t, 2*time.Second, srv.Started, "server did not start")

	srv.State().RequestShutdown()
	if err := waitServe(t, errCh, 2*time.Second); err != nil {
		t.Fatalf("Serve() error: %v", err)
	}

	if _, err := prebound.Accept(); err == nil {
		t.Error("pre-bound listener still accepting after shutdown")
	}
}

func closeAll(listeners []net.Listener) {
	for _, ln := range listeners {
		ln.Close()
	}
}
