package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Server binds listeners, runs the event-driven control loop, and
// executes the multi-phase graceful shutdown. It owns one ServerState
// shared by reference with every connection handler.
type Server struct {
	config   *Config
	state    *ServerState
	lifespan Lifespan
	logger   *slog.Logger
	tracer   trace.Tracer

	listeners []net.Listener
	acceptWG  sync.WaitGroup

	started    atomic.Bool
	serving    atomic.Bool
	shouldExit atomic.Bool
	forceExit  atomic.Bool

	// lastNotified is only touched by the notify loop. Its zero value
	// makes the loop's first pass invoke the callback immediately.
	lastNotified time.Time

	sigMu           sync.Mutex
	capturedSignals []os.Signal
}

// New creates a Server from the given configuration, filling in
// defaults for any unset fields.
func New(cfg *Config) *Server {
	cfg = cfg.withDefaults()

	state := NewServerState()
	if cfg.MetricsRegistry != nil {
		state.metrics = newServerMetrics(cfg.MetricsRegistry)
	}

	return &Server{
		config:   cfg,
		state:    state,
		lifespan: cfg.Lifespan,
		logger:   cfg.Logger.With("component", "server"),
		tracer:   otel.Tracer("uvicorn/server"),
	}
}

// State returns the shared server state.
func (s *Server) State() *ServerState {
	return s.state
}

// Started reports whether startup completed and the server is (or was)
// accepting connections.
func (s *Server) Started() bool {
	return s.started.Load()
}

// ShouldExit reports whether graceful termination has been requested.
func (s *Server) ShouldExit() bool {
	return s.shouldExit.Load()
}

// ForceExit reports whether an immediate exit was requested (second
// interrupt while already exiting).
func (s *Server) ForceExit() bool {
	return s.forceExit.Load()
}

// Run serves with OS signal handling installed for the duration of the
// call. Previously installed handlers are restored on exit and every
// captured signal is re-raised, most recent first, so an enclosing
// supervisor observes the same signals that triggered this shutdown.
func (s *Server) Run() error {
	restore := s.captureSignals()
	defer restore()
	return s.Serve(context.Background())
}

// Serve runs the full server lifecycle: startup, control loop, graceful
// shutdown. It blocks until shutdown completes. Cancelling ctx is
// equivalent to requesting graceful termination.
//
// Unlike Run, Serve installs no signal handlers; use it when signal
// coordination is owned elsewhere (supervisors, tests).
func (s *Server) Serve(ctx context.Context) error {
	if !s.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	ctx, span := s.tracer.Start(ctx, "server.serve")
	defer span.End()

	pid := os.Getpid()
	s.logger.Info("started server process", "pid", pid)

	if err := s.startup(ctx); err != nil {
		return err
	}
	if s.shouldExit.Load() {
		return nil
	}

	s.mainLoop(ctx)
	s.shutdown(ctx)

	s.logger.Info("finished server process", "pid", pid)
	return nil
}

// startup runs the application startup handshake, binds listeners, and
// starts the accept loops.
func (s *Server) startup(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "server.startup")
	defer span.End()

	if s.config.Factory == nil {
		return ErrNoHandlerFactory
	}

	if err := s.lifespan.Startup(ctx); err != nil {
		return fmt.Errorf("server: lifespan startup: %w", err)
	}
	if s.lifespan.ShouldExit() {
		s.shouldExit.Store(true)
		return nil
	}

	listeners, err := s.bindListeners()
	if err != nil {
		// Fatal: notify the hosted application, then surface the error
		// so the process can exit non-zero.
		s.logger.Error("listener bind failed", "error", err)
		if shutdownErr := s.lifespan.Shutdown(ctx); shutdownErr != nil {
			s.logger.Error("lifespan shutdown failed", "error", shutdownErr)
		}
		return err
	}
	s.listeners = listeners

	for _, ln := range s.listeners {
		s.acceptWG.Add(1)
		go s.acceptLoop(ln)
	}

	s.logStarted()
	s.started.Store(true)
	return nil
}

// logStarted logs where the server is reachable, per socket source.
func (s *Server) logStarted() {
	cfg := s.config

	switch {
	case len(cfg.Listeners) > 0:
		// A supervisor bound these sockets and already announced them.
	case cfg.FD > 0:
		s.logger.Info("uvicorn running on inherited socket",
			"fd", cfg.FD, "addr", s.listeners[0].Addr().String())
	case cfg.UDS != "":
		s.logger.Info("uvicorn running on unix socket", "path", cfg.UDS)
	default:
		scheme := "http"
		if cfg.TLSConfig != nil {
			scheme = "https"
		}
		addr := s.listeners[0].Addr().String()
		s.logger.Info(fmt.Sprintf("uvicorn running on %s://%s (press CTRL+C to quit)", scheme, addr))
	}
}

// Addrs returns the bound listener addresses. Useful when port 0
// requested an ephemeral port.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}
