package server

import (
	"context"
	"time"
)

const (
	// shutdownGraceDelay lets in-flight handler shutdowns start before
	// the drain wait begins.
	shutdownGraceDelay = 100 * time.Millisecond

	// drainPollInterval is the cadence at which the drain wait
	// re-checks the connection and task sets.
	drainPollInterval = 100 * time.Millisecond
)

// shutdown executes the multi-phase graceful shutdown: stop accepting,
// ask every registered connection to close, drain with a bounded wait,
// force-cancel whatever remains, then run the application shutdown
// handshake unless a forced exit was requested.
//
// A drain timeout is a logged degradation, not an error; shutdown
// always completes.
func (s *Server) shutdown(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "server.shutdown")
	defer span.End()

	s.logger.Info("shutting down")

	// Stop accepting new connections.
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	for _, ln := range s.config.Listeners {
		_ = ln.Close()
	}

	// Ask every live connection to begin its own graceful close. The
	// snapshot keeps handler deregistration from racing the iteration.
	for _, conn := range s.state.Connections() {
		conn.Shutdown()
	}
	time.Sleep(shutdownGraceDelay)

	if !s.waitForDrain() {
		tasks := s.state.Tasks()
		s.logger.Error("graceful shutdown timeout exceeded, cancelling tasks",
			"tasks", len(tasks))
		for _, t := range tasks {
			t.Cancel(ErrGracefulTimeout)
		}
		if s.state.metrics != nil {
			s.state.metrics.forcedCancels.Add(float64(len(tasks)))
		}
	}

	if !s.forceExit.Load() {
		if err := s.lifespan.Shutdown(ctx); err != nil {
			s.logger.Error("lifespan shutdown failed", "error", err)
		}
	}
}

// waitForDrain waits for the connection and task sets to empty and for
// every accept loop to stop, bounded by the configured graceful
// shutdown timeout. It reports false when the deadline elapsed first.
func (s *Server) waitForDrain() bool {
	var deadline <-chan time.Time
	if d := s.config.TimeoutGracefulShutdown; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	if s.state.ConnectionCount() > 0 && !s.drainAborted() {
		s.logger.Info("waiting for connections to close (press CTRL+C to force quit)")
		if !s.pollUntil(deadline, func() bool { return s.state.ConnectionCount() == 0 }) {
			return false
		}
	}

	if s.state.TaskCount() > 0 && !s.drainAborted() {
		s.logger.Info("waiting for background tasks to complete (press CTRL+C to force quit)")
		if !s.pollUntil(deadline, func() bool { return s.state.TaskCount() == 0 }) {
			return false
		}
	}

	// The accept loops exit promptly once their listeners are closed.
	s.acceptWG.Wait()
	return true
}

// pollUntil re-checks cond at the drain poll cadence until it holds,
// the drain is aborted by a forced exit, or the deadline fires.
func (s *Server) pollUntil(deadline <-chan time.Time, cond func() bool) bool {
	for !cond() {
		if s.drainAborted() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(drainPollInterval):
		}
	}
	return true
}

// drainAborted reports whether a forced exit should cut the drain wait
// short, per the configured force-exit policy.
func (s *Server) drainAborted() bool {
	return s.forceExit.Load() && s.config.ForceExitAbortsDrain
}
