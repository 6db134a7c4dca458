package server

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// maxRequestsCheckInterval is how often the max-requests monitor
	// re-checks the counter when no shutdown has been requested.
	maxRequestsCheckInterval = 100 * time.Millisecond

	// loopCancelTimeout bounds the wait for background loops to finish
	// after the control loop has been woken.
	loopCancelTimeout = time.Second

	// minLoopWait keeps loop timers strictly positive.
	minLoopWait = time.Millisecond
)

// mainLoop starts the background loops and blocks solely on the shared
// shutdown signal; there is no fixed-interval polling here. Once woken
// it cancels the loops and waits a bounded time for them to exit,
// tolerating stragglers.
func (s *Server) mainLoop(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, loopCtx := errgroup.WithContext(loopCtx)

	g.Go(func() error { return s.updateDateHeaderLoop(loopCtx) })
	if s.config.NotifyCallback != nil {
		g.Go(func() error { return s.notifyCallbackLoop(loopCtx) })
	}
	if s.config.LimitMaxRequests > 0 {
		g.Go(func() error { return s.checkMaxRequestsLoop(loopCtx) })
	}

	select {
	case <-s.state.ShutdownRequested():
	case <-ctx.Done():
		s.shouldExit.Store(true)
		s.state.RequestShutdown()
	}

	cancel()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(loopCancelTimeout):
		// Loops that did not finish in time are abandoned; they hold no
		// resources beyond their goroutine.
	}
}

// updateDateHeaderLoop rebuilds the default response headers once per
// second, waking at second boundaries.
func (s *Server) updateDateHeaderLoop(ctx context.Context) error {
	for {
		date := s.state.DateHeader()

		headers := make([]Header, 0, 1+len(s.config.Headers))
		if s.config.DateHeader {
			headers = append(headers, Header{Name: []byte("date"), Value: date})
		}
		headers = append(headers, s.config.Headers...)
		s.state.SetDefaultHeaders(headers)

		now := time.Now()
		wait := time.Until(now.Truncate(time.Second).Add(time.Second))
		if wait < minLoopWait {
			wait = minLoopWait
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.state.ShutdownRequested():
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// notifyCallbackLoop invokes the configured callback whenever the
// notify interval has elapsed since the last invocation. lastNotified
// starts at the zero time, so the first pass always invokes the
// callback; supervisors relying on keep-alive pings hear from the
// server as soon as it is up, not one interval later.
func (s *Server) notifyCallbackLoop(ctx context.Context) error {
	for {
		if time.Since(s.lastNotified) > s.config.NotifyInterval {
			s.config.NotifyCallback(ctx)
			s.lastNotified = time.Now()
		}

		wait := s.config.NotifyInterval - time.Since(s.lastNotified)
		if wait < minLoopWait {
			wait = minLoopWait
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.state.ShutdownRequested():
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// checkMaxRequestsLoop watches the completed-request counter and
// triggers graceful termination once the configured ceiling is met.
func (s *Server) checkMaxRequestsLoop(ctx context.Context) error {
	limit := uint64(s.config.LimitMaxRequests)

	for {
		if s.state.TotalRequests() >= limit {
			s.logger.Warn("maximum request limit exceeded, terminating",
				"limit", limit)
			s.shouldExit.Store(true)
			s.state.RequestShutdown()
			return nil
		}

		timer := time.NewTimer(maxRequestsCheckInterval)
		select {
		case <-s.state.ShutdownRequested():
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
