package server

import (
	"os"
	"os/signal"
)

// captureSignals installs handlers for the platform's interrupt and
// termination signals and returns a restore function.
//
// The restore function uninstalls the handlers and then re-raises every
// captured signal, most-recently-received first, so that an enclosing
// process supervisor observes the same signals that triggered this
// shutdown.
func (s *Server) captureSignals() (restore func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, handledSignals...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sig := range ch {
			s.HandleExit(sig)
		}
	}()

	return func() {
		signal.Stop(ch)
		close(ch)
		<-done

		s.sigMu.Lock()
		captured := make([]os.Signal, len(s.capturedSignals))
		copy(captured, s.capturedSignals)
		s.sigMu.Unlock()

		for i := len(captured) - 1; i >= 0; i-- {
			raiseSignal(captured[i])
		}
	}
}

// HandleExit records a received OS signal and requests termination.
// The first signal requests a graceful exit; an interrupt received
// while already exiting elevates it to a forced exit. Always wakes the
// control loop immediately.
func (s *Server) HandleExit(sig os.Signal) {
	s.sigMu.Lock()
	s.capturedSignals = append(s.capturedSignals, sig)
	s.sigMu.Unlock()

	if s.shouldExit.Load() && sig == os.Interrupt {
		s.forceExit.Store(true)
	} else {
		s.shouldExit.Store(true)
	}

	s.state.RequestShutdown()
}

// CapturedSignals returns the ordered log of signals received so far.
func (s *Server) CapturedSignals() []os.Signal {
	s.sigMu.Lock()
	defer s.sigMu.Unlock()
	out := make([]os.Signal, len(s.capturedSignals))
	copy(out, s.capturedSignals)
	return out
}
