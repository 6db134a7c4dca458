package server

import "errors"

// Sentinel errors for common server lifecycle conditions.
var (
	// ErrBind is returned when a listener could not be bound on the
	// host/port path. It is fatal: callers should notify the hosted
	// application and exit non-zero.
	ErrBind = errors.New("server: failed to bind listener")

	// ErrAlreadyServing is returned when Serve is called on a server
	// that is already running.
	ErrAlreadyServing = errors.New("server: already serving")

	// ErrNoHandlerFactory is returned when no connection handler
	// factory was configured.
	ErrNoHandlerFactory = errors.New("server: no handler factory configured")

	// ErrGracefulTimeout is the cancellation cause attached to tasks
	// that are force-cancelled when the drain deadline elapses.
	ErrGracefulTimeout = errors.New("server: task cancelled, timeout graceful shutdown exceeded")
)
