package server

import "context"

// Lifespan is the startup/shutdown handshake with the hosted
// application. The server calls Startup before binding listeners and
// Shutdown after draining, and hands State to every connection handler.
type Lifespan interface {
	// Startup runs the application startup handshake.
	Startup(ctx context.Context) error

	// Shutdown runs the application shutdown handshake.
	Shutdown(ctx context.Context) error

	// ShouldExit reports whether the application requested exit during
	// startup. When true the server stops before serving.
	ShouldExit() bool

	// State returns the application's shared mutable state. A copy is
	// handed to each connection handler when non-empty.
	State() map[string]any
}

// NopLifespan is a Lifespan that does nothing. It is the default when
// no hosted application handshake is configured.
type NopLifespan struct {
	// AppState is returned from State. May be nil.
	AppState map[string]any
}

func (l *NopLifespan) Startup(context.Context) error  { return nil }
func (l *NopLifespan) Shutdown(context.Context) error { return nil }
func (l *NopLifespan) ShouldExit() bool               { return false }
func (l *NopLifespan) State() map[string]any          { return l.AppState }
