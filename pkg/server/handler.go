package server

import "net"

// ConnectionHandler is the per-connection protocol unit produced by a
// HandlerFactory for every accepted connection.
//
// Handlers own their connection for its entire lifetime. A handler must
// add itself to the shared ServerState connection set when it starts
// serving and remove itself when it closes; the set's size is the
// authoritative open-connection count used for drain decisions.
type ConnectionHandler interface {
	// Serve consumes the connection until it is closed. It is run on
	// its own goroutine by the accept loop.
	Serve(conn net.Conn)

	// Shutdown asks the handler to begin a graceful close. The handler
	// decides how to finish in-flight work. Must not block.
	Shutdown()
}

// HandlerFactory constructs a ConnectionHandler for an accepted
// connection. It is invoked with the server configuration, the shared
// ServerState, and a copy of the hosted application's shared state
// (nil when the application state is empty).
type HandlerFactory func(cfg *Config, state *ServerState, appState map[string]any) ConnectionHandler
