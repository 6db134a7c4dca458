// Package server implements the lifecycle and concurrency control
// plane of a high-throughput connection server.
//
// The server binds listeners across heterogeneous socket sources
// (pre-bound sockets, inherited file descriptors, UNIX domain sockets,
// or host/port pairs), dispatches accepted connections to
// per-connection protocol handlers, and coordinates graceful startup,
// draining, and shutdown under concurrent load.
//
// # Architecture
//
//   - ServerState: shared registry visible to every handler — the live
//     connection set, the background task set, the default response
//     headers, a bounded Event pool, and the shutdown signal
//   - EventPool: bounded reuse of one-shot wait/notify Events
//   - DateHeaderCache: second-granularity cached HTTP date value
//   - Server: binds listeners, runs the control loop and its three
//     background loops, and executes the multi-phase graceful shutdown
//   - Signal coordination: captured OS signals are logged in order,
//     restored handlers re-raise them LIFO on exit so an enclosing
//     supervisor sees what happened
//
// # Control Loop
//
// While serving, three background loops run concurrently: a per-second
// date header refresh, an optional periodic notify callback, and an
// optional max-requests monitor that can itself trigger shutdown. The
// control loop blocks solely on the shutdown signal; nothing polls on a
// fixed interval while idle, so a shutdown request unblocks the server
// within milliseconds.
//
// # Example Usage
//
//	cfg := server.DefaultConfig().
//	    WithAddress("127.0.0.1", 8000).
//	    WithFactory(myProtocolFactory)
//
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Connection handlers are external to this package: anything satisfying
// ConnectionHandler can be served. See pkg/protocol/plainhttp for a
// minimal reference handler.
package server
