package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the server configuration. It is immutable after the
// server is constructed.
//
// Exactly one socket source is used, selected by precedence:
// pre-bound Listeners, then FD, then UDS, then Host/Port.
type Config struct {
	// Host is the TCP host to bind. Default: "127.0.0.1".
	Host string

	// Port is the TCP port to bind. 0 selects an ephemeral port.
	// DefaultConfig sets 8000.
	Port int

	// UDS is a filesystem path for a UNIX domain socket listener.
	// Existing file permissions at the path are preserved.
	UDS string

	// FD is an inherited file descriptor to wrap as a listener.
	// Zero or negative means unset (inherited listener descriptors are
	// always above the stdio range). Default: -1.
	FD int

	// Listeners are pre-bound listeners supplied by a parent or
	// supervisor (e.g. a process manager). When set they take
	// precedence over every other socket source and the server
	// closes them on shutdown.
	Listeners []net.Listener

	// TLSConfig enables transport encryption on TCP and fd sources.
	TLSConfig *tls.Config

	// Backlog is the requested accept backlog. The Go runtime does not
	// expose the listen(2) backlog, so the value is advisory and only
	// logged. Default: 2048.
	Backlog int

	// Workers is the number of server processes expected to share the
	// pre-bound sockets. Informational on this platform. Default: 1.
	Workers int

	// Factory constructs a ConnectionHandler per accepted connection.
	Factory HandlerFactory

	// Lifespan is the hosted-application handshake.
	// Default: &NopLifespan{}.
	Lifespan Lifespan

	// DateHeader controls whether the date header leads the default
	// response headers. Default: true.
	DateHeader bool

	// Headers are statically configured headers appended after the
	// date header in the default response headers.
	Headers []Header

	// LimitMaxRequests stops the server once this many requests have
	// completed. 0 means no limit.
	LimitMaxRequests int

	// NotifyCallback, when set, is invoked periodically while serving.
	NotifyCallback func(ctx context.Context)

	// NotifyInterval is the period between NotifyCallback invocations.
	// Default: 15 seconds.
	NotifyInterval time.Duration

	// TimeoutGracefulShutdown bounds the shutdown drain wait. Once it
	// elapses remaining tasks are force-cancelled. 0 waits forever.
	TimeoutGracefulShutdown time.Duration

	// ForceExitAbortsDrain controls whether a forced exit (second
	// interrupt) aborts an in-progress drain wait immediately rather
	// than letting the current bounded wait finish. Default: true.
	ForceExitAbortsDrain bool

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger

	// MetricsRegistry, when set, receives the server's Prometheus
	// collectors. Nil disables metrics.
	MetricsRegistry prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults and no handler
// factory; callers must set Factory before serving.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "127.0.0.1",
		Port:                 8000,
		FD:                   -1,
		Backlog:              2048,
		Workers:              1,
		Lifespan:             &NopLifespan{},
		DateHeader:           true,
		NotifyInterval:       15 * time.Second,
		ForceExitAbortsDrain: true,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Backlog == 0 {
		c.Backlog = defaults.Backlog
	}
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.Lifespan == nil {
		c.Lifespan = defaults.Lifespan
	}
	if c.NotifyInterval == 0 {
		c.NotifyInterval = defaults.NotifyInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WithFactory sets the handler factory and returns the config for
// chaining.
func (c *Config) WithFactory(f HandlerFactory) *Config {
	c.Factory = f
	return c
}

// WithLifespan sets the hosted-application handshake and returns the
// config for chaining.
func (c *Config) WithLifespan(l Lifespan) *Config {
	c.Lifespan = l
	return c
}

// WithAddress sets the TCP host and port and returns the config for
// chaining.
func (c *Config) WithAddress(host string, port int) *Config {
	c.Host = host
	c.Port = port
	return c
}
