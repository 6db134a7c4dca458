package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
)

// bindListeners produces the server's listeners from exactly one of the
// four socket sources, in configuration precedence order: pre-bound
// listeners, inherited file descriptor, UNIX domain socket path,
// host/port pair.
//
// Only the host/port path reports bind failure as fatal (wrapped in
// ErrBind); the other sources wrap already-materialized sockets.
func (s *Server) bindListeners() ([]net.Listener, error) {
	cfg := s.config

	if len(cfg.Listeners) > 0 {
		// Pre-bound sockets from a parent or supervisor. Sharing them
		// across workers needs no explicit duplication here; inherited
		// descriptors are usable by every forked worker as-is.
		listeners := make([]net.Listener, 0, len(cfg.Listeners))
		for _, ln := range cfg.Listeners {
			if cfg.TLSConfig != nil {
				ln = tls.NewListener(ln, cfg.TLSConfig)
			}
			listeners = append(listeners, ln)
		}
		return listeners, nil
	}

	if cfg.FD > 0 {
		f := os.NewFile(uintptr(cfg.FD), fmt.Sprintf("listener-fd-%d", cfg.FD))
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("server: wrap fd %d: %w", cfg.FD, err)
		}
		if cfg.TLSConfig != nil {
			ln = tls.NewListener(ln, cfg.TLSConfig)
		}
		return []net.Listener{ln}, nil
	}

	if cfg.UDS != "" {
		// Preserve the permissions of an existing socket file.
		perms := os.FileMode(0o666)
		if info, err := os.Stat(cfg.UDS); err == nil {
			perms = info.Mode().Perm()
			_ = os.Remove(cfg.UDS)
		}
		ln, err := net.Listen("unix", cfg.UDS)
		if err != nil {
			return nil, fmt.Errorf("server: listen unix %s: %w", cfg.UDS, err)
		}
		if err := os.Chmod(cfg.UDS, perms); err != nil {
			s.logger.Warn("failed to set unix socket permissions",
				"path", cfg.UDS, "error", err)
		}
		if cfg.TLSConfig != nil {
			ln = tls.NewListener(ln, cfg.TLSConfig)
		}
		return []net.Listener{ln}, nil
	}

	// Standard case: host/port pair. Binding failure here is fatal.
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	if cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, cfg.TLSConfig)
	}
	return []net.Listener{ln}, nil
}

// acceptLoop accepts connections on a single listener until the
// listener is closed, spawning a handler per connection.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.acceptWG.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient accept errors (EMFILE and friends) are logged
			// and retried; the listener itself is still healthy.
			s.logger.Warn("accept error", "error", err)
			continue
		}

		handler := s.config.Factory(s.config, s.state, s.appStateCopy())
		go handler.Serve(conn)
	}
}

// appStateCopy copies the hosted application's shared state for a new
// connection. The copy is skipped entirely when the state is empty to
// avoid paying for an allocation on every accepted connection.
func (s *Server) appStateCopy() map[string]any {
	state := s.lifespan.State()
	if len(state) == 0 {
		return nil
	}
	cp := make(map[string]any, len(state))
	for k, v := range state {
		cp[k] = v
	}
	return cp
}
