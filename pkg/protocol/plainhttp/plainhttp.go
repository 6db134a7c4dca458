// Package plainhttp is a minimal HTTP/1.1 connection handler.
//
// It exists as the reference implementation of the server.ConnectionHandler
// contract: it registers itself in the shared ServerState, prepends the
// server's default headers (including the cached date header) to every
// response, counts completed requests, and coordinates graceful close
// through a pooled event. Connections are persistent by default, as
// HTTP/1.1 prescribes, and stay open until the peer closes, a write
// fails, or the server asks for a graceful close; there is no
// connection-header negotiation, chunked encoding, or upgrade handling.
package plainhttp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/im0e/uvicorn/pkg/server"
)

// Request is a parsed inbound request.
type Request struct {
	Method string
	Target string
	Proto  string
	Header textproto.MIMEHeader
	Body   []byte

	// RemoteAddr is the peer address of the connection.
	RemoteAddr string

	// ConnectionID identifies the connection carrying this request.
	ConnectionID string

	// AppState is the hosted application's shared state copy for this
	// connection. Nil when the application state is empty.
	AppState map[string]any
}

// Response is the application's reply to a single request.
type Response struct {
	StatusCode int
	Header     []server.Header
	Body       []byte
}

// App is the hosted request callback invoked once per request.
type App func(ctx context.Context, req *Request) *Response

// Handler serves a single connection: read a request, invoke the app,
// write the response, repeat until the peer closes or the server asks
// for a graceful close.
type Handler struct {
	config   *server.Config
	state    *server.ServerState
	appState map[string]any
	app      App
	logger   *slog.Logger

	id   string
	conn net.Conn

	mu       sync.Mutex
	closing  bool
	inflight *server.Event
}

// NewFactory returns a server.HandlerFactory producing plainhttp
// handlers that invoke app for every request.
func NewFactory(app App, logger *slog.Logger) server.HandlerFactory {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "plainhttp")

	return func(cfg *server.Config, state *server.ServerState, appState map[string]any) server.ConnectionHandler {
		return &Handler{
			config:   cfg,
			state:    state,
			appState: appState,
			app:      app,
			logger:   logger,
			id:       uuid.NewString(),
		}
	}
}

// Serve consumes the connection until it closes.
func (h *Handler) Serve(conn net.Conn) {
	h.mu.Lock()
	h.conn = conn
	closing := h.closing
	h.mu.Unlock()
	if closing {
		conn.Close()
		return
	}

	h.state.AddConnection(h)
	defer h.state.RemoveConnection(h)
	defer conn.Close()

	br := bufio.NewReader(conn)
	for {
		req, err := h.readRequest(br)
		if err != nil {
			if err != io.EOF && !isClosedConn(err) {
				h.logger.Debug("read failed", "conn", h.id, "error", err)
			}
			return
		}
		req.RemoteAddr = conn.RemoteAddr().String()
		req.ConnectionID = h.id
		req.AppState = h.appState

		// The pooled event marks the request in flight so a concurrent
		// Shutdown leaves the connection to this loop instead of
		// cutting the response off.
		ev := h.state.AcquireEvent()
		h.mu.Lock()
		h.inflight = ev
		h.mu.Unlock()

		resp := h.app(context.Background(), req)
		writeErr := h.writeResponse(conn, resp)
		h.state.RequestServed()
		ev.Set()

		h.mu.Lock()
		h.inflight = nil
		closing := h.closing
		h.mu.Unlock()
		h.state.ReleaseEvent(ev)

		if writeErr != nil || closing {
			return
		}
	}
}

// Shutdown requests a graceful close. If a request is in flight the
// serve loop observes the closing flag after writing its response and
// closes the connection itself; an idle connection is closed here to
// unblock the read. Never blocks.
//
// Both sides inspect the in-flight marker under the handler mutex, so
// exactly one of them closes the connection.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	h.closing = true
	conn := h.conn
	inflight := h.inflight
	h.mu.Unlock()

	if conn != nil && inflight == nil {
		conn.Close()
	}
}

// readRequest parses one request: request line, headers, and a body of
// declared content-length.
func (h *Handler) readRequest(br *bufio.Reader) (*Request, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	method, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("plainhttp: malformed request line %q", line)
	}
	target, proto, ok := strings.Cut(rest, " ")
	if !ok {
		proto = "HTTP/1.0"
	}

	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, err
	}

	var body []byte
	if cl := header.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("plainhttp: bad content-length %q", cl)
		}
		body = make([]byte, n)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, err
		}
	}

	return &Request{
		Method: method,
		Target: target,
		Proto:  proto,
		Header: header,
		Body:   body,
	}, nil
}

// writeResponse writes an HTTP/1.1 status line, the server's default
// headers, the app headers, and the body with an explicit
// content-length. The connection stays open for the next request
// unless a close has been requested.
func (h *Handler) writeResponse(conn net.Conn, resp *Response) error {
	if resp == nil {
		resp = &Response{StatusCode: http.StatusNoContent}
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	var buf []byte
	buf = fmt.Appendf(buf, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for _, hd := range h.state.DefaultHeaders() {
		buf = appendHeader(buf, hd)
	}
	for _, hd := range resp.Header {
		buf = appendHeader(buf, hd)
	}
	buf = fmt.Appendf(buf, "content-length: %d\r\n\r\n", len(resp.Body))
	buf = append(buf, resp.Body...)

	_, err := conn.Write(buf)
	return err
}

func appendHeader(buf []byte, hd server.Header) []byte {
	buf = append(buf, hd.Name...)
	buf = append(buf, ": "...)
	buf = append(buf, hd.Value...)
	buf = append(buf, "\r\n"...)
	return buf
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
