package server

import (
	"context"
	"sync"
	"sync/atomic"
)

// Header is a single (name, value) byte pair prepended to outgoing
// responses.
type Header struct {
	Name  []byte
	Value []byte
}

// Task is a handle for a long-lived background task spawned on behalf
// of a request (streaming responses and the like). Tasks register in
// ServerState so shutdown can wait for them and, past the drain
// deadline, force-cancel them with an explanatory cause.
type Task struct {
	// Name identifies the task in logs.
	Name string

	cancel context.CancelCauseFunc
}

// NewTask wraps a cancellation function as a trackable task handle.
func NewTask(name string, cancel context.CancelCauseFunc) *Task {
	return &Task{Name: name, cancel: cancel}
}

// Cancel cancels the task with the given cause.
func (t *Task) Cancel(cause error) {
	if t.cancel != nil {
		t.cancel(cause)
	}
}

// ServerState is the shared state visible to every connection handler.
//
// One instance exists per running server, created with the orchestrator
// and shared by reference with every handler for the server's entire
// lifetime. Handlers only ever add to or remove from its sets; anything
// that needs to iterate takes a stable snapshot first.
type ServerState struct {
	totalRequests atomic.Uint64

	mu             sync.Mutex
	connections    map[ConnectionHandler]struct{}
	tasks          map[*Task]struct{}
	defaultHeaders []Header

	pool      *EventPool
	shutdown  *Event
	dateCache *DateHeaderCache

	metrics *serverMetrics
}

// NewServerState creates an empty ServerState with a default-capacity
// event pool.
func NewServerState() *ServerState {
	return &ServerState{
		connections: make(map[ConnectionHandler]struct{}),
		tasks:       make(map[*Task]struct{}),
		pool:        NewEventPool(DefaultEventPoolSize),
		shutdown:    NewEvent(),
		dateCache:   NewDateHeaderCache(),
	}
}

// RequestServed increments the completed-request counter. Handlers call
// this exactly once per completed request.
func (s *ServerState) RequestServed() {
	s.totalRequests.Add(1)
	if s.metrics != nil {
		s.metrics.requestsTotal.Inc()
	}
}

// TotalRequests returns the number of completed requests. The counter
// is monotonically increasing and never reset.
func (s *ServerState) TotalRequests() uint64 {
	return s.totalRequests.Load()
}

// AddConnection registers a live connection handler.
func (s *ServerState) AddConnection(h ConnectionHandler) {
	s.mu.Lock()
	s.connections[h] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.connectionsActive.Inc()
	}
}

// RemoveConnection deregisters a connection handler. Removing a handler
// that is not registered is a no-op.
func (s *ServerState) RemoveConnection(h ConnectionHandler) {
	s.mu.Lock()
	_, ok := s.connections[h]
	delete(s.connections, h)
	s.mu.Unlock()
	if ok && s.metrics != nil {
		s.metrics.connectionsActive.Dec()
	}
}

// ConnectionCount returns the authoritative number of open connections.
func (s *ServerState) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// Connections returns a stable snapshot of the live connection set.
func (s *ServerState) Connections() []ConnectionHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]ConnectionHandler, 0, len(s.connections))
	for h := range s.connections {
		snapshot = append(snapshot, h)
	}
	return snapshot
}

// AddTask registers a long-lived background task.
func (s *ServerState) AddTask(t *Task) {
	s.mu.Lock()
	s.tasks[t] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.tasksActive.Inc()
	}
}

// RemoveTask deregisters a background task.
func (s *ServerState) RemoveTask(t *Task) {
	s.mu.Lock()
	_, ok := s.tasks[t]
	delete(s.tasks, t)
	s.mu.Unlock()
	if ok && s.metrics != nil {
		s.metrics.tasksActive.Dec()
	}
}

// TaskCount returns the number of registered background tasks.
func (s *ServerState) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tasks returns a stable snapshot of the background task set.
func (s *ServerState) Tasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*Task, 0, len(s.tasks))
	for t := range s.tasks {
		snapshot = append(snapshot, t)
	}
	return snapshot
}

// SetDefaultHeaders replaces the headers prepended to every outgoing
// response. Called by the date-refresh loop; read-only for handlers.
func (s *ServerState) SetDefaultHeaders(headers []Header) {
	s.mu.Lock()
	s.defaultHeaders = headers
	s.mu.Unlock()
}

// DefaultHeaders returns the current default response headers. Callers
// must not modify the returned slice.
func (s *ServerState) DefaultHeaders() []Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultHeaders
}

// AcquireEvent returns an unset Event from the state's private pool.
func (s *ServerState) AcquireEvent() *Event {
	return s.pool.Acquire()
}

// ReleaseEvent returns an Event to the pool for reuse.
func (s *ServerState) ReleaseEvent(ev *Event) {
	s.pool.Release(ev)
}

// DateHeader returns the cached RFC-1123 GMT date value, reformatted at
// most once per wall-clock second.
func (s *ServerState) DateHeader() []byte {
	return s.dateCache.Get()
}

// RequestShutdown sets the shutdown signal, initiating graceful
// termination. Setting it more than once is harmless.
func (s *ServerState) RequestShutdown() {
	s.shutdown.Set()
}

// ShutdownRequested returns a channel closed once shutdown has been
// requested. Every long-running loop observes it.
func (s *ServerState) ShutdownRequested() <-chan struct{} {
	return s.shutdown.Done()
}
