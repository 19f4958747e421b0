// Package transport owns the single realtime connection and its listener
// registry.
//
// One Handle exists per authenticated process. Screens and the notification
// relay bind event listeners on it; the handle serializes inbound dispatch on
// one goroutine so callbacks never run concurrently with each other, matching
// the event-driven model the rest of the client assumes.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/credential"
	"loci/internal/ids"
	"loci/internal/metrics"
)

// Status is the connection state of the handle.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Listener receives the raw payload of a matched event.
type Listener func(payload json.RawMessage)

// Conn is the minimal wire surface the handle needs. The production
// implementation wraps coder/websocket; tests inject scripted fakes.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer establishes a Conn. The token is the stored bearer credential.
type Dialer func(ctx context.Context, socketURL, token string) (Conn, error)

// Options tune a Handle. Zero values fall back to safe defaults.
type Options struct {
	SocketURL    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Dial         Dialer
}

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Handle is the single point of truth for the realtime connection.
type Handle struct {
	log    *slog.Logger
	tokens credential.Source
	opts   Options

	mu           sync.Mutex
	status       Status
	conn         Conn
	connectionID string
	gen          int

	nextSubID int
	active    map[string]map[int]*Subscription
	pending   []*Subscription
}

// NewHandle constructs a disconnected Handle.
func NewHandle(log *slog.Logger, tokens credential.Source, opts Options) *Handle {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Dial == nil {
		opts.Dial = DialWebsocket
	}
	return &Handle{
		log:    log,
		tokens: tokens,
		opts:   opts,
		active: make(map[string]map[int]*Subscription),
	}
}

// Status returns the current connection status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Connected reports whether the handle has an established connection.
func (h *Handle) Connected() bool {
	return h.Status() == StatusConnected
}

// ConnectionID returns the server-assigned connection identifier, or "" when
// disconnected.
func (h *Handle) ConnectionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connectionID
}

// Connect establishes the realtime connection.
//
// Idempotent: when already connected it returns immediately without a new
// handshake. Only one dial runs at a time; a Connect racing another fails
// with ErrConnectInProgress instead of opening a second socket. A missing
// stored credential fails with ErrUnauthenticated; dial and handshake
// failures wrap ErrConnectionFailure and are not retried here.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	switch h.status {
	case StatusConnected:
		h.mu.Unlock()
		return nil
	case StatusConnecting:
		h.mu.Unlock()
		return ErrConnectInProgress
	}
	h.status = StatusConnecting
	h.mu.Unlock()

	tok, err := h.tokens.Token()
	if err != nil {
		h.setStatus(StatusDisconnected)
		if errors.Is(err, credential.ErrNoToken) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("%w: credential: %v", ErrUnauthenticated, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, h.opts.DialTimeout)
	defer cancel()

	conn, err := h.opts.Dial(dialCtx, h.opts.SocketURL, tok)
	if err != nil {
		h.setStatus(StatusError)
		metrics.Connects.WithLabelValues("dial_error").Inc()
		h.log.Error("transport.dial.fail", "url", h.opts.SocketURL, "err", err)
		return fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}

	connID, err := awaitConnected(dialCtx, conn)
	if err != nil {
		_ = conn.Close()
		h.setStatus(StatusError)
		metrics.Connects.WithLabelValues("handshake_error").Inc()
		h.log.Error("transport.handshake.fail", "err", err)
		return fmt.Errorf("%w: handshake: %v", ErrConnectionFailure, err)
	}

	h.mu.Lock()
	h.conn = conn
	h.connectionID = connID
	h.status = StatusConnected
	h.gen++
	gen := h.gen
	h.flushPendingLocked()
	h.mu.Unlock()

	metrics.Connects.WithLabelValues("ok").Inc()
	h.log.Info("transport.connected", "connection_id", connID)

	go h.readLoop(gen, conn)
	return nil
}

// awaitConnected reads the handshake acknowledgement carrying the
// server-assigned connection id.
func awaitConnected(ctx context.Context, conn Conn) (string, error) {
	data, err := conn.Read(ctx)
	if err != nil {
		return "", err
	}

	var env v1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("bad handshake envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return "", err
	}
	if env.Event != v1.EventConnected {
		return "", fmt.Errorf("expected %q, got %q", v1.EventConnected, env.Event)
	}

	var p v1.ConnectedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return "", fmt.Errorf("bad connected payload: %w", err)
	}
	if p.ConnectionID == "" {
		return "", errors.New("missing connectionId")
	}
	return p.ConnectionID, nil
}

// Disconnect tears down the connection and clears the identifier.
// Safe to call when already disconnected.
func (h *Handle) Disconnect() {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.connectionID = ""
	h.status = StatusDisconnected
	h.gen++ // orphan any running read loop
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		h.log.Info("transport.disconnected", "reason", "explicit")
	}
}

// Emit sends a named event. Fire-and-forget from the caller's perspective:
// a nil return means the envelope was written, not that it was delivered.
func (h *Handle) Emit(ctx context.Context, event string, payload any) error {
	h.mu.Lock()
	conn := h.conn
	connected := h.status == StatusConnected
	h.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: marshal payload: %w", err)
	}

	now := time.Now().UTC()
	env := v1.Envelope{
		V:       v1.Version,
		Event:   event,
		ID:      ids.MustULID(now),
		TS:      now,
		Payload: raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, data); err != nil {
		h.log.Error("transport.write.fail", "event", event, "err", err)
		return fmt.Errorf("%w: write: %v", ErrConnectionFailure, err)
	}

	metrics.Emits.WithLabelValues(event).Inc()
	return nil
}

// Subscription is one bound listener. Close detaches it; closing twice is a
// no-op.
type Subscription struct {
	h      *Handle
	id     int
	event  string
	fn     Listener
	closed bool
}

// Event returns the event name the subscription is bound to.
func (s *Subscription) Event() string { return s.event }

// Close detaches the listener.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if m := s.h.active[s.event]; m != nil {
		delete(m, s.id)
		if len(m) == 0 {
			delete(s.h.active, s.event)
		}
	}
	for i, p := range s.h.pending {
		if p == s {
			s.h.pending = append(s.h.pending[:i], s.h.pending[i+1:]...)
			break
		}
	}
}

// On binds a listener for event.
//
// Binding is legal in any connection state: while disconnected the binding is
// held pending and activated exactly once when the connection is established.
// It is never silently dropped and never re-applied on reconnect.
func (h *Handle) On(event string, fn Listener) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSubID++
	sub := &Subscription{h: h, id: h.nextSubID, event: event, fn: fn}

	if h.status == StatusConnected {
		h.attachLocked(sub)
	} else {
		h.pending = append(h.pending, sub)
	}
	return sub
}

func (h *Handle) attachLocked(sub *Subscription) {
	m := h.active[sub.event]
	if m == nil {
		m = make(map[int]*Subscription)
		h.active[sub.event] = m
	}
	m[sub.id] = sub
}

func (h *Handle) flushPendingLocked() {
	for _, sub := range h.pending {
		h.attachLocked(sub)
	}
	h.pending = nil
}

// RemoveAllListeners detaches every bound and pending listener. It does NOT
// disconnect the transport.
func (h *Handle) RemoveAllListeners() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.active {
		for _, sub := range m {
			sub.closed = true
		}
	}
	for _, sub := range h.pending {
		sub.closed = true
	}
	h.active = make(map[string]map[int]*Subscription)
	h.pending = nil
}

// readLoop is the single dispatcher. Listener callbacks run here
// sequentially; a callback must not block indefinitely.
func (h *Handle) readLoop(gen int, conn Conn) {
	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			h.handleReadErr(gen, err)
			return
		}

		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Warn("transport.read.bad_json", "err", err)
			continue
		}
		if err := env.Validate(); err != nil {
			h.log.Warn("transport.read.bad_envelope", "err", err)
			continue
		}

		if !h.sameGen(gen) {
			// A newer connection superseded this loop; discard silently.
			return
		}

		h.dispatch(env)
	}
}

func (h *Handle) sameGen(gen int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen == gen
}

func (h *Handle) dispatch(env v1.Envelope) {
	metrics.EventsReceived.WithLabelValues(env.Event).Inc()

	if env.Event == v1.EventError {
		var p v1.ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		h.log.Warn("transport.server_error", "code", p.Code, "msg", p.Message)
	}

	h.mu.Lock()
	var listeners []Listener
	for _, sub := range h.active[env.Event] {
		listeners = append(listeners, sub.fn)
	}
	h.mu.Unlock()

	if len(listeners) == 0 {
		metrics.EventsDropped.Inc()
		h.log.Debug("transport.event.unhandled", "event", env.Event)
		return
	}

	for _, fn := range listeners {
		fn(env.Payload)
	}
}

func (h *Handle) handleReadErr(gen int, err error) {
	h.mu.Lock()
	stale := h.gen != gen
	if !stale {
		h.conn = nil
		h.connectionID = ""
		h.status = StatusError
	}
	h.mu.Unlock()

	if stale {
		// Explicit Disconnect already ran; this loop's error is expected.
		h.log.Debug("transport.read.stale", "err", err)
		return
	}

	// Lifecycle observer: log, never throw.
	h.log.Error("transport.error", "err", err)
}

func (h *Handle) setStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}
