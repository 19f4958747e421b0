// Package session implements the realtime channel lifecycle: the serializing
// registry for channel bindings, the room and private-chat state machines,
// and the global notification relay.
//
// Controllers are driven by one UI goroutine and receive transport callbacks
// from the dispatcher goroutine; internal state is mutex-guarded and every
// asynchronous continuation re-checks that its controller is still mounted
// before touching state.
package session

import (
	"context"
	"encoding/json"
	"time"

	"loci/internal/transport"
)

// ChannelKind distinguishes the two channel families.
type ChannelKind string

const (
	KindRoom    ChannelKind = "room"
	KindPrivate ChannelKind = "private"
)

// ChannelBinding records which logical channel a screen is joined to.
type ChannelBinding struct {
	Kind ChannelKind

	// Room channels.
	RoomID      string
	DisplayName string
	IsAnonymous bool

	// Private channels. ChatID is assigned asynchronously by the server.
	PeerUserID string
	ChatID     string
}

// Msg is a message prepared for display.
type Msg struct {
	ID          string
	Sender      string
	Content     string
	IsAnonymous bool
	Own         bool
	CreatedAt   time.Time
}

// Subscription is a bound transport listener that can be detached.
type Subscription interface {
	Close()
}

// Transport is the slice of the transport handle the session layer needs.
type Transport interface {
	Connect(ctx context.Context) error
	Connected() bool
	Emit(ctx context.Context, event string, payload any) error
	On(event string, fn func(payload json.RawMessage)) Subscription
}

// handleTransport adapts *transport.Handle to the Transport interface.
type handleTransport struct {
	h *transport.Handle
}

func (t handleTransport) Connect(ctx context.Context) error { return t.h.Connect(ctx) }
func (t handleTransport) Connected() bool                   { return t.h.Connected() }

func (t handleTransport) Emit(ctx context.Context, event string, payload any) error {
	return t.h.Emit(ctx, event, payload)
}

func (t handleTransport) On(event string, fn func(json.RawMessage)) Subscription {
	return t.h.On(event, transport.Listener(fn))
}

// WrapHandle exposes a *transport.Handle as a session Transport.
func WrapHandle(h *transport.Handle) Transport {
	return handleTransport{h: h}
}
