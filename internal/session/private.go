package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/metrics"
	"loci/internal/rest"
)

// PrivateState is the lifecycle state of a private chat screen.
type PrivateState int

const (
	PrivateInitializing PrivateState = iota
	PrivateReady
	PrivateError
)

func (s PrivateState) String() string {
	switch s {
	case PrivateInitializing:
		return "initializing"
	case PrivateReady:
		return "ready"
	case PrivateError:
		return "error"
	default:
		return "unknown"
	}
}

// PrivateView receives display instructions for a private chat.
type PrivateView interface {
	ShowHistory(msgs []Msg)
	AppendMessage(m Msg)
	ShowError(msg string)
}

// PrivateController drives one private chat screen. The chat id is assigned
// by the server in the init acknowledgement, so sends are held off until the
// controller is Ready.
type PrivateController struct {
	log  *slog.Logger
	tr   Transport
	reg  *Registry
	view PrivateView

	peerUserID string
	self       rest.User

	mu     sync.Mutex
	state  PrivateState
	chatID string
	msgs   []Msg
	early  []Msg
	closed bool
}

// NewPrivateController constructs a controller for a chat with one peer.
func NewPrivateController(log *slog.Logger, tr Transport, reg *Registry, view PrivateView, peerUserID string, self rest.User) *PrivateController {
	return &PrivateController{
		log:        log,
		tr:         tr,
		reg:        reg,
		view:       view,
		peerUserID: peerUserID,
		self:       self,
		state:      PrivateInitializing,
	}
}

// State returns the current lifecycle state.
func (c *PrivateController) State() PrivateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChatID returns the server-assigned chat id ("" until Ready).
func (c *PrivateController) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// Messages returns a snapshot of the display list in receipt order.
func (c *PrivateController) Messages() []Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Msg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Start connects, binds the private channel, and asks the server to open a
// chat with the peer. Listeners are bound before the join is emitted so the
// init acknowledgement cannot be missed.
func (c *PrivateController) Start(ctx context.Context) error {
	if err := c.tr.Connect(ctx); err != nil {
		return c.startFailed(fmt.Errorf("connect: %w", err))
	}

	binding := ChannelBinding{
		Kind:       KindPrivate,
		PeerUserID: c.peerUserID,
	}

	err := c.reg.Bind(binding, map[string]func(json.RawMessage){
		v1.EventPrivateChatInit:   c.onInit,
		v1.EventNewPrivateMessage: c.onNewMessage,
	})
	if err != nil {
		return c.startFailed(err)
	}

	err = c.tr.Emit(ctx, v1.EventJoinPrivateChat, v1.JoinPrivateChatPayload{
		TargetUserID: c.peerUserID,
	})
	if err != nil {
		c.reg.Release()
		return c.startFailed(fmt.Errorf("socket join: %w", err))
	}

	metrics.SessionJoins.WithLabelValues(string(KindPrivate)).Inc()
	c.log.Info("private.started", "peer_user_id", c.peerUserID)
	return nil
}

func (c *PrivateController) startFailed(err error) error {
	if c.isClosed() {
		c.log.Debug("private.start.stale", "peer_user_id", c.peerUserID, "err", err)
		return nil
	}
	c.setState(PrivateError)
	c.view.ShowError("Failed to open private chat")
	return fmt.Errorf("%w: %v", ErrJoinFailure, err)
}

// Send trims and emits a private message once the chat id is known.
func (c *PrivateController) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > v1.MaxMessageChars {
		return ErrMessageTooLong
	}

	c.mu.Lock()
	closed := c.closed
	ready := c.state == PrivateReady && c.chatID != ""
	chatID := c.chatID
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ready {
		return ErrNotJoined
	}

	return c.tr.Emit(ctx, v1.EventSendPrivateMessage, v1.SendPrivateMessagePayload{
		ChatID:  chatID,
		Content: trimmed,
	})
}

// Close leaves the chat and releases the channel. Idempotent. The socket
// leave is only emitted when the server actually assigned a chat id; the
// listener release happens either way.
func (c *PrivateController) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	chatID := c.chatID
	c.mu.Unlock()

	if chatID != "" {
		if err := c.tr.Emit(ctx, v1.EventLeavePrivateChat, v1.LeavePrivateChatPayload{ChatID: chatID}); err != nil {
			c.log.Warn("private.leave.emit.fail", "chat_id", chatID, "err", err)
		}
	}

	c.reg.Release()
	metrics.SessionLeaves.WithLabelValues(string(KindPrivate)).Inc()
	c.log.Info("private.closed", "peer_user_id", c.peerUserID, "chat_id", chatID)
}

// ---- inbound events ----

// onInit records the assigned chat id and replays history plus any messages
// that raced ahead of the acknowledgement.
func (c *PrivateController) onInit(payload json.RawMessage) {
	if c.isClosed() {
		c.log.Debug("private.event.stale", "event", v1.EventPrivateChatInit)
		return
	}

	var p v1.PrivateChatInitPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.log.Warn("private.event.bad_payload", "event", v1.EventPrivateChatInit, "err", err)
		return
	}

	msgs := make([]Msg, 0, len(p.Messages))
	for _, m := range p.Messages {
		msgs = append(msgs, c.toMsg(m))
	}

	c.mu.Lock()
	c.chatID = p.ChatID
	msgs = append(msgs, c.early...)
	c.early = nil
	c.msgs = msgs
	c.state = PrivateReady
	c.mu.Unlock()

	c.reg.Update(func(b *ChannelBinding) {
		b.ChatID = p.ChatID
	})

	c.view.ShowHistory(msgs)
	c.log.Info("private.ready", "chat_id", p.ChatID, "history", len(p.Messages))
}

func (c *PrivateController) onNewMessage(payload json.RawMessage) {
	if c.isClosed() {
		c.log.Debug("private.event.stale", "event", v1.EventNewPrivateMessage)
		return
	}

	var p v1.NewPrivateMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.log.Warn("private.event.bad_payload", "event", v1.EventNewPrivateMessage, "err", err)
		return
	}

	m := c.toMsg(p.Message)

	c.mu.Lock()
	if c.state != PrivateReady {
		// The init acknowledgement has not landed yet; hold the message so
		// it is not lost and not shown out of place. Bounded so a server
		// that never acknowledges cannot grow it forever; oldest go first.
		c.early = append(c.early, m)
		if len(c.early) > defaultHistoryLimit {
			c.early = c.early[1:]
		}
		c.mu.Unlock()
		return
	}
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()

	c.view.AppendMessage(m)
}

// Private chats are always identified, so ownership is the sender id.
func (c *PrivateController) toMsg(m v1.Message) Msg {
	return Msg{
		ID:          m.ID,
		Sender:      m.Username,
		Content:     m.Content,
		IsAnonymous: false,
		Own:         m.SenderID == c.self.ID,
		CreatedAt:   m.CreatedAt,
	}
}

func (c *PrivateController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *PrivateController) setState(s PrivateState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
