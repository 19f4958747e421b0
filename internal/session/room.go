package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/ids"
	"loci/internal/metrics"
	"loci/internal/rest"
)

// RoomState is the lifecycle state of a room screen.
type RoomState int

const (
	RoomLoading RoomState = iota
	RoomAwaitingJoinChoice
	RoomJoining
	RoomJoined
	RoomLeaving
	RoomLeft
	RoomError
)

func (s RoomState) String() string {
	switch s {
	case RoomLoading:
		return "loading"
	case RoomAwaitingJoinChoice:
		return "awaiting-join-choice"
	case RoomJoining:
		return "joining"
	case RoomJoined:
		return "joined"
	case RoomLeaving:
		return "leaving"
	case RoomLeft:
		return "left"
	case RoomError:
		return "error"
	default:
		return "unknown"
	}
}

// RoomAPI is the slice of the REST client the room controller needs.
type RoomAPI interface {
	GetChatroom(ctx context.Context, roomID string) (rest.Room, error)
	JoinChatroom(ctx context.Context, roomID string, isAnonymous bool) (rest.JoinResult, error)
	LeaveChatroom(ctx context.Context, roomID string) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]v1.Message, error)
}

// RoomView receives display instructions from the controller. Implementations
// run on the UI side; AppendMessage must scroll the list to the newest entry.
type RoomView interface {
	ShowHistory(msgs []Msg)
	AppendMessage(m Msg)
	PresentJoinChoice(selfName string)
	ParticipantJoined(username string)
	ParticipantLeft(username string)
	PeerTyping(username string, typing bool)
	ShowError(msg string)
}

const defaultHistoryLimit = 100

// RoomController drives one room screen through
// Loading → AwaitingJoinChoice → Joining → Joined → Leaving → Left.
type RoomController struct {
	log  *slog.Logger
	api  RoomAPI
	tr   Transport
	reg  *Registry
	view RoomView

	roomID string
	self   rest.User

	historyLimit int

	mu           sync.Mutex
	state        RoomState
	room         rest.Room
	msgs         []Msg
	displayName  string
	sessionToken string
	anonymous    bool
	joined       bool
	left         bool
	closed       bool
}

// NewRoomController constructs a controller for one room screen instance.
func NewRoomController(log *slog.Logger, api RoomAPI, tr Transport, reg *Registry, view RoomView, roomID string, self rest.User) *RoomController {
	return &RoomController{
		log:          log,
		api:          api,
		tr:           tr,
		reg:          reg,
		view:         view,
		roomID:       roomID,
		self:         self,
		historyLimit: defaultHistoryLimit,
		state:        RoomLoading,
	}
}

// State returns the current lifecycle state.
func (c *RoomController) State() RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the loaded room metadata.
func (c *RoomController) Room() rest.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// DisplayName returns the name chosen at join time ("" before joining).
func (c *RoomController) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

// Messages returns a snapshot of the display list in receipt order.
func (c *RoomController) Messages() []Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Msg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Load fetches room metadata and message history. When the current user is
// already a listed participant the join prompt is skipped and the controller
// joins as self directly.
func (c *RoomController) Load(ctx context.Context) error {
	if c.isClosed() {
		return nil
	}
	c.setState(RoomLoading)

	room, err := c.api.GetChatroom(ctx, c.roomID)
	if err != nil {
		return c.loadFailed(err)
	}
	if c.isClosed() {
		c.log.Debug("room.load.stale", "room_id", c.roomID)
		return nil
	}

	history, err := c.api.ListMessages(ctx, c.roomID, c.historyLimit)
	if err != nil {
		return c.loadFailed(err)
	}
	if c.isClosed() {
		c.log.Debug("room.load.stale", "room_id", c.roomID)
		return nil
	}

	// The server speaks most-recent-first; display is chronological.
	msgs := make([]Msg, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		msgs = append(msgs, c.toMsg(history[i]))
	}

	c.mu.Lock()
	c.room = room
	c.msgs = msgs
	c.mu.Unlock()

	c.view.ShowHistory(msgs)

	if room.HasParticipant(c.self.ID) {
		return c.join(ctx, false, true)
	}

	c.setState(RoomAwaitingJoinChoice)
	c.view.PresentJoinChoice(c.self.Username)
	return nil
}

func (c *RoomController) loadFailed(err error) error {
	if c.isClosed() {
		c.log.Debug("room.load.stale", "room_id", c.roomID, "err", err)
		return nil
	}
	c.setState(RoomError)
	c.view.ShowError("Failed to load chatroom")
	return fmt.Errorf("load room %s: %w", c.roomID, err)
}

// Join is the user's choice from the join prompt.
func (c *RoomController) Join(ctx context.Context, anonymous bool) error {
	c.mu.Lock()
	if c.state != RoomAwaitingJoinChoice {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("join from state %s: %w", state, ErrNotJoined)
	}
	c.mu.Unlock()

	return c.join(ctx, anonymous, false)
}

// Cancel declines the join prompt. Nothing was joined, so nothing is left.
func (c *RoomController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != RoomAwaitingJoinChoice {
		return
	}
	c.state = RoomLeft
	c.closed = true
	c.left = true
}

// join runs the two-stage join: REST membership first, then the socket
// channel. If any socket stage fails after the REST join succeeded, the REST
// membership is rolled back so the server's view stays consistent.
func (c *RoomController) join(ctx context.Context, anonymous, auto bool) error {
	c.setState(RoomJoining)

	res, err := c.api.JoinChatroom(ctx, c.roomID, anonymous)
	if err != nil {
		return c.joinFailed(auto, fmt.Errorf("rest join: %w", err))
	}
	if c.isClosed() {
		// Screen unmounted mid-join: compensate and discard.
		_ = c.api.LeaveChatroom(context.WithoutCancel(ctx), c.roomID)
		c.log.Debug("room.join.stale", "room_id", c.roomID)
		return nil
	}

	rollback := func() {
		if err := c.api.LeaveChatroom(context.WithoutCancel(ctx), c.roomID); err != nil {
			c.log.Warn("room.join.rollback.fail", "room_id", c.roomID, "err", err)
		}
	}

	if err := c.tr.Connect(ctx); err != nil {
		rollback()
		return c.joinFailed(auto, fmt.Errorf("connect: %w", err))
	}

	token := ids.MustULID(time.Now().UTC())
	binding := ChannelBinding{
		Kind:        KindRoom,
		RoomID:      c.roomID,
		DisplayName: res.DisplayName,
		IsAnonymous: anonymous,
	}

	err = c.reg.Bind(binding, map[string]func(json.RawMessage){
		v1.EventNewMessage: c.onNewMessage,
		v1.EventUserJoined: c.onUserJoined,
		v1.EventUserLeft:   c.onUserLeft,
		v1.EventUserTyping: c.onUserTyping,
	})
	if err != nil {
		rollback()
		return c.joinFailed(auto, err)
	}

	err = c.tr.Emit(ctx, v1.EventJoinRoom, v1.JoinRoomPayload{
		RoomID:       c.roomID,
		IsAnonymous:  anonymous,
		DisplayName:  res.DisplayName,
		SessionToken: token,
	})
	if err != nil {
		c.reg.Release()
		rollback()
		return c.joinFailed(auto, fmt.Errorf("socket join: %w", err))
	}

	c.mu.Lock()
	c.displayName = res.DisplayName
	c.sessionToken = token
	c.anonymous = anonymous
	c.joined = true
	c.state = RoomJoined
	c.mu.Unlock()

	metrics.SessionJoins.WithLabelValues(string(KindRoom)).Inc()
	c.log.Info("room.joined", "room_id", c.roomID, "display_name", res.DisplayName, "anonymous", anonymous)
	return nil
}

func (c *RoomController) joinFailed(auto bool, err error) error {
	if c.isClosed() {
		c.log.Debug("room.join.stale", "room_id", c.roomID, "err", err)
		return nil
	}
	if auto {
		c.setState(RoomError)
		c.view.ShowError("Failed to join room")
	} else {
		// Back to the prompt so the user can retry or cancel.
		c.setState(RoomAwaitingJoinChoice)
		c.view.ShowError("Failed to join room")
		c.view.PresentJoinChoice(c.self.Username)
	}
	return fmt.Errorf("%w: %v", ErrJoinFailure, err)
}

// Send trims and emits a message. Fire-and-forget: the message reappears only
// when the server rebroadcasts it, so there is no local echo.
func (c *RoomController) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > v1.MaxMessageChars {
		return ErrMessageTooLong
	}

	c.mu.Lock()
	closed := c.closed
	joined := c.state == RoomJoined
	token := c.sessionToken
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !joined {
		return ErrNotJoined
	}

	return c.tr.Emit(ctx, v1.EventSendMessage, v1.SendMessagePayload{
		RoomID:       c.roomID,
		Content:      trimmed,
		SessionToken: token,
	})
}

// SetTyping reports the local typing state to the room.
func (c *RoomController) SetTyping(ctx context.Context, typing bool) {
	c.mu.Lock()
	joined := c.state == RoomJoined
	c.mu.Unlock()
	if !joined {
		return
	}
	if err := c.tr.Emit(ctx, v1.EventTyping, v1.TypingPayload{RoomID: c.roomID, IsTyping: typing}); err != nil {
		c.log.Debug("room.typing.emit.fail", "err", err)
	}
}

// Leave tears the session down: socket leave first, then listener removal,
// then the REST leave, so the server never counts a user whose screen is
// already gone. Idempotent: back navigation and unmount can both call it.
func (c *RoomController) Leave(ctx context.Context) {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return
	}
	c.left = true
	c.closed = true
	joined := c.joined
	if joined {
		c.state = RoomLeaving
	} else {
		c.state = RoomLeft
	}
	c.mu.Unlock()

	if !joined {
		return
	}

	if err := c.tr.Emit(ctx, v1.EventLeaveRoom, v1.LeaveRoomPayload{RoomID: c.roomID}); err != nil {
		c.log.Warn("room.leave.emit.fail", "room_id", c.roomID, "err", err)
	}

	c.reg.Release()

	if err := c.api.LeaveChatroom(ctx, c.roomID); err != nil {
		c.log.Warn("room.leave.rest.fail", "room_id", c.roomID, "err", err)
	}

	metrics.SessionLeaves.WithLabelValues(string(KindRoom)).Inc()
	c.setState(RoomLeft)
	c.log.Info("room.left", "room_id", c.roomID)
}

// Close is the unmount hook; it is Leave without a distinct trigger.
func (c *RoomController) Close(ctx context.Context) {
	c.Leave(ctx)
}

// ---- inbound events ----

func (c *RoomController) onNewMessage(payload json.RawMessage) {
	if c.isClosed() {
		c.log.Debug("room.event.stale", "event", v1.EventNewMessage)
		return
	}

	var p v1.NewMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.log.Warn("room.event.bad_payload", "event", v1.EventNewMessage, "err", err)
		return
	}

	m := c.toMsg(p.Message)

	// Receipt order, not timestamp order.
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()

	c.view.AppendMessage(m)
}

func (c *RoomController) onUserJoined(payload json.RawMessage) {
	if c.isClosed() {
		return
	}
	var p v1.UserJoinedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.view.ParticipantJoined(p.Username)
}

func (c *RoomController) onUserLeft(payload json.RawMessage) {
	if c.isClosed() {
		return
	}
	var p v1.UserLeftPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.view.ParticipantLeft(p.Username)
}

func (c *RoomController) onUserTyping(payload json.RawMessage) {
	if c.isClosed() {
		return
	}
	var p v1.UserTypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	c.view.PeerTyping(p.Username, p.IsTyping)
}

// toMsg prepares a wire message for display. Ownership prefers the per-join
// session token; sender id and display name are fallbacks for messages from
// servers that do not echo the token.
func (c *RoomController) toMsg(m v1.Message) Msg {
	c.mu.Lock()
	token := c.sessionToken
	name := c.displayName
	c.mu.Unlock()

	var own bool
	switch {
	case m.SessionToken != "" && token != "":
		own = m.SessionToken == token
	case m.SenderID != "" && c.self.ID != "":
		own = m.SenderID == c.self.ID
	default:
		own = name != "" && m.Username == name
	}

	return Msg{
		ID:          m.ID,
		Sender:      m.Username,
		Content:     m.Content,
		IsAnonymous: m.IsAnonymous,
		Own:         own,
		CreatedAt:   m.CreatedAt,
	}
}

func (c *RoomController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *RoomController) setState(s RoomState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
