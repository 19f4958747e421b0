// Package v1 defines the Loci Realtime Protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It mirrors the event vocabulary of the chat backend so the wire protocol
// stays authoritative in one place.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol negotiated on dial.
const Subprotocol = "loci.realtime.v1"

// MaxMessageChars bounds the length of a chat message (runes).
const MaxMessageChars = 500

// Event constants (wire-stable).
const (
	// EventConnected is the handshake acknowledgement (server -> client).
	// It carries the server-assigned connection identifier.
	EventConnected = "connected"

	// EventJoinRoom joins a public room (client -> server).
	EventJoinRoom = "join-room"
	// EventLeaveRoom leaves a public room (client -> server).
	EventLeaveRoom = "leave-room"
	// EventSendMessage sends a message into a joined room (client -> server).
	EventSendMessage = "send-message"

	// EventNewMessage broadcasts a room message (server -> room members).
	EventNewMessage = "new-message"
	// EventUserJoined announces a participant joining (server -> room members).
	EventUserJoined = "user-joined"
	// EventUserLeft announces a participant leaving (server -> room members).
	EventUserLeft = "user-left"

	// EventTyping reports local typing state (client -> server).
	EventTyping = "typing"
	// EventUserTyping relays a peer's typing state (server -> room members).
	EventUserTyping = "user-typing"

	// EventJoinPrivateChat requests a two-party channel keyed by the peer's
	// user id; the server resolves or creates the channel (client -> server).
	EventJoinPrivateChat = "join-private-chat"
	// EventLeavePrivateChat leaves a private channel (client -> server).
	EventLeavePrivateChat = "leave-private-chat"
	// EventSendPrivateMessage sends into a private channel (client -> server).
	EventSendPrivateMessage = "send-private-message"

	// EventPrivateChatInit acknowledges a private join with the assigned
	// channel id and message history (server -> client).
	EventPrivateChatInit = "private-chat-init"
	// EventNewPrivateMessage pushes a private message (server -> client).
	EventNewPrivateMessage = "new-private-message"
	// EventPrivateMessageNotification notifies about a private message
	// regardless of the receiver's joined channel (server -> client).
	EventPrivateMessageNotification = "private-message-notification"

	// EventError is a generic error envelope (server -> client).
	EventError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Event   string          `json:"event"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Event) == "" {
		return errors.New("missing field: event")
	}

	switch e.Event {
	case EventConnected,
		EventJoinRoom,
		EventLeaveRoom,
		EventSendMessage,
		EventNewMessage,
		EventUserJoined,
		EventUserLeft,
		EventTyping,
		EventUserTyping,
		EventJoinPrivateChat,
		EventLeavePrivateChat,
		EventSendPrivateMessage,
		EventPrivateChatInit,
		EventNewPrivateMessage,
		EventPrivateMessageNotification,
		EventError:
		return nil
	default:
		return fmt.Errorf("unknown event: %q", e.Event)
	}
}

// ---- Payloads ----

// ConnectedPayload carries the server-assigned connection identifier.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// Message is a chat message as delivered by the server.
//
// ID may be absent on entries the server has not persisted yet. SessionToken
// is echoed back from the sender's join so receivers can attribute ownership
// without relying on display-name equality.
type Message struct {
	ID           string    `json:"_id,omitempty"`
	SenderID     string    `json:"senderId,omitempty"`
	Username     string    `json:"username,omitempty"`
	Content      string    `json:"content"`
	IsAnonymous  bool      `json:"isAnonymous,omitempty"`
	SessionToken string    `json:"sessionToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// JoinRoomPayload requests membership in a public room.
//
// SessionToken is a client-generated per-join token the server attaches to
// every message this participant sends for the lifetime of the join.
type JoinRoomPayload struct {
	RoomID       string `json:"roomId"`
	IsAnonymous  bool   `json:"isAnonymous"`
	DisplayName  string `json:"displayName"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// LeaveRoomPayload leaves a public room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload sends a message into a joined room.
type SendMessagePayload struct {
	RoomID       string `json:"roomId"`
	Content      string `json:"content"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// NewMessagePayload pushes a room message.
type NewMessagePayload struct {
	Message Message `json:"message"`
}

// UserJoinedPayload announces a join under the participant's display name.
type UserJoinedPayload struct {
	Username string `json:"username"`
}

// UserLeftPayload announces a leave under the participant's display name.
type UserLeftPayload struct {
	Username string `json:"username"`
}

// TypingPayload reports the local user's typing state.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// UserTypingPayload relays a peer's typing state.
type UserTypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// JoinPrivateChatPayload requests a two-party channel with a peer.
type JoinPrivateChatPayload struct {
	TargetUserID string `json:"targetUserId"`
}

// LeavePrivateChatPayload leaves a private channel.
type LeavePrivateChatPayload struct {
	ChatID string `json:"chatId"`
}

// SendPrivateMessagePayload sends into a private channel.
type SendPrivateMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// PrivateChatInitPayload acknowledges a private join.
type PrivateChatInitPayload struct {
	ChatID   string    `json:"chatId"`
	Messages []Message `json:"messages"`
}

// NewPrivateMessagePayload pushes a private message.
type NewPrivateMessagePayload struct {
	Message Message `json:"message"`
}

// PrivateMessageNotificationPayload notifies about an incoming private
// message independent of the joined channel.
type PrivateMessageNotificationPayload struct {
	SenderID string `json:"senderId"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
