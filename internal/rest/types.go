package rest

import (
	"time"

	v1 "loci/contracts/realtime/v1"
)

// Participant is a room member as listed by the metadata endpoint.
type Participant struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
}

// Room is public chatroom metadata.
type Room struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Topic        string        `json:"topic"`
	Description  string        `json:"description,omitempty"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt,omitempty"`
}

// HasParticipant reports whether userID is listed as a participant.
func (r Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// JoinResult is the outcome of the REST join call.
//
// DisplayName is the caller's own username for named joins, or a
// server-assigned guest handle for anonymous joins.
type JoinResult struct {
	DisplayName string `json:"displayName"`
}

// User is the authenticated account.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// LoginResult carries the bearer token and the account it belongs to.
type LoginResult struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// NotificationKind enumerates notification categories.
type NotificationKind string

const (
	NotificationFollow  NotificationKind = "FOLLOW"
	NotificationNearby  NotificationKind = "NEARBY"
	NotificationMessage NotificationKind = "MESSAGE"
)

// Notification is a server-side notification record. The client only ever
// flips Read; records are never deleted client-side.
type Notification struct {
	ID         string           `json:"_id"`
	Kind       NotificationKind `json:"kind"`
	SenderID   string           `json:"senderId,omitempty"`
	SenderName string           `json:"senderName,omitempty"`
	Content    string           `json:"content,omitempty"`
	Read       bool             `json:"read"`
	GroupCount int              `json:"groupCount,omitempty"`
	CreatedAt  time.Time        `json:"createdAt,omitempty"`
}

// SearchResult is the universal search response.
type SearchResult struct {
	Users []User `json:"users"`
	Rooms []Room `json:"chatrooms"`
}

// Messages is a convenience alias for REST-delivered history.
type Messages = []v1.Message
