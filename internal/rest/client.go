// Package rest is the typed client for the chat backend's REST API.
//
// The API wraps every response body in a {"data": ...} envelope and expects a
// bearer token on authenticated routes. Payload shapes are externally defined;
// this package consumes them opaquely and maps status codes onto the error
// taxonomy in errors.go.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/credential"
)

const defaultTimeout = 15 * time.Second

// Client talks to the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  credential.Source
	log     *slog.Logger
}

// NewClient constructs a Client. tokens may be nil for unauthenticated use
// (login); requests then carry no Authorization header.
func NewClient(log *slog.Logger, baseURL string, tokens credential.Source) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		log:     log,
	}
}

// dataEnvelope is the server's uniform response wrapper.
type dataEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: marshal body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("rest: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env dataEnvelope
		_ = json.Unmarshal(raw, &env)
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		c.log.Debug("rest.fail", "method", method, "path", path, "status", resp.StatusCode, "err", apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("rest: decode envelope: %w", err)
	}
	if env.Data == nil {
		return fmt.Errorf("rest: missing data in response to %s %s", method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("rest: decode data: %w", err)
	}
	return nil
}

// ---- auth ----

// Login authenticates with email and password. It does not store the token;
// that is the caller's decision (the login command writes the keyring).
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// ---- chatrooms ----

// ListChatrooms returns all active rooms.
func (c *Client) ListChatrooms(ctx context.Context) ([]Room, error) {
	var out []Room
	err := c.do(ctx, http.MethodGet, "/chatrooms", nil, &out)
	return out, err
}

// CreateChatroom creates a room.
func (c *Client) CreateChatroom(ctx context.Context, name, topic, description string) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodPost, "/chatrooms", map[string]string{
		"name":        name,
		"topic":       topic,
		"description": description,
	}, &out)
	return out, err
}

// GetChatroom returns room metadata including the participant list.
func (c *Client) GetChatroom(ctx context.Context, roomID string) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodGet, "/chatrooms/"+url.PathEscape(roomID), nil, &out)
	return out, err
}

// JoinChatroom registers membership and returns the display name to chat
// under (own username, or a server-assigned guest handle when anonymous).
func (c *Client) JoinChatroom(ctx context.Context, roomID string, isAnonymous bool) (JoinResult, error) {
	var out JoinResult
	err := c.do(ctx, http.MethodPost, "/chatrooms/"+url.PathEscape(roomID)+"/join", map[string]bool{
		"isAnonymous": isAnonymous,
	}, &out)
	return out, err
}

// LeaveChatroom removes membership.
func (c *Client) LeaveChatroom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/chatrooms/"+url.PathEscape(roomID)+"/leave", nil, nil)
}

// ListMessages returns up to limit messages, most-recent-first as the server
// delivers them. Callers reverse for chronological display.
func (c *Client) ListMessages(ctx context.Context, roomID string, limit int) ([]v1.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []v1.Message
	path := "/chatrooms/" + url.PathEscape(roomID) + "/messages?limit=" + strconv.Itoa(limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Search runs the universal search.
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	var out SearchResult
	err := c.do(ctx, http.MethodGet, "/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

// ---- notifications ----

// ListNotifications returns a page of notifications.
func (c *Client) ListNotifications(ctx context.Context, page, limit int) ([]Notification, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 15
	}
	var out []Notification
	path := fmt.Sprintf("/notifications?page=%d&limit=%d", page, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// MarkNotificationRead flips one notification to read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead flips every notification to read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPatch, "/notifications/read-all", nil, nil)
}
