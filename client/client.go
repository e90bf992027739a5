package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"snapgrid/services/chat-api/internal/domain/chat"
)

// Client is a Go SDK for the chat service. It speaks the REST surface
// for commands and the websocket delivery channel for live events.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUserID sets the development-mode identity header.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger attaches a logger for delivery-channel diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendResponse struct {
	Success    bool          `json:"success"`
	NewMessage *chat.Message `json:"newMessage"`
	Error      string        `json:"error"`
}

type historyResponse struct {
	Success  bool           `json:"success"`
	Messages []chat.Message `json:"messages"`
	Error    string         `json:"error"`
}

type conversationsResponse struct {
	Success       bool                       `json:"success"`
	Conversations []chat.ConversationSummary `json:"conversations"`
	Error         string                     `json:"error"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SendMessage posts a message to the peer and returns the confirmed
// record.
func (c *Client) SendMessage(ctx context.Context, peerID, text string) (*chat.Message, error) {
	body := map[string]string{"text": text}
	var out sendResponse
	if err := c.do(ctx, http.MethodPost, "/v1/message/send/"+url.PathEscape(peerID), body, &out); err != nil {
		return nil, err
	}
	if out.NewMessage == nil {
		return nil, fmt.Errorf("send succeeded but no message returned")
	}
	return out.NewMessage, nil
}

// SendOptimistic appends a speculative entry before the request and
// reconciles it with the outcome. On failure the entry is removed and
// the composed text returned alongside the error.
func (c *Client) SendOptimistic(ctx context.Context, timeline *Timeline, senderID, peerID, text string) (*chat.Message, string, error) {
	tempID := timeline.AddSpeculative(senderID, peerID, text, time.Now())

	msg, err := c.SendMessage(ctx, peerID, text)
	if err != nil {
		restored, _ := timeline.RemoveSpeculative(tempID)
		return nil, restored, err
	}

	timeline.Merge(*msg)
	return msg, "", nil
}

// History fetches the messages visible to the caller.
func (c *Client) History(ctx context.Context, peerID string) ([]chat.Message, error) {
	var out historyResponse
	if err := c.do(ctx, http.MethodGet, "/v1/message/all/"+url.PathEscape(peerID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Conversations fetches the caller's conversation list.
func (c *Client) Conversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	var out conversationsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/message/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// DeleteConversation hides a conversation from the caller's list.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	var out statusResponse
	return c.do(ctx, http.MethodDelete, "/v1/message/delete/"+url.PathEscape(conversationID), nil, &out)
}

// DeleteConversationWithUser hides the conversation with the peer.
func (c *Client) DeleteConversationWithUser(ctx context.Context, peerID string) error {
	var out statusResponse
	return c.do(ctx, http.MethodDelete, "/v1/message/delete-user/"+url.PathEscape(peerID), nil, &out)
}

// ClearChat hides current history with the peer.
func (c *Client) ClearChat(ctx context.Context, peerID string) error {
	var out statusResponse
	return c.do(ctx, http.MethodDelete, "/v1/message/clear-chat/"+url.PathEscape(peerID), nil, &out)
}

// EventHandlers receives delivery-channel callbacks. Nil handlers are
// skipped.
type EventHandlers struct {
	OnNewMessage          func(chat.Message)
	OnUpdateConversations func()
	OnOnlineUsers         func([]string)
}

type eventEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscribe opens the delivery channel and dispatches events until the
// context is cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, handlers EventHandlers) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		header.Set("X-User-ID", c.userID)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("delivery channel dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("delivery channel dial: %w", err)
	}
	defer conn.Close()

	// The watcher must not outlive this call: a dropped connection ends
	// Subscribe without cancelling ctx, and a reconnect loop would pile
	// up one parked goroutine per attempt.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var envelope eventEnvelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			c.log.Warn().Err(err).Msg("malformed delivery frame")
			continue
		}

		switch envelope.Event {
		case chat.EventNewMessage:
			if handlers.OnNewMessage == nil {
				continue
			}
			var msg chat.Message
			if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
				c.log.Warn().Err(err).Msg("malformed newMessage payload")
				continue
			}
			handlers.OnNewMessage(msg)
		case chat.EventUpdateConversations:
			if handlers.OnUpdateConversations != nil {
				handlers.OnUpdateConversations()
			}
		case chat.EventOnlineUsers:
			if handlers.OnOnlineUsers == nil {
				continue
			}
			var users []string
			if err := json.Unmarshal(envelope.Payload, &users); err != nil {
				c.log.Warn().Err(err).Msg("malformed onlineUsers payload")
				continue
			}
			handlers.OnOnlineUsers(users)
		default:
			c.log.Debug().Str("event", envelope.Event).Msg("unknown delivery event")
		}
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/v1/ws")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var failure statusResponse
		if json.Unmarshal(payload, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, failure.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
