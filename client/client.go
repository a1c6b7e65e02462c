// Package client talks to the StudX messaging API over HTTP and keeps a
// polled view of the caller's conversations and the open conversation.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"studx/messaging"
)

const defaultTimeout = 10 * time.Second

var ErrNoConversation = errors.New("no conversation is open")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type errorBody struct {
	Error string `json:"error"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

// SetToken replaces the bearer token used for subsequent calls.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]messaging.ConversationSummary, error) {
	var out struct {
		Conversations []messaging.ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// StartConversation finds or creates the conversation with otherUserID.
func (c *Client) StartConversation(ctx context.Context, otherUserID, otherUserName, otherUserEmail string) (string, error) {
	var out struct {
		ConversationID string `json:"conversationId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages/conversations", map[string]string{
		"otherUserId":    otherUserID,
		"otherUserName":  otherUserName,
		"otherUserEmail": otherUserEmail,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

// ListMessages fetches the log oldest first. The server marks the other
// party's messages read as a side effect.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]messaging.MessageView, error) {
	var out struct {
		Messages []messaging.MessageView `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages/conversations/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (*messaging.MessageView, error) {
	var out struct {
		Message messaging.MessageView `json:"message"`
		Success bool                  `json:"success"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages/conversations/"+conversationID, map[string]string{"text": text}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/api/messages/conversations/"+conversationID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var apiErr errorBody
	req := c.http.R().
		SetContext(ctx).
		SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: apiErr.Error}
	}
	return nil
}
