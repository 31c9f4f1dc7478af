// Package api implements the HTTP collaborators of the chat core: the
// full-registry fetch, conversation create, timeline fetch, send, and the
// user-service lookups. Every request carries the session bearer token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// ErrNoToken indicates the session collaborator could not supply a bearer
// credential. The client does not retry; the caller surfaces it as an
// unauthenticated state.
var ErrNoToken = errors.New("no session token")

// RequestError is a rejected request. Message carries the server-supplied
// display text when the response body contained one.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed: %d", e.Status)
}

// UserMessage returns the server-supplied display text, if any.
func (e *RequestError) UserMessage() string { return e.Message }

// TokenFunc supplies the bearer credential for a request. It is the auth
// collaborator boundary: session storage lives behind it.
type TokenFunc func() (string, error)

// Client talks to the user and chat services on behalf of the engine.
type Client struct {
	userURL string
	chatURL string
	token   TokenFunc
	httpc   *http.Client
	logger  *zap.Logger
}

// New creates a Client for the given service base URLs. logger may be nil.
func New(userURL, chatURL string, token TokenFunc, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		userURL: strings.TrimRight(userURL, "/"),
		chatURL: strings.TrimRight(chatURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, c.userURL+"/api/v1/users/me", "", nil, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// Users returns every user known to the user service.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out struct {
		Data struct {
			Users []model.User `json:"users"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, c.userURL+"/api/v1/users", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Users, nil
}

// FetchChats returns the authoritative conversation list.
func (c *Client) FetchChats(ctx context.Context) ([]model.ChatEntry, error) {
	var out struct {
		Chats []model.ChatEntry `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, c.chatURL+"/api/v1/chats", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// CreateChat creates (or looks up) the conversation between the two users
// and returns its id.
func (c *Client) CreateChat(ctx context.Context, userID, otherUserID string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"userId":      userID,
		"otherUserId": otherUserID,
	})
	if err != nil {
		return "", fmt.Errorf("encode create chat request: %w", err)
	}
	var out struct {
		ChatID string `json:"chatId"`
	}
	if err := c.do(ctx, http.MethodPost, c.chatURL+"/api/v1/chats", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	return out.ChatID, nil
}

// FetchMessages returns the full ordered history of chatID along with the
// peer user. Responses are tagged by the requested chat id at the engine,
// which discards them when the selection has moved on.
func (c *Client) FetchMessages(ctx context.Context, chatID string) ([]model.Message, model.User, error) {
	var out struct {
		Messages []model.Message `json:"messages"`
		User     model.User      `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, c.chatURL+"/api/v1/chats/message/"+chatID, "", nil, &out); err != nil {
		return nil, model.User{}, err
	}
	return out.Messages, out.User, nil
}

// SendMessage posts a text and/or image message as a multipart form and
// returns the server-confirmed message carrying its assigned id.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, image []byte) (model.Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chatId", chatID); err != nil {
		return model.Message{}, fmt.Errorf("encode send form: %w", err)
	}
	if strings.TrimSpace(text) != "" {
		if err := w.WriteField("text", text); err != nil {
			return model.Message{}, fmt.Errorf("encode send form: %w", err)
		}
	}
	if len(image) > 0 {
		part, err := w.CreateFormFile("image", "image")
		if err != nil {
			return model.Message{}, fmt.Errorf("encode send form: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return model.Message{}, fmt.Errorf("encode send form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return model.Message{}, fmt.Errorf("encode send form: %w", err)
	}

	var out struct {
		Message model.Message `json:"message"`
		Sender  string        `json:"sender"`
	}
	if err := c.do(ctx, http.MethodPost, c.chatURL+"/api/v1/chats/message", w.FormDataContentType(), &buf, &out); err != nil {
		return model.Message{}, err
	}
	if out.Message.Sender == "" {
		out.Message.Sender = out.Sender
	}
	return out.Message, nil
}

// do issues one authenticated request and decodes the JSON response into
// out. Rejected requests become a RequestError preserving any display
// message the server sent.
func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader, out interface{}) error {
	tok, err := c.token()
	if err != nil {
		return fmt.Errorf("resolve session token: %w", err)
	}
	if tok == "" {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		reqErr := &RequestError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			reqErr.Message = payload.Message
		}
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return reqErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
