// Package push implements the client side of the bidirectional push
// channel: it emits join/leave/typing signals and delivers server events
// (new messages, typing, seen receipts) to the state engine in arrival
// order.
package push

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// Envelope is the wire frame for every push-channel message in either
// direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Sink receives delivered push events, one at a time, in delivery order.
type Sink interface {
	HandleEvent(event string, data json.RawMessage)
}

// Channel is an established push connection. Reconnect and backoff are the
// caller's concern; a Channel is good for exactly one connection lifetime.
type Channel struct {
	conn   *websocket.Conn
	mu     sync.Mutex // serializes writes; the conn allows one writer at a time
	logger *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the push endpoint. The bearer token rides on the
// handshake request.
func Dial(url, token string, logger *zap.Logger) (*Channel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dial push channel %s: %w", url, err)
	}
	return &Channel{conn: conn, logger: logger, done: make(chan struct{})}, nil
}

// Run reads delivered frames and hands them to sink until the connection
// closes. Running it on a single goroutine is what guarantees in-order,
// non-overlapping event application.
func (c *Channel) Run(sink Sink) error {
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("push channel read: %w", err)
		}
		if env.Event == "" {
			c.logger.Warn("dropping push frame without event name")
			continue
		}
		sink.HandleEvent(env.Event, env.Data)
	}
}

// Close shuts the connection down; Run returns once the read loop notices.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Channel) emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(Envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// JoinChat announces interest in chatID's events.
func (c *Channel) JoinChat(chatID string) error {
	return c.emit(model.EventJoinChat, chatID)
}

// LeaveChat withdraws interest in chatID's events.
func (c *Channel) LeaveChat(chatID string) error {
	return c.emit(model.EventLeaveChat, chatID)
}

// Typing signals that userID is composing in chatID.
func (c *Channel) Typing(chatID, userID string) error {
	return c.emit(model.EventTyping, model.TypingSignal{ChatID: chatID, UserID: userID})
}

// StopTyping signals that userID stopped composing in chatID.
func (c *Channel) StopTyping(chatID, userID string) error {
	return c.emit(model.EventStopTyping, model.TypingSignal{ChatID: chatID, UserID: userID})
}
