package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// composeDebounce is the quiet period after the last keystroke before a
// stopTyping signal goes out.
const composeDebounce = 2000 * time.Millisecond

var (
	// ErrNoSelection is returned when an action needs an active chat.
	ErrNoSelection = errors.New("no conversation selected")
	// ErrEmptyMessage is returned when a send carries neither text nor image.
	ErrEmptyMessage = errors.New("message has no content")
	// ErrClosed is returned after the session has been torn down.
	ErrClosed = errors.New("session closed")
)

// Backend is the request/response side of the chat service.
type Backend interface {
	FetchChats(ctx context.Context) ([]model.ChatEntry, error)
	CreateChat(ctx context.Context, userID, otherUserID string) (string, error)
	FetchMessages(ctx context.Context, chatID string) ([]model.Message, model.User, error)
	SendMessage(ctx context.Context, chatID, text string, image []byte) (model.Message, error)
}

// Emitter is the outbound half of the push channel.
type Emitter interface {
	JoinChat(chatID string) error
	LeaveChat(chatID string) error
	Typing(chatID, userID string) error
	StopTyping(chatID, userID string) error
}

// Notifier receives transient, user-visible notices. None of them are fatal
// to the session.
type Notifier interface {
	Notify(text string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(text string) { f(text) }

// Engine owns the session's conversation state: the registry, the timeline
// of the selected chat, the peer typing flag and the compose draft. It is
// the single writer; every mutation from a request completion or a delivered
// push event is applied under its lock, so readers never observe partial
// states. The lock is never held across a collaborator call.
type Engine struct {
	mu sync.Mutex

	localUser model.User
	registry  Registry
	timeline  Timeline
	peer      *model.User
	selected  string
	typing    bool
	draft     string

	typingTimer *time.Timer
	debounce    time.Duration

	backend  Backend
	emitter  Emitter
	notifier Notifier
	logger   *zap.Logger

	closed bool
}

// New constructs an Engine for localUser. notifier and logger may be nil.
func New(localUser model.User, backend Backend, emitter Emitter, notifier Notifier, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		localUser: localUser,
		debounce:  composeDebounce,
		backend:   backend,
		emitter:   emitter,
		notifier:  notifier,
		logger:    logger,
	}
}

// reconcile is the single merge rule shared by confirmed sends and pushed
// deliveries: a message for the selected chat lands in the timeline and
// promotes the registry entry without touching its unseen counter; a message
// for any other chat promotes the entry and may grow the counter. Callers
// hold e.mu.
func (e *Engine) reconcile(msg model.Message) {
	preview := model.LatestMessage{Text: msg.Preview(), Sender: msg.Sender}
	if e.selected == msg.ChatID {
		e.timeline.Append(msg)
		e.registry.UpsertAndPromote(msg.ChatID, preview, e.localUser.ID, false)
		return
	}
	e.registry.UpsertAndPromote(msg.ChatID, preview, e.localUser.ID, true)
}

// RefreshChats replaces the registry with the authoritative list. Used at
// session start and on explicit refresh only.
func (e *Engine) RefreshChats(ctx context.Context) error {
	entries, err := e.backend.FetchChats(ctx)
	if err != nil {
		e.logger.Warn("chat list fetch failed", zap.Error(err))
		return err
	}
	e.mu.Lock()
	e.registry.Replace(entries)
	e.mu.Unlock()
	return nil
}

// SelectChat makes chatID the active conversation: the previous selection is
// left, its typing state and timeline dropped, the unseen counter reset, and
// the history refetched. Selecting the already-selected chat acts as a
// refresh. A fetch that resolves after the selection has moved on is
// discarded rather than overwriting the newer chat's timeline.
func (e *Engine) SelectChat(ctx context.Context, chatID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	prev := e.selected
	e.stopTypingTimerLocked()
	e.typing = false
	e.draft = ""
	e.selected = chatID
	e.peer = nil
	e.timeline.Reset(chatID)
	e.registry.ResetUnseen(chatID)
	e.mu.Unlock()

	if prev != "" {
		if err := e.emitter.LeaveChat(prev); err != nil {
			e.logger.Warn("leave emit failed", zap.String("chatId", prev), zap.Error(err))
		}
	}
	if err := e.emitter.JoinChat(chatID); err != nil {
		e.logger.Warn("join emit failed", zap.String("chatId", chatID), zap.Error(err))
	}

	msgs, peer, err := e.backend.FetchMessages(ctx, chatID)
	if err != nil {
		e.notifier.Notify("Failed to load messages!")
		return err
	}
	e.applyFetched(chatID, msgs, peer)
	return nil
}

// applyFetched installs a timeline fetch result unless the selection has
// moved on since the request was issued.
func (e *Engine) applyFetched(chatID string, msgs []model.Message, peer model.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected != chatID {
		e.logger.Debug("discarding stale timeline fetch",
			zap.String("requested", chatID),
			zap.String("selected", e.selected))
		return
	}
	e.timeline.Replace(msgs)
	e.peer = &peer
}

// StartChat creates (or looks up) the conversation with peerUserID, selects
// it and refreshes the registry from the authoritative list. On a create
// failure no state changes.
func (e *Engine) StartChat(ctx context.Context, peerUserID string) (string, error) {
	chatID, err := e.backend.CreateChat(ctx, e.localUser.ID, peerUserID)
	if err != nil {
		e.notifier.Notify("Failed to start conversation!")
		return "", err
	}
	if err := e.SelectChat(ctx, chatID); err != nil {
		return chatID, err
	}
	if err := e.RefreshChats(ctx); err != nil {
		return chatID, err
	}
	return chatID, nil
}

// SendMessage delivers text and/or an image to the selected chat. There is
// no optimistic insert: the message enters the timeline only once the server
// confirms it, through the same reconcile routine as pushed deliveries, so
// the mirrored push event cannot duplicate it. A transport failure surfaces
// a notice and leaves local state untouched.
func (e *Engine) SendMessage(ctx context.Context, text string, image []byte) error {
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	chatID := e.selected
	if chatID == "" {
		e.mu.Unlock()
		return ErrNoSelection
	}
	e.stopTypingTimerLocked()
	e.draft = ""
	e.mu.Unlock()

	// a send implicitly ends composing
	if err := e.emitter.StopTyping(chatID, e.localUser.ID); err != nil {
		e.logger.Warn("stopTyping emit failed", zap.String("chatId", chatID), zap.Error(err))
	}

	msg, err := e.backend.SendMessage(ctx, chatID, text, image)
	if err != nil {
		e.notifier.Notify(userMessage(err, "Failed to send message!"))
		return err
	}

	e.mu.Lock()
	e.reconcile(msg)
	e.mu.Unlock()
	return nil
}

// ComposeDraft records the in-progress message text and drives the typing
// signal: a non-empty draft emits typing, and every call re-arms the single
// stop-typing debounce timer, so N keystrokes collapse into one stopTyping
// once the quiet period elapses after the last one.
func (e *Engine) ComposeDraft(text string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.draft = text
	chatID := e.selected
	if chatID == "" {
		e.mu.Unlock()
		return
	}
	userID := e.localUser.ID
	e.stopTypingTimerLocked()
	e.typingTimer = time.AfterFunc(e.debounce, func() {
		if err := e.emitter.StopTyping(chatID, userID); err != nil {
			e.logger.Warn("stopTyping emit failed", zap.String("chatId", chatID), zap.Error(err))
		}
	})
	e.mu.Unlock()

	if strings.TrimSpace(text) != "" {
		if err := e.emitter.Typing(chatID, userID); err != nil {
			e.logger.Warn("typing emit failed", zap.String("chatId", chatID), zap.Error(err))
		}
	}
}

// Close tears the session down: the active chat is left and the debounce
// timer stopped so it cannot fire after the session is gone. Safe to call
// more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTypingTimerLocked()
	selected := e.selected
	e.selected = ""
	e.timeline.Reset("")
	e.mu.Unlock()

	if selected != "" {
		if err := e.emitter.LeaveChat(selected); err != nil {
			e.logger.Warn("leave emit failed", zap.String("chatId", selected), zap.Error(err))
		}
	}
}

// callers hold e.mu
func (e *Engine) stopTypingTimerLocked() {
	if e.typingTimer != nil {
		e.typingTimer.Stop()
		e.typingTimer = nil
	}
}

// LocalUser returns the session user.
func (e *Engine) LocalUser() model.User {
	return e.localUser
}

// Chats returns the registry ordering, most recent first.
func (e *Engine) Chats() []model.ChatEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Entries()
}

// Selected returns the active chat id, or empty.
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Messages returns the timeline of the selected chat.
func (e *Engine) Messages() []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeline.Messages()
}

// Peer returns the other participant of the selected chat once its timeline
// fetch has resolved.
func (e *Engine) Peer() (model.User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.peer == nil {
		return model.User{}, false
	}
	return *e.peer, true
}

// PeerTyping reports whether the peer of the selected chat is composing.
func (e *Engine) PeerTyping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typing
}

// Draft returns the current compose draft.
func (e *Engine) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// userMessage extracts a server-supplied display message when the transport
// error carries one.
func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}
