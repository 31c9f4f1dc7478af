// Package devserver is an in-memory stand-in for the user service, the chat
// service and the push channel, so the client can be developed and tested
// without external infrastructure. For convenience the bearer token is the
// user id. Nothing here persists beyond the process.
package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/config"
	"github.com/mskgit8695/chatapp-frontend/internal/model"
	"github.com/mskgit8695/chatapp-frontend/internal/push"
)

// Handler holds the backend's in-memory state and its dependencies
type Handler struct {
	Config config.Config
	Logger *zap.Logger

	mu       sync.RWMutex
	users    map[string]model.User
	order    []string // user listing order
	chats    map[string]*model.Chat
	messages map[string][]model.Message

	ClientMu  sync.RWMutex
	Clients   map[*websocket.Conn]bool
	Broadcast chan push.Envelope
}

// New creates a Handler seeded with the given users. logger may be nil.
func New(cfg config.Config, logger *zap.Logger, seed ...model.User) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Config:    cfg,
		Logger:    logger,
		users:     make(map[string]model.User, len(seed)),
		chats:     make(map[string]*model.Chat),
		messages:  make(map[string][]model.Message),
		Clients:   make(map[*websocket.Conn]bool),
		Broadcast: make(chan push.Envelope, 100),
	}
	for _, u := range seed {
		h.users[u.ID] = u
		h.order = append(h.order, u.ID)
	}
	return h
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// user service
	r.HandleFunc("/api/v1/users/me", h.GetMe).Methods("GET")
	r.HandleFunc("/api/v1/users", h.GetUsers).Methods("GET")

	// chat service
	r.HandleFunc("/api/v1/chats", h.GetChats).Methods("GET")
	r.HandleFunc("/api/v1/chats", h.CreateChat).Methods("POST")
	r.HandleFunc("/api/v1/chats/message/{chatId}", h.GetChatMessages).Methods("GET")
	r.HandleFunc("/api/v1/chats/message", h.SendChatMessage).Methods("POST")

	// push channel
	r.HandleFunc("/ws", h.HandleWebSocket).Methods("GET")

	return r
}

// userFromRequest resolves the bearer token to a seeded user.
func (h *Handler) userFromRequest(r *http.Request) (model.User, bool) {
	auth := r.Header.Get("Authorization")
	tok := strings.TrimPrefix(auth, "Bearer ")
	if tok == "" || tok == auth {
		return model.User{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.users[tok]
	return u, ok
}

// peerOf returns the participant of chat other than userID.
func (h *Handler) peerOf(chat *model.Chat, userID string) (model.User, bool) {
	for _, id := range chat.Users {
		if id != userID {
			u, ok := h.users[id]
			return u, ok
		}
	}
	return model.User{}, false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// broadcastEvent queues one push frame for delivery to every connected
// client; recipients filter by chat id and user id themselves.
func (h *Handler) broadcastEvent(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.Logger.Warn("encode broadcast payload failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.Broadcast <- push.Envelope{Event: event, Data: payload}
}
