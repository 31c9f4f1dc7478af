package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// GetMe handles GET /api/v1/users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.User{"user": user})
}

// GetUsers handles GET /api/v1/users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userFromRequest(r); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.mu.RLock()
	users := make([]model.User, 0, len(h.order))
	for _, id := range h.order {
		users = append(users, h.users[id])
	}
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"users": users},
	})
}

// GetChats handles GET /api/v1/chats
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.mu.RLock()
	entries := make([]model.ChatEntry, 0, len(h.chats))
	for id, chat := range h.chats {
		peer, ok := h.peerOf(chat, user.ID)
		if !ok {
			continue
		}
		participant := false
		for _, uid := range chat.Users {
			if uid == user.ID {
				participant = true
			}
		}
		if !participant {
			continue
		}
		summary := *chat
		summary.UnseenCount = 0
		for _, msg := range h.messages[id] {
			if msg.Sender != user.ID && !msg.Seen {
				summary.UnseenCount++
			}
		}
		entries = append(entries, model.ChatEntry{User: peer, Chat: summary})
	}
	h.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Chat.UpdatedAt.After(entries[j].Chat.UpdatedAt)
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": entries})
}

// CreateChat handles POST /api/v1/chats. An existing chat between the same
// pair is reused rather than duplicated.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		UserID      string `json:"userId"`
		OtherUserID string `json:"otherUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OtherUserID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[req.OtherUserID]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	for id, chat := range h.chats {
		if hasPair(chat.Users, user.ID, req.OtherUserID) {
			writeJSON(w, http.StatusOK, map[string]string{"chatId": id})
			return
		}
	}

	now := time.Now()
	chat := &model.Chat{
		ID:        uuid.NewString(),
		Users:     []string{user.ID, req.OtherUserID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.chats[chat.ID] = chat
	h.Logger.Info("chat created",
		zap.String("chatId", chat.ID),
		zap.String("userId", user.ID),
		zap.String("otherUserId", req.OtherUserID))
	writeJSON(w, http.StatusCreated, map[string]string{"chatId": chat.ID})
}

func hasPair(users []string, a, b string) bool {
	var foundA, foundB bool
	for _, id := range users {
		if id == a {
			foundA = true
		}
		if id == b {
			foundB = true
		}
	}
	return foundA && foundB
}

// GetChatMessages handles GET /api/v1/chats/message/{chatId}. Fetching a
// history reads it: the peer's unread messages become seen and a
// messageSeen receipt goes out so the sender's client can update its ticks.
func (h *Handler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	chatID := mux.Vars(r)["chatId"]

	h.mu.Lock()
	chat, ok := h.chats[chatID]
	if !ok {
		h.mu.Unlock()
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	peer, ok := h.peerOf(chat, user.ID)
	if !ok {
		h.mu.Unlock()
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}

	now := time.Now()
	var seenIDs []string
	msgs := h.messages[chatID]
	for i := range msgs {
		if msgs[i].Sender != user.ID && !msgs[i].Seen {
			msgs[i].Seen = true
			seenAt := now
			msgs[i].SeenAt = &seenAt
			seenIDs = append(seenIDs, msgs[i].ID)
		}
	}
	out := append([]model.Message(nil), msgs...)
	h.mu.Unlock()

	if len(seenIDs) > 0 {
		h.broadcastEvent(model.EventMessageSeen, model.SeenReceipt{
			ChatID:     chatID,
			MessageIDs: seenIDs,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": out,
		"user":     peer,
	})
}

// SendChatMessage handles POST /api/v1/chats/message (multipart form with
// chatId, optional text, optional image file). The confirmed message is
// returned to the sender and mirrored to every push client, which is the
// dual delivery the client's dedup guard exists for.
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	chatID := r.FormValue("chatId")
	text := strings.TrimSpace(r.FormValue("text"))
	var image []byte
	if file, _, err := r.FormFile("image"); err == nil {
		image, _ = io.ReadAll(file)
		file.Close()
	}
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chatId is required")
		return
	}
	if text == "" && len(image) == 0 {
		writeError(w, http.StatusBadRequest, "Message must have text or image")
		return
	}

	h.mu.Lock()
	chat, ok := h.chats[chatID]
	if !ok {
		h.mu.Unlock()
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}

	msg := model.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    user.ID,
		Text:      text,
		Type:      model.MessageText,
		CreatedAt: time.Now(),
	}
	if len(image) > 0 {
		msg.Type = model.MessageImage
		msg.Image = &model.Image{URL: "mem://" + msg.ID, PublicID: msg.ID}
	}
	h.messages[chatID] = append(h.messages[chatID], msg)
	chat.LatestMessage = model.LatestMessage{Text: msg.Preview(), Sender: msg.Sender}
	chat.UpdatedAt = msg.CreatedAt
	h.mu.Unlock()

	h.Logger.Info("message stored",
		zap.String("chatId", chatID),
		zap.String("messageId", msg.ID),
		zap.String("sender", user.ID))

	h.broadcastEvent(model.EventNewMessage, msg)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": msg,
		"sender":  user.ID,
	})
}
