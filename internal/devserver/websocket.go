package devserver

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
	"github.com/mskgit8695/chatapp-frontend/internal/push"
)

// createUpgrader creates a WebSocket upgrader with the given allowed origins
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients send no Origin header
				return true
			}
			return allowedMap[origin]
		},
	}
}

// HandleWebSocket handles GET /ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := createUpgrader(h.Config.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.ClientMu.Lock()
	h.Clients[conn] = true
	total := len(h.Clients)
	h.ClientMu.Unlock()

	h.Logger.Info("push client connected", zap.Int("clients", total))

	for {
		var env push.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			h.ClientMu.Lock()
			delete(h.Clients, conn)
			remaining := len(h.Clients)
			h.ClientMu.Unlock()
			h.Logger.Info("push client disconnected", zap.Int("clients", remaining))
			return
		}
		h.handleClientFrame(env)
	}
}

// handleClientFrame processes one frame emitted by a client. Typing signals
// are mirrored to everyone as userTyping/userStoppedTyping; join and leave
// are accepted without per-connection rooms since clients filter by chat id.
func (h *Handler) handleClientFrame(env push.Envelope) {
	switch env.Event {
	case model.EventTyping:
		h.Broadcast <- push.Envelope{Event: model.EventUserTyping, Data: env.Data}
	case model.EventStopTyping:
		h.Broadcast <- push.Envelope{Event: model.EventUserStoppedTyping, Data: env.Data}
	case model.EventJoinChat, model.EventLeaveChat:
		// no-op
	default:
		h.Logger.Debug("ignoring unknown client frame", zap.String("event", env.Event))
	}
}

// HandleBroadcast fans queued frames out to all connected clients. Run it on
// its own goroutine.
func (h *Handler) HandleBroadcast() {
	for env := range h.Broadcast {
		// snapshot the clients map before writing so a disconnect during
		// the fan-out cannot mutate the map mid-iteration
		h.ClientMu.RLock()
		snapshot := make([]*websocket.Conn, 0, len(h.Clients))
		for client := range h.Clients {
			snapshot = append(snapshot, client)
		}
		h.ClientMu.RUnlock()

		for _, client := range snapshot {
			if err := client.WriteJSON(env); err != nil {
				client.Close()
				h.ClientMu.Lock()
				delete(h.Clients, client)
				h.ClientMu.Unlock()
			}
		}
	}
}
