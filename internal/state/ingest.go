package state

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// HandleEvent applies one delivered push event. The push channel calls this
// from its single reader goroutine, so events are applied strictly in
// delivery order; each one is applied atomically under the engine lock.
// Payloads that do not decode, or that miss required fields, are dropped
// with a diagnostic and never crash the routine.
func (e *Engine) HandleEvent(event string, data json.RawMessage) {
	switch event {
	case model.EventNewMessage:
		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.ID == "" || msg.ChatID == "" {
			e.logger.Warn("dropping malformed newMessage event", zap.Error(err))
			return
		}
		e.mu.Lock()
		e.reconcile(msg)
		e.mu.Unlock()

	case model.EventUserTyping, model.EventUserStoppedTyping:
		var sig model.TypingSignal
		if err := json.Unmarshal(data, &sig); err != nil || sig.ChatID == "" {
			e.logger.Warn("dropping malformed typing event", zap.String("event", event), zap.Error(err))
			return
		}
		e.mu.Lock()
		// only the peer of the active chat flips the indicator
		if sig.ChatID == e.selected && sig.UserID != e.localUser.ID {
			e.typing = event == model.EventUserTyping
		}
		e.mu.Unlock()

	case model.EventMessageSeen:
		var receipt model.SeenReceipt
		if err := json.Unmarshal(data, &receipt); err != nil || receipt.ChatID == "" {
			e.logger.Warn("dropping malformed messageSeen event", zap.Error(err))
			return
		}
		e.mu.Lock()
		if receipt.ChatID == e.selected {
			e.timeline.MarkSeen(e.localUser.ID, receipt.MessageIDs, time.Now())
		}
		e.mu.Unlock()

	default:
		e.logger.Debug("ignoring unknown push event", zap.String("event", event))
	}
}
