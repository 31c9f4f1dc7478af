package state

import (
	"sort"
	"time"

	"github.com/mskgit8695/chatapp-frontend/internal/model"
)

// Timeline holds the message sequence for the currently selected chat.
// An empty chat id means nothing is selected. Like Registry it relies on
// the Engine for serialization.
type Timeline struct {
	chatID   string
	messages []model.Message
}

// Reset clears the sequence and scopes the timeline to chatID.
func (t *Timeline) Reset(chatID string) {
	t.chatID = chatID
	t.messages = nil
}

// ChatID returns the chat the timeline is scoped to.
func (t *Timeline) ChatID() string {
	return t.chatID
}

// Replace installs a fetched history wholesale, ordered by creation time.
func (t *Timeline) Replace(msgs []model.Message) {
	t.messages = append([]model.Message(nil), msgs...)
	sort.SliceStable(t.messages, func(i, j int) bool {
		return t.messages[i].CreatedAt.Before(t.messages[j].CreatedAt)
	})
}

// Append inserts msg keeping creation order non-decreasing. Messages scoped
// to another chat or carrying an id already present are dropped: the
// confirmation of a locally sent message and its mirrored push delivery may
// both attempt the insert. Reports whether the message was added.
func (t *Timeline) Append(msg model.Message) bool {
	if msg.ChatID != t.chatID {
		return false
	}
	for i := range t.messages {
		if t.messages[i].ID == msg.ID {
			return false
		}
	}

	// almost always the newest message, so scan from the tail
	i := len(t.messages)
	for i > 0 && t.messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	t.messages = append(t.messages, model.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// MarkSeen flags localUser's messages as seen at the given time. A nil ids
// slice covers every message localUser sent; otherwise only the listed ids
// are touched.
func (t *Timeline) MarkSeen(localUser string, ids []string, at time.Time) {
	var idSet map[string]bool
	if ids != nil {
		idSet = make(map[string]bool, len(ids))
		for _, id := range ids {
			idSet[id] = true
		}
	}
	for i := range t.messages {
		m := &t.messages[i]
		if m.Sender != localUser {
			continue
		}
		if idSet != nil && !idSet[m.ID] {
			continue
		}
		m.Seen = true
		seenAt := at
		m.SeenAt = &seenAt
	}
}

// Messages returns a copy of the sequence.
func (t *Timeline) Messages() []model.Message {
	return append([]model.Message(nil), t.messages...)
}
