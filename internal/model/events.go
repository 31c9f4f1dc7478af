package model

// Push-channel event names. The first four are delivered to the client, the
// rest are emitted by it.
const (
	EventNewMessage        = "newMessage"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventMessageSeen       = "messageSeen"

	EventJoinChat   = "joinChat"
	EventLeaveChat  = "leaveChat"
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
)

// TypingSignal is the payload of typing, stopTyping, userTyping and
// userStoppedTyping frames
type TypingSignal struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// SeenReceipt is the payload of a messageSeen frame. A nil MessageIDs means
// the receipt covers every message the local user sent in the chat.
type SeenReceipt struct {
	ChatID     string   `json:"chatId"`
	MessageIDs []string `json:"messageIds,omitempty"`
}
