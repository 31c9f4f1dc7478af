package model

import "time"

// Message type discriminators
const (
	MessageText  = "text"
	MessageImage = "image"
)

// Image is an uploaded image attachment reference
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Message represents a chat message. ID is server-assigned and is the sole
// deduplication key; messages are never deleted, only flagged seen.
type Message struct {
	ID        string     `json:"_id"`
	ChatID    string     `json:"chatId"`
	Sender    string     `json:"sender"`
	Text      string     `json:"text,omitempty"`
	Image     *Image     `json:"image,omitempty"`
	Type      string     `json:"messageType"`
	Seen      bool       `json:"seen"`
	SeenAt    *time.Time `json:"seenAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Preview returns the conversation-list preview text for the message.
func (m Message) Preview() string {
	if m.Type == MessageImage {
		return "📷 image"
	}
	return m.Text
}
