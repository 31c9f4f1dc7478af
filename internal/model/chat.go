package model

import "time"

// User is a chat participant as returned by the user service
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LatestMessage is the preview of a chat's most recent message
type LatestMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// Chat is a two-party conversation summary. UnseenCount grows only for
// messages from the peer while the chat is not the active one.
type Chat struct {
	ID            string        `json:"_id"`
	Users         []string      `json:"users"`
	LatestMessage LatestMessage `json:"latestMessage"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	UnseenCount   int           `json:"unseenCount,omitempty"`
}

// ChatEntry pairs a chat summary with the peer user on its other side.
type ChatEntry struct {
	User User `json:"user"`
	Chat Chat `json:"chat"`
}
