package model

import "time"

// Chat is a two-party thread. ParticipantA is always the lexically smaller id,
// so one row exists per unordered pair.
type Chat struct {
	ID           string    `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is bound to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// CanonicalPair orders two user ids the way chats store them.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ChatSummary is a chat as seen by one participant.
type ChatSummary struct {
	Chat        Chat     `json:"chat"`
	OtherUserID string   `json:"other_user_id"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

type TypingStatus struct {
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Block is stored directionally but suppresses interaction both ways.
type Block struct {
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}
