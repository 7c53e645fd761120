package model

import "time"

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentAudio AttachmentKind = "audio"
)

func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentImage, AttachmentVideo, AttachmentAudio:
		return true
	}
	return false
}

// Attachment references an externally stored blob; payload bytes never pass
// through the chat core.
type Attachment struct {
	Kind AttachmentKind `json:"kind"`
	Key  string         `json:"key"`
}

type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chat_id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Seen       bool        `json:"seen"`
	SeenAt     *time.Time  `json:"seen_at,omitempty"`
	Edited     bool        `json:"edited"`
	IsDeleted  bool        `json:"is_deleted"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Reactions  []Reaction  `json:"reactions,omitempty"`
}

// Tombstone clears the content of a soft-deleted message. It cannot be undone.
func (m *Message) Tombstone(at time.Time) {
	m.IsDeleted = true
	m.Text = ""
	m.Attachment = nil
	m.UpdatedAt = at
}

type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
