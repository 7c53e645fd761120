package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
	"github.com/google/uuid"
)

const maxAttachmentKeyLen = 512

// errUnchanged aborts a MessageStore.Update without writing.
var errUnchanged = errors.New("unchanged")

type SendMessageInput struct {
	Text       string
	Attachment *model.Attachment
}

// EditMessageInput is a partial update: nil fields are left as they are.
type EditMessageInput struct {
	Text            *string
	Attachment      *model.Attachment
	ClearAttachment bool
}

func validateAttachment(a *model.Attachment) error {
	if a == nil {
		return nil
	}
	if !a.Kind.Valid() {
		return apperr.Validation("attachment kind must be image, video or audio")
	}
	a.Key = strings.TrimSpace(a.Key)
	if a.Key == "" {
		return apperr.Validation("attachment key is required")
	}
	if len(a.Key) > maxAttachmentKeyLen {
		return apperr.Validation("attachment key is too long")
	}
	return nil
}

// SendMessage appends a message from sender to the other participant. Empty
// text without an attachment is accepted.
func (s *ChatService) SendMessage(ctx context.Context, sender, chatID string, in SendMessageInput) (*model.Message, error) {
	if err := validateAttachment(in.Attachment); err != nil {
		return nil, err
	}
	chat, err := s.chatFor(ctx, sender, chatID)
	if err != nil {
		return nil, err
	}
	receiver := chat.Other(sender)
	// a block created after the chat still stops new messages
	if err := s.requireMayInteract(ctx, sender, receiver); err != nil {
		return nil, err
	}
	now := s.now()
	m := &model.Message{
		ID:         uuid.New().String(),
		ChatID:     chat.ID,
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       in.Text,
		Attachment: in.Attachment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, storeErr("messages.Create", err, "chat not found")
	}
	return m, nil
}

// EditMessage changes the supplied fields of the requester's own message and
// marks it edited. The seen state is not touched.
func (s *ChatService) EditMessage(ctx context.Context, requester, messageID string, in EditMessageInput) (*model.Message, error) {
	if in.Text == nil && in.Attachment == nil && !in.ClearAttachment {
		return nil, apperr.Validation("nothing to edit")
	}
	if in.Attachment != nil && in.ClearAttachment {
		return nil, apperr.Validation("attachment cannot be replaced and cleared at once")
	}
	if err := validateAttachment(in.Attachment); err != nil {
		return nil, err
	}
	m, err := s.messages.Update(ctx, messageID, func(m *model.Message) error {
		if m.IsDeleted {
			return apperr.NotFound("message not found")
		}
		if m.SenderID != requester {
			return apperr.Forbidden("only the sender can edit a message")
		}
		if in.Text != nil {
			m.Text = *in.Text
		}
		switch {
		case in.Attachment != nil:
			a := *in.Attachment
			m.Attachment = &a
		case in.ClearAttachment:
			m.Attachment = nil
		}
		m.Edited = true
		m.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, storeErr("messages.Update", err, "message not found")
	}
	return m, nil
}

// SoftDeleteMessage tombstones the requester's own message. Deleting an
// already deleted message succeeds without changing it.
func (s *ChatService) SoftDeleteMessage(ctx context.Context, requester, messageID string) error {
	_, err := s.messages.Update(ctx, messageID, func(m *model.Message) error {
		if m.SenderID != requester {
			return apperr.Forbidden("only the sender can delete a message")
		}
		if m.IsDeleted {
			return errUnchanged
		}
		m.Tombstone(s.now())
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return storeErr("messages.Update", err, "message not found")
	}
	return nil
}

// ListMessages returns the visible messages of a chat newest first with their
// reactions. limit <= 0 returns every message.
func (s *ChatService) ListMessages(ctx context.Context, requester, chatID string, limit, offset int) ([]model.Message, error) {
	if _, err := s.chatFor(ctx, requester, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListVisible(ctx, chatID, limit, offset)
	if err != nil {
		return nil, storeErr("messages.ListVisible", err, "chat not found")
	}
	if len(msgs) == 0 {
		return msgs, nil
	}
	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	byMsg, err := s.reactions.ListByMessages(ctx, ids)
	if err != nil {
		return nil, storeErr("reactions.ListByMessages", err, "")
	}
	for i := range msgs {
		msgs[i].Reactions = byMsg[msgs[i].ID]
	}
	return msgs, nil
}

// MarkSeen flips every unseen message addressed to requester in the chat and
// returns how many changed. Calling it again returns 0.
func (s *ChatService) MarkSeen(ctx context.Context, requester, chatID string) (int64, error) {
	if _, err := s.chatFor(ctx, requester, chatID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkSeen(ctx, chatID, requester, s.now())
	if err != nil {
		return 0, storeErr("messages.MarkSeen", err, "chat not found")
	}
	return n, nil
}

// UnreadCount counts the user's unseen inbound messages across all chats.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.messages.CountUnread(ctx, userID, "")
	if err != nil {
		return 0, storeErr("messages.CountUnread", err, "")
	}
	return n, nil
}
