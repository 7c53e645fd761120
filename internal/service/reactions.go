package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
	"github.com/google/uuid"
)

const maxEmojiRunes = 10

// visibleMessageFor loads a message that is not deleted and checks that userID
// takes part in its chat.
func (s *ChatService) visibleMessageFor(ctx context.Context, userID, messageID string) (*model.Message, *model.Chat, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, storeErr("messages.GetByID", err, "message not found")
	}
	if m.IsDeleted {
		return nil, nil, apperr.NotFound("message not found")
	}
	chat, err := s.chatFor(ctx, userID, m.ChatID)
	if err != nil {
		return nil, nil, err
	}
	return m, chat, nil
}

// React records the user's emoji on a message. An existing reaction is
// returned as stored, even when emoji differs; remove it first to change it.
func (s *ChatService) React(ctx context.Context, userID, messageID, emoji string) (*model.Reaction, bool, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, false, apperr.Validation("emoji is required")
	}
	if utf8.RuneCountInString(emoji) > maxEmojiRunes {
		return nil, false, apperr.Validation("emoji is too long")
	}
	m, chat, err := s.visibleMessageFor(ctx, userID, messageID)
	if err != nil {
		return nil, false, err
	}
	if err := s.requireMayInteract(ctx, userID, chat.Other(userID)); err != nil {
		return nil, false, err
	}
	r, created, err := s.reactions.GetOrCreate(ctx, &model.Reaction{
		ID:        uuid.New().String(),
		MessageID: m.ID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, false, storeErr("reactions.GetOrCreate", err, "message not found")
	}
	return r, created, nil
}

func (s *ChatService) RemoveReaction(ctx context.Context, userID, messageID string) error {
	if err := s.reactions.Delete(ctx, messageID, userID); err != nil {
		return storeErr("reactions.Delete", err, "reaction not found")
	}
	return nil
}

func (s *ChatService) ListReactions(ctx context.Context, userID, messageID string) ([]model.Reaction, error) {
	if _, _, err := s.visibleMessageFor(ctx, userID, messageID); err != nil {
		return nil, err
	}
	list, err := s.reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, storeErr("reactions.ListByMessage", err, "message not found")
	}
	return list, nil
}
