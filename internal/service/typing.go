package service

import (
	"context"

	"github.com/dmchat/internal/model"
)

// SetTyping overwrites the user's typing row for the chat. Clearing is always
// allowed; starting to type is not while the pair is blocked.
func (s *ChatService) SetTyping(ctx context.Context, userID, chatID string, isTyping bool) (*model.TypingStatus, error) {
	chat, err := s.chatFor(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if isTyping {
		if err := s.requireMayInteract(ctx, userID, chat.Other(userID)); err != nil {
			return nil, err
		}
	}
	ts := &model.TypingStatus{ChatID: chatID, UserID: userID, IsTyping: isTyping, UpdatedAt: s.now()}
	if err := s.typing.Upsert(ctx, ts); err != nil {
		return nil, storeErr("typing.Upsert", err, "chat not found")
	}
	return ts, nil
}

func (s *ChatService) ListTyping(ctx context.Context, userID, chatID string) ([]model.TypingStatus, error) {
	if _, err := s.chatFor(ctx, userID, chatID); err != nil {
		return nil, err
	}
	list, err := s.typing.ListByChat(ctx, chatID)
	if err != nil {
		return nil, storeErr("typing.ListByChat", err, "chat not found")
	}
	return list, nil
}
