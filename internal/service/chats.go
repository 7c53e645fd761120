package service

import (
	"context"
	"strings"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
	"golang.org/x/sync/errgroup"
)

// GetOrCreateChat returns the chat between requester and other, creating it on
// first contact. created reports whether a new row was inserted.
func (s *ChatService) GetOrCreateChat(ctx context.Context, requester, other string) (chat *model.Chat, created bool, err error) {
	other = strings.TrimSpace(other)
	if other == "" {
		return nil, false, apperr.Validation("user_id is required")
	}
	if other == requester {
		return nil, false, apperr.Validation("cannot open a chat with yourself")
	}
	exists, err := s.users.Exists(ctx, other)
	if err != nil {
		return nil, false, storeErr("users.Exists", err, "user not found")
	}
	if !exists {
		return nil, false, apperr.NotFound("user not found")
	}
	if err := s.requireMayInteract(ctx, requester, other); err != nil {
		return nil, false, err
	}
	chat, created, err = s.chats.GetOrCreate(ctx, requester, other, s.now())
	if err != nil {
		return nil, false, storeErr("chats.GetOrCreate", err, "chat not found")
	}
	return chat, created, nil
}

// chatFor loads a chat and checks that userID takes part in it.
func (s *ChatService) chatFor(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, storeErr("chats.GetByID", err, "chat not found")
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.Forbidden("not a participant of this chat")
	}
	return chat, nil
}

func (s *ChatService) GetChat(ctx context.Context, requester, chatID string) (*model.ChatSummary, error) {
	chat, err := s.chatFor(ctx, requester, chatID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, requester, *chat)
}

// ListChats returns the user's chats newest first, each with its last message
// and the caller's unread count.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.ChatSummary, error) {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("chats.ListByUser", err, "")
	}
	out := make([]model.ChatSummary, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichLimit)
	for i, c := range chats {
		g.Go(func() error {
			sum, err := s.summarize(gctx, userID, c)
			if err != nil {
				return err
			}
			out[i] = *sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChatService) summarize(ctx context.Context, userID string, c model.Chat) (*model.ChatSummary, error) {
	last, err := s.messages.Last(ctx, c.ID)
	if err != nil {
		return nil, storeErr("messages.Last", err, "chat not found")
	}
	unread, err := s.messages.CountUnread(ctx, userID, c.ID)
	if err != nil {
		return nil, storeErr("messages.CountUnread", err, "chat not found")
	}
	return &model.ChatSummary{
		Chat:        c,
		OtherUserID: c.Other(userID),
		LastMessage: last,
		UnreadCount: unread,
	}, nil
}

// DeleteChat removes the chat together with its messages, reactions and typing rows.
func (s *ChatService) DeleteChat(ctx context.Context, requester, chatID string) error {
	if _, err := s.chatFor(ctx, requester, chatID); err != nil {
		return err
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return storeErr("chats.Delete", err, "chat not found")
	}
	return nil
}
