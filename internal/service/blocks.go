package service

import (
	"context"
	"strings"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
)

// Block stores (blocker, blocked); blocking twice returns the existing row.
func (s *ChatService) Block(ctx context.Context, blocker, blocked string) (*model.Block, bool, error) {
	blocked = strings.TrimSpace(blocked)
	if blocked == "" {
		return nil, false, apperr.Validation("user_id is required")
	}
	if blocked == blocker {
		return nil, false, apperr.Validation("cannot block yourself")
	}
	exists, err := s.users.Exists(ctx, blocked)
	if err != nil {
		return nil, false, storeErr("users.Exists", err, "user not found")
	}
	if !exists {
		return nil, false, apperr.NotFound("user not found")
	}
	b, created, err := s.blocks.Create(ctx, blocker, blocked, s.now())
	if err != nil {
		return nil, false, storeErr("blocks.Create", err, "user not found")
	}
	return b, created, nil
}

// Unblock removes only the row the blocker created.
func (s *ChatService) Unblock(ctx context.Context, blocker, blocked string) error {
	if err := s.blocks.Delete(ctx, blocker, blocked); err != nil {
		return storeErr("blocks.Delete", err, "block not found")
	}
	return nil
}

func (s *ChatService) ListBlocks(ctx context.Context, blocker string) ([]model.Block, error) {
	list, err := s.blocks.ListByBlocker(ctx, blocker)
	if err != nil {
		return nil, storeErr("blocks.ListByBlocker", err, "")
	}
	return list, nil
}
