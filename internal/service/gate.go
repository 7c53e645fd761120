package service

import (
	"context"

	"github.com/dmchat/internal/apperr"
)

// MayInteract is false when either user has blocked the other.
func (s *ChatService) MayInteract(ctx context.Context, a, b string) (bool, error) {
	blocked, err := s.blocks.Blocked(ctx, a, b)
	if err != nil {
		return false, storeErr("blocks.Blocked", err, "")
	}
	return !blocked, nil
}

func (s *ChatService) requireMayInteract(ctx context.Context, a, b string) error {
	ok, err := s.MayInteract(ctx, a, b)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("interaction between these users is blocked")
	}
	return nil
}
