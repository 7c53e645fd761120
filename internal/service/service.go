// Package service implements the direct-messaging core on top of the storage
// interfaces. Every operation takes the acting user explicitly and returns
// *apperr.Error values for expected failures.
package service

import (
	"errors"
	"time"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/storage"
)

const defaultEnrichLimit = 8

type ChatService struct {
	users     storage.UserDirectory
	blocks    storage.BlockStore
	chats     storage.ChatStore
	messages  storage.MessageStore
	reactions storage.ReactionStore
	typing    storage.TypingStore

	now         func() time.Time
	enrichLimit int
}

type Option func(*ChatService)

// WithClock replaces time.Now; tests use it to get distinct, ordered timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

// WithEnrichLimit bounds the parallel per-chat lookups of ListChats.
func WithEnrichLimit(n int) Option {
	return func(s *ChatService) {
		if n > 0 {
			s.enrichLimit = n
		}
	}
}

func NewChatService(b storage.ChatBackend, opts ...Option) *ChatService {
	s := &ChatService{
		users:       b.Users,
		blocks:      b.Blocks,
		chats:       b.Chats,
		messages:    b.Messages,
		reactions:   b.Reactions,
		typing:      b.Typing,
		now:         func() time.Time { return time.Now().UTC() },
		enrichLimit: defaultEnrichLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// storeErr maps a storage failure to the error returned to callers. Errors that
// already carry a kind pass through unchanged.
func storeErr(op string, err error, notFoundMsg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	logger.Errorf("%s: %v", op, err)
	return apperr.Internal(op, err)
}
