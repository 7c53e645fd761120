package repository

import (
	"github.com/dmchat/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewBackend wires every Postgres repository behind the storage interfaces.
func NewBackend(pool *pgxpool.Pool) storage.ChatBackend {
	return storage.ChatBackend{
		Users:     NewUserRepository(pool),
		Blocks:    NewBlockRepository(pool),
		Chats:     NewChatRepository(pool),
		Messages:  NewMessageRepository(pool),
		Reactions: NewReactionRepository(pool),
		Typing:    NewTypingRepository(pool),
	}
}
