package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dmchat/internal/model"
)

// ErrNotFound is returned by every store when the addressed row is absent.
var ErrNotFound = errors.New("not found")

// UserDirectory is the identity provider as seen by the chat core.
// Implementations: repository.UserRepository, memory.Store.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	IsActive(ctx context.Context, userID string) (bool, error)
}

// BlockStore holds directional block rows.
type BlockStore interface {
	// Blocked reports whether a row exists in either direction.
	Blocked(ctx context.Context, a, b string) (bool, error)
	// Create inserts (blocker, blocked) unless present; created is false when it already existed.
	Create(ctx context.Context, blocker, blocked string, at time.Time) (b *model.Block, created bool, err error)
	Delete(ctx context.Context, blocker, blocked string) error
	ListByBlocker(ctx context.Context, blocker string) ([]model.Block, error)
}

// ChatStore keeps one chat per unordered participant pair.
type ChatStore interface {
	// GetOrCreate resolves the chat for the pair, inserting it when missing.
	// Concurrent calls with swapped arguments return the same row.
	GetOrCreate(ctx context.Context, a, b string, at time.Time) (c *model.Chat, created bool, err error)
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]model.Chat, error)
	// Delete removes the chat with its messages, reactions and typing rows.
	Delete(ctx context.Context, id string) error
}

// MessageStore is the per-chat message log.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// Update applies fn to the message under a row lock and persists the result.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(m *model.Message) error) (*model.Message, error)
	// ListVisible returns non-deleted messages newest first; limit <= 0 means all.
	ListVisible(ctx context.Context, chatID string, limit, offset int) ([]model.Message, error)
	// Last returns the newest message of the chat, deleted or not; nil when empty.
	Last(ctx context.Context, chatID string) (*model.Message, error)
	// MarkSeen flips every unseen message addressed to receiverID in one step.
	MarkSeen(ctx context.Context, chatID, receiverID string, at time.Time) (int64, error)
	// CountUnread counts unseen, non-deleted messages addressed to receiverID;
	// an empty chatID counts across all chats.
	CountUnread(ctx context.Context, receiverID, chatID string) (int, error)
}

// ReactionStore keeps at most one reaction per (message, user).
type ReactionStore interface {
	// GetOrCreate never changes the emoji of an existing reaction.
	GetOrCreate(ctx context.Context, r *model.Reaction) (stored *model.Reaction, created bool, err error)
	Delete(ctx context.Context, messageID, userID string) error
	ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error)
	ListByMessages(ctx context.Context, messageIDs []string) (map[string][]model.Reaction, error)
}

// TypingStore is last-write-wins presence, one row per (chat, user).
type TypingStore interface {
	Upsert(ctx context.Context, ts *model.TypingStatus) error
	ListByChat(ctx context.Context, chatID string) ([]model.TypingStatus, error)
}

// SessionSecretStore holds per-session HMAC secrets.
// Implementations: redis.Client, memory.Store, devstore.Client.
type SessionSecretStore interface {
	SetSessionSecret(ctx context.Context, sessionID, secret string) error
	GetSessionSecret(ctx context.Context, sessionID string) (string, error)
	DeleteSessionSecret(ctx context.Context, sessionID string) error
	Close() error
}

// SessionStore is the sessions table.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*model.Session, error)
	UpdateLastSeen(ctx context.Context, sessionID string, t time.Time) error
	// Revoke marks the user's session revoked; false when nothing was active.
	Revoke(ctx context.Context, userID, sessionID string) (bool, error)
}

// ChatBackend bundles every store the chat services need.
type ChatBackend struct {
	Users     UserDirectory
	Blocks    BlockStore
	Chats     ChatStore
	Messages  MessageStore
	Reactions ReactionStore
	Typing    TypingStore
}
