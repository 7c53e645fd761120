// Package memory implements every storage interface in process memory. It is
// used by tests and by STORAGE=memory; one mutex serializes all writes, which
// stands in for the row locks and unique constraints of the Postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmchat/internal/model"
)

const sessionSecretTTL = 30 * 24 * time.Hour

type item struct {
	val string
	exp time.Time
}

type pairKey struct{ a, b string }

type Store struct {
	mu sync.RWMutex

	users    map[string]*model.User
	sessions map[string]*model.Session
	secrets  map[string]item

	blocks    map[pairKey]model.Block
	chats     map[string]*model.Chat
	chatPairs map[pairKey]string
	messages  map[string]*model.Message
	reactions map[pairKey]*model.Reaction // (message_id, user_id)
	typing    map[pairKey]*model.TypingStatus
}

func New() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		sessions:  make(map[string]*model.Session),
		secrets:   make(map[string]item),
		blocks:    make(map[pairKey]model.Block),
		chats:     make(map[string]*model.Chat),
		chatPairs: make(map[pairKey]string),
		messages:  make(map[string]*model.Message),
		reactions: make(map[pairKey]*model.Reaction),
		typing:    make(map[pairKey]*model.TypingStatus),
	}
}

func (s *Store) Close() error { return nil }

// AddUser registers a user; the identity provider owns users in production.
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// DisableUser marks the user inactive.
func (s *Store) DisableUser(userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.DisabledAt = &at
	}
}

func (s *Store) Exists(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *Store) IsActive(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return ok && u.IsActive(), nil
}

func (s *Store) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[sessionID] = item{val: secret, exp: time.Now().Add(sessionSecretTTL)}
	return nil
}

func (s *Store) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.secrets[sessionID]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (s *Store) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, sessionID)
	return nil
}
