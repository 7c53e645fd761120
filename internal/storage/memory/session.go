package memory

import (
	"context"
	"time"

	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage"
)

// Sessions is the sessions table view of the store.
type Sessions struct{ *Store }

// AddSession stores a session row.
func (s *Store) AddSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sess
}

// GetByID returns only sessions that are not revoked.
func (s Sessions) GetByID(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.RevokedAt != nil {
		return nil, storage.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s Sessions) UpdateLastSeen(ctx context.Context, sessionID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.RevokedAt == nil {
		sess.LastSeenAt = t
	}
	return nil
}

func (s Sessions) Revoke(ctx context.Context, userID, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID || sess.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	sess.RevokedAt = &now
	return true, nil
}
