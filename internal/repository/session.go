package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session row as issued by the identity provider.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	defer logger.DeferLogDuration("session.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, device_name, last_seen_at, created_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, NULL)`,
		s.ID, s.UserID, s.DeviceName, s.LastSeenAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}
	return nil
}

// GetByID returns the session only while revoked_at IS NULL.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	defer logger.DeferLogDuration("session.GetByID", time.Now())()
	s := &model.Session{}
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, device_name, last_seen_at, created_at, revoked_at
		 FROM sessions WHERE id = $1 AND revoked_at IS NULL`, id)
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceName, &s.LastSeenAt, &s.CreatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID string, t time.Time) error {
	defer logger.DeferLogDuration("session.UpdateLastSeen", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = $1 WHERE id = $2 AND revoked_at IS NULL`, t, sessionID)
	if err != nil {
		return fmt.Errorf("sessionRepo.UpdateLastSeen: %w", err)
	}
	return nil
}

// Revoke marks one of the user's sessions revoked. The secret is cleared by the caller.
func (r *SessionRepository) Revoke(ctx context.Context, userID, sessionID string) (bool, error) {
	defer logger.DeferLogDuration("session.Revoke", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND id = $2 AND revoked_at IS NULL`, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("sessionRepo.Revoke: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepository) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	defer logger.DeferLogDuration("session.SetSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET session_secret = $1 WHERE id = $2 AND revoked_at IS NULL`, secret, sessionID)
	return err
}

// GetSessionSecret returns "" when the column is NULL or the session is revoked.
func (r *SessionRepository) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	defer logger.DeferLogDuration("session.GetSessionSecret", time.Now())()
	var secret *string
	err := r.pool.QueryRow(ctx, `SELECT session_secret FROM sessions WHERE id = $1 AND revoked_at IS NULL`, sessionID).Scan(&secret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if secret == nil {
		return "", nil
	}
	return *secret, nil
}

func (r *SessionRepository) ClearSessionSecret(ctx context.Context, sessionID string) error {
	defer logger.DeferLogDuration("session.ClearSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET session_secret = NULL WHERE id = $1`, sessionID)
	return err
}
