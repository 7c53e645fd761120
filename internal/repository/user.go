package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = storage.ErrNotFound

// UserRepository reads the users table owned by the identity provider.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EnsureExists inserts u unless a user with the same id is already present.
func (r *UserRepository) EnsureExists(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.EnsureExists", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		u.ID, u.Username, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.EnsureExists: %w", err)
	}
	return nil
}

func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	defer logger.DeferLogDuration("user.Exists", time.Now())()
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("userRepo.Exists: %w", err)
	}
	return ok, nil
}

func (r *UserRepository) IsActive(ctx context.Context, userID string) (bool, error) {
	defer logger.DeferLogDuration("user.IsActive", time.Now())()
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND disabled_at IS NULL)`, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("userRepo.IsActive: %w", err)
	}
	return ok, nil
}
