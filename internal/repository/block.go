package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

// Blocked checks both directions in one round trip.
func (r *BlockRepository) Blocked(ctx context.Context, a, b string) (bool, error) {
	defer logger.DeferLogDuration("block.Blocked", time.Now())()
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM blocks
		   WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1))`,
		a, b,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("blockRepo.Blocked: %w", err)
	}
	return ok, nil
}

func (r *BlockRepository) Create(ctx context.Context, blocker, blocked string, at time.Time) (*model.Block, bool, error) {
	defer logger.DeferLogDuration("block.Create", time.Now())()
	b := &model.Block{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (blocker_id, blocked_id) DO NOTHING
		 RETURNING blocker_id, blocked_id, created_at`,
		blocker, blocked, at,
	).Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt)
	if err == nil {
		return b, true, nil
	}
	if isForeignKeyViolation(err) {
		return nil, false, ErrNotFound
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("blockRepo.Create insert: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`SELECT blocker_id, blocked_id, created_at FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blocker, blocked,
	).Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("blockRepo.Create select: %w", err)
	}
	return b, false, nil
}

func (r *BlockRepository) Delete(ctx context.Context, blocker, blocked string) error {
	defer logger.DeferLogDuration("block.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blocker, blocked)
	if err != nil {
		return fmt.Errorf("blockRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BlockRepository) ListByBlocker(ctx context.Context, blocker string) ([]model.Block, error) {
	defer logger.DeferLogDuration("block.ListByBlocker", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT blocker_id, blocked_id, created_at FROM blocks
		 WHERE blocker_id = $1 ORDER BY created_at DESC, blocked_id DESC`, blocker,
	)
	if err != nil {
		return nil, fmt.Errorf("blockRepo.ListByBlocker query: %w", err)
	}
	defer rows.Close()

	list := make([]model.Block, 0, 4)
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("blockRepo.ListByBlocker scan: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// isForeignKeyViolation reports SQLSTATE 23503, raised when the parent row is gone.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
