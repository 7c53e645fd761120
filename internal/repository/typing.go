package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TypingRepository struct {
	pool *pgxpool.Pool
}

func NewTypingRepository(pool *pgxpool.Pool) *TypingRepository {
	return &TypingRepository{pool: pool}
}

// Upsert is last-write-wins on (chat_id, user_id).
func (r *TypingRepository) Upsert(ctx context.Context, ts *model.TypingStatus) error {
	defer logger.DeferLogDuration("typing.Upsert", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO typing_status (chat_id, user_id, is_typing, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id, user_id) DO UPDATE SET
		   is_typing = EXCLUDED.is_typing,
		   updated_at = EXCLUDED.updated_at`,
		ts.ChatID, ts.UserID, ts.IsTyping, ts.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("typingRepo.Upsert: %w", err)
	}
	return nil
}

func (r *TypingRepository) ListByChat(ctx context.Context, chatID string) ([]model.TypingStatus, error) {
	defer logger.DeferLogDuration("typing.ListByChat", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT chat_id, user_id, is_typing, updated_at
		 FROM typing_status WHERE chat_id = $1 ORDER BY user_id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("typingRepo.ListByChat query: %w", err)
	}
	defer rows.Close()

	list := make([]model.TypingStatus, 0, 2)
	for rows.Next() {
		var ts model.TypingStatus
		if err := rows.Scan(&ts.ChatID, &ts.UserID, &ts.IsTyping, &ts.UpdatedAt); err != nil {
			return nil, fmt.Errorf("typingRepo.ListByChat scan: %w", err)
		}
		list = append(list, ts)
	}
	return list, rows.Err()
}
