package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// GetOrCreate inserts the canonical pair and falls back to the existing row on
// conflict, so callers racing from both sides end up on the same chat.
func (r *ChatRepository) GetOrCreate(ctx context.Context, a, b string, at time.Time) (*model.Chat, bool, error) {
	defer logger.DeferLogDuration("chat.GetOrCreate", time.Now())()
	lo, hi := model.CanonicalPair(a, b)
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO chats (id, participant_a, participant_b, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (participant_a, participant_b) DO NOTHING
		 RETURNING id, participant_a, participant_b, created_at`,
		uuid.New().String(), lo, hi, at,
	).Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("chatRepo.GetOrCreate insert: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`SELECT id, participant_a, participant_b, created_at
		 FROM chats WHERE participant_a = $1 AND participant_b = $2`, lo, hi,
	).Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("chatRepo.GetOrCreate select: %w", err)
	}
	return c, false, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	return c, nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.ListByUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_a, participant_b, created_at
		 FROM chats
		 WHERE participant_a = $1 OR participant_b = $1
		 ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListByUser query: %w", err)
	}
	defer rows.Close()

	chats := make([]model.Chat, 0, 16)
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatRepo.ListByUser scan: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ListByUser rows: %w", err)
	}
	return chats, nil
}

// Delete relies on ON DELETE CASCADE for messages, reactions and typing rows.
func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("chat.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chatRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
