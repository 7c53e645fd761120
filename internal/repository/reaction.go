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

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// GetOrCreate keeps the first emoji a user put on a message; a later call with
// another emoji returns the stored row unchanged.
func (r *ReactionRepository) GetOrCreate(ctx context.Context, rc *model.Reaction) (*model.Reaction, bool, error) {
	defer logger.DeferLogDuration("reaction.GetOrCreate", time.Now())()
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	out := &model.Reaction{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id, user_id) DO NOTHING
		 RETURNING id, message_id, user_id, emoji, created_at`,
		rc.ID, rc.MessageID, rc.UserID, rc.Emoji, rc.CreatedAt,
	).Scan(&out.ID, &out.MessageID, &out.UserID, &out.Emoji, &out.CreatedAt)
	if err == nil {
		return out, true, nil
	}
	if isForeignKeyViolation(err) {
		return nil, false, ErrNotFound
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("reactionRepo.GetOrCreate insert: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`SELECT id, message_id, user_id, emoji, created_at
		 FROM message_reactions WHERE message_id = $1 AND user_id = $2`,
		rc.MessageID, rc.UserID,
	).Scan(&out.ID, &out.MessageID, &out.UserID, &out.Emoji, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// removed between the two statements
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("reactionRepo.GetOrCreate select: %w", err)
	}
	return out, false, nil
}

func (r *ReactionRepository) Delete(ctx context.Context, messageID, userID string) error {
	defer logger.DeferLogDuration("reaction.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2`,
		messageID, userID,
	)
	if err != nil {
		return fmt.Errorf("reactionRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error) {
	byMsg, err := r.ListByMessages(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if list := byMsg[messageID]; list != nil {
		return list, nil
	}
	return []model.Reaction{}, nil
}

// ListByMessages loads reactions for a page of messages in one query.
func (r *ReactionRepository) ListByMessages(ctx context.Context, messageIDs []string) (map[string][]model.Reaction, error) {
	defer logger.DeferLogDuration("reaction.ListByMessages", time.Now())()
	out := make(map[string][]model.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, message_id, user_id, emoji, created_at
		 FROM message_reactions
		 WHERE message_id = ANY($1)
		 ORDER BY created_at, id`, messageIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.ListByMessages query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc model.Reaction
		if err := rows.Scan(&rc.ID, &rc.MessageID, &rc.UserID, &rc.Emoji, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("reactionRepo.ListByMessages scan: %w", err)
		}
		out[rc.MessageID] = append(out[rc.MessageID], rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactionRepo.ListByMessages rows: %w", err)
	}
	return out, nil
}
