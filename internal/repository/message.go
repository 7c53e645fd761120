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

const messageCols = `id, chat_id, sender_id, receiver_id, text, attachment_kind, attachment_key,
	seen, seen_at, edited, is_deleted, created_at, updated_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	var kind, key *string
	if err := s.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Text, &kind, &key,
		&m.Seen, &m.SeenAt, &m.Edited, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.Attachment = nil
	if kind != nil && key != nil {
		m.Attachment = &model.Attachment{Kind: model.AttachmentKind(*kind), Key: *key}
	}
	return nil
}

func attachmentArgs(a *model.Attachment) (kind, key *string) {
	if a == nil {
		return nil, nil
	}
	k := string(a.Kind)
	return &k, &a.Key
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	kind, key := attachmentArgs(m.Attachment)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (`+messageCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.ChatID, m.SenderID, m.ReceiverID, m.Text, kind, key,
		m.Seen, m.SeenAt, m.Edited, m.IsDeleted, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1`, id), m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// Update locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// mutable columns back in the same transaction.
func (r *MessageRepository) Update(ctx context.Context, id string, fn func(m *model.Message) error) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Update", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Update begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m := &model.Message{}
	err = scanMessage(tx.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1 FOR UPDATE`, id), m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Update select: %w", err)
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	kind, key := attachmentArgs(m.Attachment)
	_, err = tx.Exec(ctx,
		`UPDATE messages
		 SET text = $1, attachment_kind = $2, attachment_key = $3, edited = $4, is_deleted = $5, updated_at = $6
		 WHERE id = $7`,
		m.Text, kind, key, m.Edited, m.IsDeleted, m.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Update exec: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("msgRepo.Update commit: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) ListVisible(ctx context.Context, chatID string, limit, offset int) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListVisible", time.Now())()
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+`
		 FROM messages
		 WHERE chat_id = $1 AND NOT is_deleted
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, chatID, lim, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListVisible query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, 32)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListVisible scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListVisible rows: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) Last(ctx context.Context, chatID string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Last", time.Now())()
	m := &model.Message{}
	err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageCols+` FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID), m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Last: %w", err)
	}
	return m, nil
}

// MarkSeen is one UPDATE statement, so either every matching row flips or none does.
func (r *MessageRepository) MarkSeen(ctx context.Context, chatID, receiverID string, at time.Time) (int64, error) {
	defer logger.DeferLogDuration("msg.MarkSeen", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET seen = TRUE, seen_at = $3
		 WHERE chat_id = $1 AND receiver_id = $2 AND NOT seen`,
		chatID, receiverID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.MarkSeen: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, receiverID, chatID string) (int, error) {
	defer logger.DeferLogDuration("msg.CountUnread", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE receiver_id = $1 AND NOT seen AND NOT is_deleted
		   AND ($2 = '' OR chat_id::text = $2)`,
		receiverID, chatID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.CountUnread: %w", err)
	}
	return n, nil
}
