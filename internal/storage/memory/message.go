package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage"
	"github.com/google/uuid"
)

type Messages struct{ *Store }

type Reactions struct{ *Store }

func cloneMessage(m *model.Message) model.Message {
	cp := *m
	if m.Attachment != nil {
		a := *m.Attachment
		cp.Attachment = &a
	}
	if m.SeenAt != nil {
		t := *m.SeenAt
		cp.SeenAt = &t
	}
	cp.Reactions = nil
	return cp
}

// newestFirst orders by created_at then id, both descending.
func newestFirst(out []model.Message) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

func (s Messages) Create(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[m.ChatID]; !ok {
		return storage.ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	cp := cloneMessage(m)
	s.messages[m.ID] = &cp
	return nil
}

func (s Messages) GetByID(ctx context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := cloneMessage(m)
	return &cp, nil
}

func (s Messages) Update(ctx context.Context, id string, fn func(m *model.Message) error) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	work := cloneMessage(m)
	if err := fn(&work); err != nil {
		return nil, err
	}
	stored := cloneMessage(&work)
	s.messages[id] = &stored
	out := cloneMessage(&stored)
	return &out, nil
}

func (s Messages) ListVisible(ctx context.Context, chatID string, limit, offset int) ([]model.Message, error) {
	s.mu.RLock()
	out := make([]model.Message, 0, 32)
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.IsDeleted {
			out = append(out, cloneMessage(m))
		}
	}
	s.mu.RUnlock()

	newestFirst(out)
	if offset > 0 {
		if offset >= len(out) {
			return []model.Message{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s Messages) Last(ctx context.Context, chatID string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *model.Message
	for _, m := range s.messages {
		if m.ChatID != chatID {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) ||
			(m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := cloneMessage(last)
	return &cp, nil
}

func (s Messages) MarkSeen(ctx context.Context, chatID, receiverID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ChatID == chatID && m.ReceiverID == receiverID && !m.Seen {
			m.Seen = true
			t := at
			m.SeenAt = &t
			n++
		}
	}
	return n, nil
}

func (s Messages) CountUnread(ctx context.Context, receiverID, chatID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.ReceiverID != receiverID || m.Seen || m.IsDeleted {
			continue
		}
		if chatID != "" && m.ChatID != chatID {
			continue
		}
		n++
	}
	return n, nil
}

func (s Reactions) GetOrCreate(ctx context.Context, r *model.Reaction) (*model.Reaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[r.MessageID]; !ok {
		return nil, false, storage.ErrNotFound
	}
	k := pairKey{r.MessageID, r.UserID}
	if existing, ok := s.reactions[k]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *r
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	s.reactions[k] = &cp
	out := cp
	return &out, true, nil
}

func (s Reactions) Delete(ctx context.Context, messageID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey{messageID, userID}
	if _, ok := s.reactions[k]; !ok {
		return storage.ErrNotFound
	}
	delete(s.reactions, k)
	return nil
}

func (s Reactions) ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error) {
	byMsg, err := s.ListByMessages(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if out := byMsg[messageID]; out != nil {
		return out, nil
	}
	return []model.Reaction{}, nil
}

func (s Reactions) ListByMessages(ctx context.Context, messageIDs []string) (map[string][]model.Reaction, error) {
	want := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}
	out := make(map[string][]model.Reaction, len(messageIDs))
	s.mu.RLock()
	for k, r := range s.reactions {
		if _, ok := want[k.a]; ok {
			out[k.a] = append(out[k.a], *r)
		}
	}
	s.mu.RUnlock()
	for id := range out {
		list := out[id]
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].ID < list[j].ID
		})
	}
	return out, nil
}
