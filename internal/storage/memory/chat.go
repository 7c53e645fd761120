package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage"
	"github.com/google/uuid"
)

type Chats struct{ *Store }

type Blocks struct{ *Store }

type Typing struct{ *Store }

// Backend exposes the store through the interfaces the chat services consume.
func (s *Store) Backend() storage.ChatBackend {
	return storage.ChatBackend{
		Users:     s,
		Blocks:    Blocks{s},
		Chats:     Chats{s},
		Messages:  Messages{s},
		Reactions: Reactions{s},
		Typing:    Typing{s},
	}
}

func (s Blocks) Blocked(ctx context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ab := s.blocks[pairKey{a, b}]
	_, ba := s.blocks[pairKey{b, a}]
	return ab || ba, nil
}

func (s Blocks) Create(ctx context.Context, blocker, blocked string, at time.Time) (*model.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey{blocker, blocked}
	if b, ok := s.blocks[k]; ok {
		return &b, false, nil
	}
	b := model.Block{BlockerID: blocker, BlockedID: blocked, CreatedAt: at}
	s.blocks[k] = b
	return &b, true, nil
}

func (s Blocks) Delete(ctx context.Context, blocker, blocked string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey{blocker, blocked}
	if _, ok := s.blocks[k]; !ok {
		return storage.ErrNotFound
	}
	delete(s.blocks, k)
	return nil
}

func (s Blocks) ListByBlocker(ctx context.Context, blocker string) ([]model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Block, 0, 4)
	for k, b := range s.blocks {
		if k.a == blocker {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BlockedID > out[j].BlockedID
	})
	return out, nil
}

func (s Chats) GetOrCreate(ctx context.Context, a, b string, at time.Time) (*model.Chat, bool, error) {
	lo, hi := model.CanonicalPair(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.chatPairs[pairKey{lo, hi}]; ok {
		c := *s.chats[id]
		return &c, false, nil
	}
	c := &model.Chat{ID: uuid.New().String(), ParticipantA: lo, ParticipantB: hi, CreatedAt: at}
	s.chats[c.ID] = c
	s.chatPairs[pairKey{lo, hi}] = c.ID
	cp := *c
	return &cp, true, nil
}

func (s Chats) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s Chats) ListByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chat, 0, 16)
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete cascades to messages, their reactions and the chat's typing rows.
func (s Chats) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return storage.ErrNotFound
	}
	for mid, m := range s.messages {
		if m.ChatID != id {
			continue
		}
		for k := range s.reactions {
			if k.a == mid {
				delete(s.reactions, k)
			}
		}
		delete(s.messages, mid)
	}
	for k := range s.typing {
		if k.a == id {
			delete(s.typing, k)
		}
	}
	delete(s.chatPairs, pairKey{c.ParticipantA, c.ParticipantB})
	delete(s.chats, id)
	return nil
}

func (s Typing) Upsert(ctx context.Context, ts *model.TypingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[ts.ChatID]; !ok {
		return storage.ErrNotFound
	}
	cp := *ts
	s.typing[pairKey{ts.ChatID, ts.UserID}] = &cp
	return nil
}

func (s Typing) ListByChat(ctx context.Context, chatID string) ([]model.TypingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TypingStatus, 0, 2)
	for k, ts := range s.typing {
		if k.a == chatID {
			out = append(out, *ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
