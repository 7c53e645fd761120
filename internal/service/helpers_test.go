package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

const (
	alice = "u-alice"
	bob   = "u-bob"
	carol = "u-carol"
)

// stepClock advances one second per call so ordering by created_at is deterministic.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*ChatService, *memory.Store) {
	t.Helper()
	st := memory.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{alice, bob, carol} {
		st.AddUser(model.User{ID: id, Username: id[2:], CreatedAt: base})
	}
	clock := &stepClock{t: base}
	return NewChatService(st.Backend(), WithClock(clock.Now)), st
}

func mustChat(t *testing.T, svc *ChatService, a, b string) *model.Chat {
	t.Helper()
	c, _, err := svc.GetOrCreateChat(context.Background(), a, b)
	require.NoError(t, err)
	return c
}

func mustSend(t *testing.T, svc *ChatService, sender, chatID, text string) *model.Message {
	t.Helper()
	m, err := svc.SendMessage(context.Background(), sender, chatID, SendMessageInput{Text: text})
	require.NoError(t, err)
	return m
}

func requireKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, k, apperr.KindOf(err), "error: %v", err)
}
