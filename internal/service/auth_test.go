package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = bytes.Repeat([]byte{7}, secretLen)

func newTestAuth(t *testing.T) (*AuthService, *memory.Store) {
	t.Helper()
	st := memory.New()
	now := time.Now().UTC()
	st.AddUser(model.User{ID: alice, Username: "alice", CreatedAt: now})
	st.AddSession(model.Session{ID: "sess-1", UserID: alice, LastSeenAt: now, CreatedAt: now})
	require.NoError(t, st.SetSessionSecret(context.Background(), "sess-1", base64.StdEncoding.EncodeToString(testSecret)))
	return NewAuthService(st, memory.Sessions{Store: st}, st, 30*time.Second), st
}

func signed(path, body string, at time.Time) SignedRequest {
	req := SignedRequest{
		SessionID: "sess-1",
		Timestamp: strconv.FormatInt(at.Unix(), 10),
		Method:    "POST",
		Path:      path,
		Body:      body,
	}
	req.Signature = Sign(testSecret, req)
	return req
}

func TestAuthenticateAcceptsValidSignature(t *testing.T) {
	auth, _ := newTestAuth(t)
	uid, err := auth.Authenticate(context.Background(), signed("/api/chats", `{"user_id":"u-bob"}`, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, alice, uid)
}

func TestAuthenticateAcceptsPathWithoutAPIPrefix(t *testing.T) {
	auth, _ := newTestAuth(t)
	req := signed("/chats", "", time.Now())
	req.Path = "/api/chats"
	uid, err := auth.Authenticate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, alice, uid)
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		mutate func(r *SignedRequest, st *memory.Store)
	}{
		{"missing signature", func(r *SignedRequest, _ *memory.Store) { r.Signature = "" }},
		{"tampered body", func(r *SignedRequest, _ *memory.Store) { r.Body = `{"user_id":"u-carol"}` }},
		{"bad timestamp", func(r *SignedRequest, _ *memory.Store) { r.Timestamp = "yesterday" }},
		{"stale timestamp", func(r *SignedRequest, _ *memory.Store) {
			*r = signed(r.Path, r.Body, time.Now().Add(-2*time.Minute))
		}},
		{"unknown session", func(r *SignedRequest, _ *memory.Store) { r.SessionID = "sess-2" }},
		{"disabled user", func(_ *SignedRequest, st *memory.Store) { st.DisableUser(alice, time.Now()) }},
		{"revoked session", func(_ *SignedRequest, st *memory.Store) {
			_, err := memory.Sessions{Store: st}.Revoke(ctx, alice, "sess-1")
			require.NoError(t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, st := newTestAuth(t)
			req := signed("/api/chats", `{"user_id":"u-bob"}`, time.Now())
			tt.mutate(&req, st)
			_, err := auth.Authenticate(ctx, req)
			requireKind(t, err, apperr.KindUnauthorized)
		})
	}
}

type failingSecrets struct{ *memory.Store }

func (failingSecrets) DeleteSessionSecret(context.Context, string) error {
	return errors.New("redis down")
}

func TestLogoutSwallowsSecretTeardownFailure(t *testing.T) {
	_, st := newTestAuth(t)
	auth := NewAuthService(st, memory.Sessions{Store: st}, failingSecrets{st}, 0)

	ok, err := auth.Logout(context.Background(), alice, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = memory.Sessions{Store: st}.GetByID(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestLogoutClearsSecret(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	ok, err := auth.Logout(ctx, alice, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
	secret, err := st.GetSessionSecret(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, secret)

	ok, err = auth.Logout(ctx, alice, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = auth.Logout(ctx, alice, "")
	requireKind(t, err, apperr.KindValidation)
}
