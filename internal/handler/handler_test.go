package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/service"
	"github.com/dmchat/internal/storage/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headerAuth trusts X-User-Id; it stands in for request signing in most tests.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-Id")
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), uid)))
	})
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := memory.New()
	now := time.Now().UTC()
	for _, id := range []string{"alice", "bob", "carol"} {
		st.AddUser(model.User{ID: id, Username: id, CreatedAt: now})
	}
	svc := service.NewChatService(st.Backend())
	auth := service.NewAuthService(st, memory.Sessions{Store: st}, st, 30*time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RecoverJSON)
	Handlers{
		Chats:    NewChatHandler(svc),
		Messages: NewMessageHandler(svc),
		Blocks:   NewBlockHandler(svc),
		Auth:     NewAuthHandler(auth),
	}.Mount(r, headerAuth)
	return &testAPI{t: t, router: r, store: st}
}

func (a *testAPI) do(user, method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) openChat(user, other string) model.ChatSummary {
	a.t.Helper()
	rec := a.do(user, http.MethodPost, "/api/chats", CreateChatRequest{UserID: other})
	require.Contains(a.t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())
	return decode[model.ChatSummary](a.t, rec)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do("", http.MethodGet, "/api/chats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChatStatusCodes(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do("alice", http.MethodPost, "/api/chats", CreateChatRequest{UserID: "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[model.ChatSummary](t, rec)
	assert.Equal(t, "bob", first.OtherUserID)

	rec = api.do("bob", http.MethodPost, "/api/chats", CreateChatRequest{UserID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[model.ChatSummary](t, rec)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)
	assert.Equal(t, "alice", second.OtherUserID)

	rec = api.do("alice", http.MethodPost, "/api/chats", CreateChatRequest{UserID: "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "not_found", string(body.Kind))

	rec = api.do("alice", http.MethodPost, "/api/chats", CreateChatRequest{UserID: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chats", bytes.NewBufferString("{not json"))
	req.Header.Set("X-User-Id", "alice")
	raw := httptest.NewRecorder()
	api.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestMessageLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	chat := api.openChat("alice", "bob")
	base := "/api/chats/" + chat.Chat.ID

	rec := api.do("alice", http.MethodPost, base+"/messages", SendMessageRequest{Text: "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[model.Message](t, rec)
	assert.Equal(t, "bob", msg.ReceiverID)

	rec = api.do("bob", http.MethodGet, "/api/unread", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"unread": 1}, decode[map[string]int](t, rec))

	rec = api.do("bob", http.MethodPost, base+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"seen": 1}, decode[map[string]int64](t, rec))

	text := "hi there"
	rec = api.do("bob", http.MethodPatch, "/api/messages/"+msg.ID, EditMessageRequest{Text: &text})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("alice", http.MethodPatch, "/api/messages/"+msg.ID, EditMessageRequest{Text: &text})
	require.Equal(t, http.StatusOK, rec.Code)
	edited := decode[model.Message](t, rec)
	assert.True(t, edited.Edited)
	assert.True(t, edited.Seen)
	assert.Equal(t, "hi there", edited.Text)

	rec = api.do("bob", http.MethodPost, "/api/messages/"+msg.ID+"/reactions", ReactRequest{Emoji: "😀"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do("bob", http.MethodPost, "/api/messages/"+msg.ID+"/reactions", ReactRequest{Emoji: "😂"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "😀", decode[model.Reaction](t, rec).Emoji)

	rec = api.do("alice", http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Message](t, rec)
	require.Len(t, list, 1)
	require.Len(t, list[0].Reactions, 1)

	rec = api.do("bob", http.MethodDelete, "/api/messages/"+msg.ID+"/reactions", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("bob", http.MethodDelete, "/api/messages/"+msg.ID+"/reactions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do("alice", http.MethodDelete, "/api/messages/"+msg.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("alice", http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Message](t, rec))

	rec = api.do("carol", http.MethodGet, base+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("bob", http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("alice", http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTypingOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	chat := api.openChat("alice", "bob")
	base := "/api/chats/" + chat.Chat.ID + "/typing"

	rec := api.do("alice", http.MethodPut, base, SetTypingRequest{IsTyping: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do("bob", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.TypingStatus](t, rec)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsTyping)
}

func TestBlocksOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	chat := api.openChat("alice", "bob")

	rec := api.do("bob", http.MethodPost, "/api/blocks", BlockRequest{UserID: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do("bob", http.MethodPost, "/api/blocks", BlockRequest{UserID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do("alice", http.MethodPost, "/api/chats/"+chat.Chat.ID+"/messages", SendMessageRequest{Text: "hey"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", string(decode[errorResponse](t, rec).Kind))

	rec = api.do("bob", http.MethodGet, "/api/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Block](t, rec), 1)

	rec = api.do("bob", http.MethodDelete, "/api/blocks/alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("alice", http.MethodPost, "/api/chats/"+chat.Chat.ID+"/messages", SendMessageRequest{Text: "hey"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListChatsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.openChat("alice", "bob")
	api.openChat("carol", "alice")

	rec := api.do("alice", http.MethodGet, "/api/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ChatSummary](t, rec), 2)
}

func TestSignedLogout(t *testing.T) {
	st := memory.New()
	now := time.Now().UTC()
	st.AddUser(model.User{ID: "alice", Username: "alice", CreatedAt: now})
	st.AddSession(model.Session{ID: "sess-1", UserID: "alice", CreatedAt: now, LastSeenAt: now})
	secret := bytes.Repeat([]byte{1}, 32)
	require.NoError(t, st.SetSessionSecret(t.Context(), "sess-1", base64.StdEncoding.EncodeToString(secret)))

	svc := service.NewChatService(st.Backend())
	auth := service.NewAuthService(st, memory.Sessions{Store: st}, st, 30*time.Second)
	r := chi.NewRouter()
	Handlers{
		Chats:    NewChatHandler(svc),
		Messages: NewMessageHandler(svc),
		Blocks:   NewBlockHandler(svc),
		Auth:     NewAuthHandler(auth),
	}.Mount(r, middleware.SessionAuth(auth))

	send := func() *httptest.ResponseRecorder {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		sig := service.Sign(secret, service.SignedRequest{Method: http.MethodPost, Path: "/api/auth/logout", Timestamp: ts})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("X-Session-Id", "sess-1")
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", sig)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// the session and its secret are gone, so the same credentials stop working
	rec = send()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateSession(t *testing.T) {
	st := memory.New()
	now := time.Now().UTC()
	st.AddUser(model.User{ID: "alice", Username: "alice", CreatedAt: now})
	st.AddSession(model.Session{ID: "sess-1", UserID: "alice", CreatedAt: now, LastSeenAt: now})
	secret := bytes.Repeat([]byte{7}, 32)
	require.NoError(t, st.SetSessionSecret(t.Context(), "sess-1", base64.StdEncoding.EncodeToString(secret)))
	h := NewAuthHandler(service.NewAuthService(st, memory.Sessions{Store: st}, st, 30*time.Second))

	ts := strconv.FormatInt(now.Unix(), 10)
	body := `{"text":"hi"}`
	in := ValidateRequest{
		SessionID: "sess-1",
		Timestamp: ts,
		Method:    http.MethodPost,
		Path:      "/api/chats/c1/messages",
		Body:      body,
	}
	in.Signature = service.Sign(secret, service.SignedRequest(in))

	call := func(v ValidateRequest) *httptest.ResponseRecorder {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		h.ValidateSession(rec, httptest.NewRequest(http.MethodPost, "/internal/validate", bytes.NewReader(raw)))
		return rec
	}

	rec := call(in)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "alice", out.UserID)

	tampered := in
	tampered.Body = `{"text":"bye"}`
	assert.Equal(t, http.StatusUnauthorized, call(tampered).Code)

	rec = httptest.NewRecorder()
	h.ValidateSession(rec, httptest.NewRequest(http.MethodPost, "/internal/validate", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMountLimitsAnonymousCallersPerIP(t *testing.T) {
	st := memory.New()
	st.AddUser(model.User{ID: "alice", Username: "alice", CreatedAt: time.Now().UTC()})
	svc := service.NewChatService(st.Backend())
	limiter := middleware.NewRateLimiter(2, time.Minute)

	r := chi.NewRouter()
	Handlers{
		Chats:    NewChatHandler(svc),
		Messages: NewMessageHandler(svc),
		Blocks:   NewBlockHandler(svc),
		Auth:     NewAuthHandler(service.NewAuthService(st, memory.Sessions{Store: st}, st, 30*time.Second)),
	}.Mount(r, middleware.RateLimit(limiter), headerAuth, middleware.RateLimit(limiter))

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		if user != "" {
			req.Header.Set("X-User-Id", user)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call(""))
	// the IP budget is spent before authentication runs
	assert.Equal(t, http.StatusTooManyRequests, call(""))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
}
