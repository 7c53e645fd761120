package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/storage"
)

const secretLen = 32

var errUnauthorized = apperr.Unauthorized("unauthorized")

// SignedRequest is what a client signs: HMAC-SHA256(secret, method+path+body+timestamp), hex encoded.
type SignedRequest struct {
	SessionID string
	Timestamp string
	Signature string
	Method    string
	Path      string
	Body      string
}

type AuthService struct {
	users    storage.UserDirectory
	sessions storage.SessionStore
	secrets  storage.SessionSecretStore
	skew     time.Duration
	now      func() time.Time
}

func NewAuthService(users storage.UserDirectory, sessions storage.SessionStore, secrets storage.SessionSecretStore, skew time.Duration) *AuthService {
	if skew <= 0 {
		skew = 30 * time.Second
	}
	return &AuthService{
		users: users, sessions: sessions, secrets: secrets, skew: skew,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Sign computes the signature a client sends for req.
func Sign(secret []byte, req SignedRequest) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(req.Method + req.Path + req.Body + req.Timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate verifies a signed request and returns the session's user id.
// Every failure is reported as the same Unauthorized error.
func (s *AuthService) Authenticate(ctx context.Context, req SignedRequest) (string, error) {
	if req.SessionID == "" || req.Timestamp == "" || req.Signature == "" {
		return "", errUnauthorized
	}
	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return "", errUnauthorized
	}
	now := s.now()
	t := time.Unix(ts, 0)
	if now.Sub(t) > s.skew || t.Sub(now) > s.skew {
		logger.Debugf("auth: timestamp out of window session_id=%s", logger.MaskSessionID(req.SessionID))
		return "", errUnauthorized
	}
	secretB64, err := s.secrets.GetSessionSecret(ctx, req.SessionID)
	if err != nil {
		logger.Errorf("auth: GetSessionSecret session_id=%s: %v", logger.MaskSessionID(req.SessionID), err)
		return "", errUnauthorized
	}
	if secretB64 == "" {
		return "", errUnauthorized
	}
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil || len(secret) != secretLen {
		return "", errUnauthorized
	}
	if !s.signatureMatches(secret, req) {
		logger.Debugf("auth: signature mismatch path=%q", req.Path)
		return "", errUnauthorized
	}
	sess, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Errorf("auth: session lookup session_id=%s: %v", logger.MaskSessionID(req.SessionID), err)
		}
		return "", errUnauthorized
	}
	active, err := s.users.IsActive(ctx, sess.UserID)
	if err != nil || !active {
		if err != nil {
			logger.Errorf("auth: IsActive user=%s: %v", sess.UserID, err)
		} else {
			logger.Infof("auth: user %s disabled", sess.UserID)
		}
		return "", errUnauthorized
	}
	if err := s.sessions.UpdateLastSeen(ctx, req.SessionID, now); err != nil {
		logger.Errorf("auth: UpdateLastSeen session_id=%s: %v", logger.MaskSessionID(req.SessionID), err)
	}
	return sess.UserID, nil
}

// signatureMatches also accepts a path signed without the /api prefix, which
// clients behind a path-stripping proxy produce.
func (s *AuthService) signatureMatches(secret []byte, req SignedRequest) bool {
	if hmac.Equal([]byte(req.Signature), []byte(Sign(secret, req))) {
		return true
	}
	if strings.HasPrefix(req.Path, "/api/") {
		stripped := req
		stripped.Path = req.Path[len("/api"):]
		return hmac.Equal([]byte(req.Signature), []byte(Sign(secret, stripped)))
	}
	return false
}

// Logout revokes the session. Dropping its secret is best effort: a failure is
// logged and logout still succeeds.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, apperr.Validation("session id is required")
	}
	ok, err := s.sessions.Revoke(ctx, userID, sessionID)
	if err != nil {
		return false, storeErr("sessions.Revoke", err, "session not found")
	}
	if err := s.secrets.DeleteSessionSecret(ctx, sessionID); err != nil {
		logger.Errorf("Logout: DeleteSessionSecret session_id=%s: %v", logger.MaskSessionID(sessionID), err)
	}
	return ok, nil
}
