package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmchat/internal/service"
)

const maxSignedBody = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// credential reads a signing header, falling back to the query string.
func credential(r *http.Request, header, query string) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	return r.URL.Query().Get(query)
}

// readSignedRequest buffers the body so the handler can still read it.
func readSignedRequest(r *http.Request) (service.SignedRequest, error) {
	req := service.SignedRequest{
		SessionID: credential(r, "X-Session-Id", "session_id"),
		Timestamp: credential(r, "X-Timestamp", "timestamp"),
		Signature: credential(r, "X-Signature", "signature"),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
		if err != nil {
			return req, err
		}
		if len(body) > maxSignedBody {
			return req, errBodyTooLarge
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		req.Body = string(body)
	}
	// multipart bodies are signed as empty
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req.Body = ""
	}
	return req, nil
}

func writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large", "validation")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "bad request", "validation")
}

// SessionAuth verifies HMAC-signed requests in-process and puts the user and
// session ids on the request context.
func SessionAuth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := readSignedRequest(r)
			if err != nil {
				writeReadError(w, err)
				return
			}
			userID, err := auth.Authenticate(r.Context(), req)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			ctx := WithUserID(r.Context(), userID)
			ctx = WithSessionID(ctx, req.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
