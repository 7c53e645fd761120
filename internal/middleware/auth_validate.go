package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmchat/internal/logger"
)

// validateRequest is the body of POST /internal/validate.
type validateRequest struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body"`
}

// AuthServiceValidate delegates signature checks to an external auth service.
func AuthServiceValidate(authServiceURL string, client *http.Client) func(http.Handler) http.Handler {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := readSignedRequest(r)
			if err != nil {
				writeReadError(w, err)
				return
			}
			if req.SessionID == "" || req.Timestamp == "" || req.Signature == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			jsonBody, _ := json.Marshal(validateRequest(req))
			out, err := http.NewRequestWithContext(r.Context(), http.MethodPost, authServiceURL+"/internal/validate", bytes.NewReader(jsonBody))
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "internal error", "internal")
				return
			}
			out.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(out)
			if err != nil {
				logger.Errorf("auth service validate: %v", err)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			var result struct {
				UserID string `json:"user_id"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.UserID == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			ctx := WithUserID(r.Context(), result.UserID)
			ctx = WithSessionID(ctx, req.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
