package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Logout revokes the calling session. 404 when it was already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())
	if userID == "" || sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ok, err := h.auth.Logout(r.Context(), userID, sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ValidateRequest struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body"`
}

type ValidateResponse struct {
	UserID string `json:"user_id"`
}

// ValidateSession serves POST /internal/validate for services that delegate
// request verification here (see middleware.AuthServiceValidate).
func (h *AuthHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := h.auth.Authenticate(r.Context(), service.SignedRequest(req))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{UserID: userID})
}
