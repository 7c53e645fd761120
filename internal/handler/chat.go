package handler

import (
	"net/http"

	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type CreateChatRequest struct {
	UserID string `json:"user_id"`
}

// CreateChat answers 201 for a new chat and 200 when the pair already had one.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	userID := middleware.GetUserID(r.Context())
	chat, created, err := h.svc.GetOrCreateChat(r.Context(), userID, req.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	sum, err := h.svc.GetChat(r.Context(), userID, chat.ID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sum)
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListChats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.GetChat(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteChat(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkSeen(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"seen": n})
}

type SetTypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

func (h *ChatHandler) SetTyping(w http.ResponseWriter, r *http.Request) {
	var req SetTypingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	ts, err := h.svc.SetTyping(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"), req.IsTyping)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *ChatHandler) ListTyping(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTyping(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}
