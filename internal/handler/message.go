package handler

import (
	"net/http"

	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageHandler struct {
	svc *service.ChatService
}

func NewMessageHandler(svc *service.ChatService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	msgs, err := h.svc.ListMessages(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"), limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type SendMessageRequest struct {
	Text       string            `json:"text"`
	Attachment *model.Attachment `json:"attachment"`
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	m, err := h.svc.SendMessage(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "chatId"),
		service.SendMessageInput{Text: req.Text, Attachment: req.Attachment})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// EditMessageRequest: absent fields stay unchanged.
type EditMessageRequest struct {
	Text            *string           `json:"text"`
	Attachment      *model.Attachment `json:"attachment"`
	ClearAttachment bool              `json:"clear_attachment"`
}

func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var req EditMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	m, err := h.svc.EditMessage(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "messageId"),
		service.EditMessageInput{Text: req.Text, Attachment: req.Attachment, ClearAttachment: req.ClearAttachment})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SoftDeleteMessage(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "messageId")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) GetReactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListReactions(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "messageId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type ReactRequest struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	var req ReactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	rc, created, err := h.svc.React(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "messageId"), req.Emoji)
	if err != nil {
		writeAppError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rc)
}

func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveReaction(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "messageId")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
