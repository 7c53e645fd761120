package handler

import (
	"net/http"

	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type BlockHandler struct {
	svc *service.ChatService
}

func NewBlockHandler(svc *service.ChatService) *BlockHandler {
	return &BlockHandler{svc: svc}
}

type BlockRequest struct {
	UserID string `json:"user_id"`
}

func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	b, created, err := h.svc.Block(r.Context(), middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, b)
}

func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unblock(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "userId")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlockHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBlocks(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
