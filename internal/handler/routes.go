package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Chats    *ChatHandler
	Messages *MessageHandler
	Blocks   *BlockHandler
	Auth     *AuthHandler
}

// Mount registers the chat API on r. mws run in order before every /api route
// and must include an authentication middleware.
func (h Handlers) Mount(r chi.Router, mws ...func(http.Handler) http.Handler) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mws...)

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.Chats.ListChats)
			r.Post("/", h.Chats.CreateChat)
			r.Route("/{chatId}", func(r chi.Router) {
				r.Get("/", h.Chats.GetChat)
				r.Delete("/", h.Chats.DeleteChat)
				r.Get("/messages", h.Messages.GetMessages)
				r.Post("/messages", h.Messages.SendMessage)
				r.Post("/read", h.Chats.MarkSeen)
				r.Get("/typing", h.Chats.ListTyping)
				r.Put("/typing", h.Chats.SetTyping)
			})
		})

		r.Route("/messages/{messageId}", func(r chi.Router) {
			r.Patch("/", h.Messages.EditMessage)
			r.Delete("/", h.Messages.DeleteMessage)
			r.Get("/reactions", h.Messages.GetReactions)
			r.Post("/reactions", h.Messages.React)
			r.Delete("/reactions", h.Messages.RemoveReaction)
		})

		r.Get("/unread", h.Chats.UnreadCount)

		r.Route("/blocks", func(r chi.Router) {
			r.Get("/", h.Blocks.ListBlocks)
			r.Post("/", h.Blocks.Block)
			r.Delete("/{userId}", h.Blocks.Unblock)
		})

		r.Post("/auth/logout", h.Auth.Logout)
	})
}
