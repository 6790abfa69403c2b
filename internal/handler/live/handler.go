// Package live streams a chat's message collection over a websocket so the
// front end re-renders as messages are appended.
package live

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	chatservice "speechgpt/internal/service/chat"
	"speechgpt/internal/store"
	"speechgpt/pkg/utils"
)

const writeTimeout = 10 * time.Second

// Handler upgrades subscription requests and relays appended messages.
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New creates the live feed handler.
func New(chatSvc *chatservice.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// RegisterRoutes mounts the feed endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userEmail}/chats/{chatID}/live", h.handleLive)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	userEmail := chi.URLParam(r, "userEmail")
	chatID := chi.URLParam(r, "chatID")

	if _, err := h.chatSvc.GetChat(r.Context(), userEmail, chatID); err != nil {
		if errors.Is(err, store.ErrChatNotFound) {
			utils.RespondError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load chat")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Subscribe before reading the snapshot so a message appended in between
	// lands on the feed; anything in both is deduped by id below.
	feed, cancel := h.chatSvc.Subscribe(userEmail, chatID)
	defer cancel()

	history, err := h.chatSvc.History(r.Context(), userEmail, chatID)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load history")
		return
	}

	sent := make(map[string]struct{}, len(history))
	for _, msg := range history {
		sent[msg.ID] = struct{}{}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	// Reader goroutine only notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-feed:
			if _, dup := sent[msg.ID]; dup {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
