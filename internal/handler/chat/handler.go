// Package chat serves the per-user chat collections:
// /api/users/{userEmail}/chats and the message collections beneath them.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"speechgpt/internal/metrics"
	model "speechgpt/internal/model/chat"
	chatservice "speechgpt/internal/service/chat"
	"speechgpt/internal/store"
	"speechgpt/pkg/apierror"
	"speechgpt/pkg/utils"
)

// Handler exposes chat persistence over HTTP.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userEmail}/chats", func(cr chi.Router) {
		cr.Post("/", h.handleCreateChat)
		cr.Get("/", h.handleListChats)
		cr.Post("/{chatID}/messages", h.handleAppendMessage)
		cr.Get("/{chatID}/messages", h.handleListMessages)
	})
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Session model.Session `json:"session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorize(w, payload.Session, chi.URLParam(r, "userEmail")) {
		return
	}

	created, err := h.chatSvc.CreateChat(r.Context(), payload.Session)
	if err != nil {
		utils.RespondFailure(w, err, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatSvc.ListChats(r.Context(), chi.URLParam(r, "userEmail"))
	if err != nil {
		utils.RespondFailure(w, err, err.Error())
		return
	}

	if chats == nil {
		chats = []model.Chat{}
	}
	utils.RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text    string        `json:"text"`
		Session model.Session `json:"session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorize(w, payload.Session, chi.URLParam(r, "userEmail")) {
		return
	}

	stored, err := h.chatSvc.AppendMessage(r.Context(), payload.Session, chi.URLParam(r, "chatID"), payload.Text)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	metrics.MessagesAppended.Inc()
	utils.RespondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	history, err := h.chatSvc.History(r.Context(), chi.URLParam(r, "userEmail"), chi.URLParam(r, "chatID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	if history == nil {
		history = []model.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, history)
}

// authorize enforces that writes carry a session matching the namespace
// being written. Returns false after responding.
func (h *Handler) authorize(w http.ResponseWriter, session model.Session, userEmail string) bool {
	if !session.Valid() {
		utils.RespondError(w, http.StatusUnauthorized, "session is required")
		return false
	}
	if session.Email != userEmail {
		utils.RespondError(w, http.StatusForbidden, "session does not own this namespace")
		return false
	}
	return true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, apierror.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondFailure(w, err, err.Error())
	}
}
