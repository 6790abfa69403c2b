// Package question serves POST /api/askQuestion: prompt + forwarded history
// in, assistant reply generated, persisted to the chat, and returned.
package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"speechgpt/internal/metrics"
	model "speechgpt/internal/model/chat"
	chatservice "speechgpt/internal/service/chat"
	"speechgpt/internal/store"
	"speechgpt/pkg/apierror"
	"speechgpt/pkg/utils"
)

// Answerer abstracts the completion service for testing.
type Answerer interface {
	Answer(ctx context.Context, prompt, model string, history []model.Message) (string, error)
}

// Handler is the question endpoint.
type Handler struct {
	answerer Answerer
	chatSvc  *chatservice.Service
	logger   zerolog.Logger
}

// New creates the question handler.
func New(answerer Answerer, chatSvc *chatservice.Service, logger zerolog.Logger) *Handler {
	return &Handler{answerer: answerer, chatSvc: chatSvc, logger: logger}
}

// RegisterRoutes mounts the endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/askQuestion", h.handleAskQuestion)
}

type askQuestionRequest struct {
	Prompt      string          `json:"prompt"`
	ChatID      string          `json:"chatId"`
	Model       string          `json:"model"`
	ChatHistory []model.Message `json:"chatHistory"`
	Session     model.Session   `json:"session"`
}

func (h *Handler) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	var payload askQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !payload.Session.Valid() {
		utils.RespondError(w, http.StatusUnauthorized, "session is required")
		return
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if payload.ChatID == "" {
		utils.RespondError(w, http.StatusBadRequest, "chatId is required")
		return
	}

	answer, err := h.answerer.Answer(r.Context(), payload.Prompt, payload.Model, payload.ChatHistory)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", apierror.Kind(err)).Str("chat_id", payload.ChatID).Msg("completion failed")
		metrics.CompletionsTotal.WithLabelValues(apierror.Kind(err)).Inc()
		utils.RespondFailure(w, err, "SpeechGPT was unable to respond")
		return
	}

	if _, err := h.chatSvc.AppendAssistantMessage(r.Context(), payload.Session.Email, payload.ChatID, answer); err != nil {
		h.logger.Error().Err(err).Str("chat_id", payload.ChatID).Msg("failed to persist assistant reply")
		if errors.Is(err, store.ErrChatNotFound) {
			utils.RespondError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.RespondFailure(w, err, "failed to persist assistant reply")
		return
	}

	metrics.CompletionsTotal.WithLabelValues("ok").Inc()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
