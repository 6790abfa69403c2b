// Package transcribe serves POST /api/transcribe: one multipart audio upload
// in, recognized text out.
package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"speechgpt/internal/metrics"
	"speechgpt/pkg/apierror"
	"speechgpt/pkg/utils"
)

// Service abstracts the transcription pipeline for testing.
type Service interface {
	Transcribe(ctx context.Context, raw []byte) (string, error)
}

// Handler is the transcription endpoint.
type Handler struct {
	svc       Service
	maxUpload int64
	logger    zerolog.Logger
}

// New creates the handler. maxUpload bounds the multipart form size.
func New(svc Service, maxUpload int64, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes mounts the endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/transcribe", h.handleTranscribe)
}

// handleTranscribe accepts exactly one upload per request under the form
// field "audio". That field name is the contract on both sides; "file" is
// not accepted.
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio field is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}

	text, err := h.svc.Transcribe(r.Context(), raw)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", apierror.Kind(err)).Msg("transcription failed")
		metrics.TranscriptionsTotal.WithLabelValues(apierror.Kind(err)).Inc()
		switch {
		case errors.Is(err, apierror.ErrDecode):
			utils.RespondFailure(w, err, "invalid audio payload")
		default:
			utils.RespondFailure(w, err, "Failed to transcribe audio")
		}
		return
	}

	metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": text})
}
