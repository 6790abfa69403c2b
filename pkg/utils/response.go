package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"speechgpt/pkg/apierror"
)

// RespondJSON writes payload as a JSON response body.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// RespondError writes a JSON error body with the given status.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondFailure maps a typed failure to its HTTP status and writes the given
// message body. An apierror.UpstreamError propagates the upstream's own
// status verbatim.
func RespondFailure(w http.ResponseWriter, err error, message string) {
	RespondError(w, apierror.HTTPStatus(err), message)
}
