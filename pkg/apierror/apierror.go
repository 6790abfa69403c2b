// Package apierror defines the failure kinds shared by the server handlers
// and the client: every externally-observable operation resolves to either a
// success payload or one of these.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks rejected input (blank prompt, missing session,
	// missing upload field).
	ErrValidation = errors.New("validation failed")

	// ErrDecode marks audio payloads that could not be decoded.
	ErrDecode = errors.New("audio decode failed")

	// ErrNetwork marks transport failures reaching an upstream service.
	ErrNetwork = errors.New("network failure")
)

// UpstreamError carries the HTTP status returned by a hosted API so handlers
// can propagate it verbatim.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Detail)
}

// HTTPStatus maps a failure to the status a handler should respond with.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.Status
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a stable label for logging and client notifications.
func Kind(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upstream):
		return "upstream"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}
