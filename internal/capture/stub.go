//go:build !portaudio
// +build !portaudio

package capture

import (
	"context"

	"github.com/rs/zerolog"
)

// NewMicrophone without the portaudio build tag returns a capture that
// reports recording as unavailable.
func NewMicrophone(_ int, logger zerolog.Logger) (Capture, error) {
	logger.Debug().Msg("built without portaudio; microphone disabled")
	return stubCapture{}, nil
}

type stubCapture struct{}

func (stubCapture) Start(context.Context) error {
	return ErrUnavailable
}

func (stubCapture) Stop() ([]byte, error) {
	return nil, ErrUnavailable
}
