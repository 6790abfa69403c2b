// Package capture provides the microphone capability used by the input
// component: start, stop, get the recorded buffer. The real implementation
// sits behind the portaudio build tag; without it a stub reports that
// recording is unavailable.
package capture

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means no microphone backend was compiled in.
	ErrUnavailable = errors.New("microphone capture unavailable")

	// ErrNotRecording means Stop was called without a matching Start.
	ErrNotRecording = errors.New("not recording")
)

// Capture records audio between Start and Stop. Stop finalizes the captured
// audio into a single WAV buffer. The buffer is ephemeral: callers hand it to
// transcription and discard it.
type Capture interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
}
