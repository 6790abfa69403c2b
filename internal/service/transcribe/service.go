// Package transcribe turns one uploaded audio payload into recognized text:
// decode to PCM, re-encode as canonical WAV, stream the file to the hosted
// transcription API. Fully stateless across invocations.
package transcribe

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"speechgpt/internal/audio"
)

// Service runs the decode -> re-encode -> upload pipeline.
type Service struct {
	transcoder audio.Transcoder
	recognizer Recognizer
	tmpDir     string
	logger     zerolog.Logger
}

// NewService wires the pipeline. tmpDir may be empty to use the system
// default temp directory.
func NewService(transcoder audio.Transcoder, recognizer Recognizer, tmpDir string, logger zerolog.Logger) *Service {
	return &Service{
		transcoder: transcoder,
		recognizer: recognizer,
		tmpDir:     tmpDir,
		logger:     logger,
	}
}

// Transcribe converts a raw captured buffer into text. The intermediate WAV
// lives in a per-invocation unique temp file that is removed on every exit
// path, so concurrent requests never touch each other's data and decode
// failures cannot leak files.
func (s *Service) Transcribe(ctx context.Context, raw []byte) (string, error) {
	wav, err := s.transcoder.Transcode(raw)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.tmpDir, "speechgpt-*.wav")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if removeErr := os.Remove(tmp.Name()); removeErr != nil {
			s.logger.Warn().Err(removeErr).Str("path", tmp.Name()).Msg("failed to remove temp wav")
		}
	}()

	if _, err = tmp.Write(wav); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if _, err = tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewinding temp file: %w", err)
	}

	text, err := s.recognizer.Recognize(ctx, tmp)
	if err != nil {
		return "", err
	}

	s.logger.Debug().Int("wav_bytes", len(wav)).Int("text_len", len(text)).Msg("transcription completed")
	return text, nil
}
