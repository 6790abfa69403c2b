//go:build portaudio
// +build portaudio

package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"speechgpt/internal/audio"
)

const framesPerBuffer = 1024

// Microphone captures from the default input device.
type Microphone struct {
	sampleRate int
	logger     zerolog.Logger

	mu        sync.Mutex
	stream    *portaudio.Stream
	samples   []int16
	recording bool
	done      chan struct{}
}

// NewMicrophone creates the portaudio-backed capture.
func NewMicrophone(sampleRate int, logger zerolog.Logger) (Capture, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Microphone{sampleRate: sampleRate, logger: logger}, nil
}

func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recording {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.stream = stream
	m.samples = m.samples[:0]
	m.recording = true
	m.done = make(chan struct{})

	go m.pump(ctx, buffer)

	m.logger.Debug().Int("sample_rate", m.sampleRate).Msg("microphone started")
	return nil
}

func (m *Microphone) pump(ctx context.Context, buffer []int16) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.mu.Lock()
		if !m.recording {
			m.mu.Unlock()
			return
		}
		stream := m.stream
		m.mu.Unlock()

		if err := stream.Read(); err != nil {
			m.logger.Warn().Err(err).Msg("microphone read failed")
			return
		}

		m.mu.Lock()
		m.samples = append(m.samples, buffer...)
		m.mu.Unlock()
	}
}

// Stop finalizes the recording into a single WAV buffer.
func (m *Microphone) Stop() ([]byte, error) {
	m.mu.Lock()
	if !m.recording {
		m.mu.Unlock()
		return nil, ErrNotRecording
	}
	m.recording = false
	stream := m.stream
	m.stream = nil
	done := m.done
	m.mu.Unlock()

	stream.Stop()
	<-done
	stream.Close()
	portaudio.Terminate()

	m.mu.Lock()
	samples := make([]int16, len(m.samples))
	copy(samples, m.samples)
	m.mu.Unlock()

	return audio.EncodeWAV(samples, m.sampleRate), nil
}
