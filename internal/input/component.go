// Package input implements the prompt input component: draft text, the
// recording toggle, model selection, and the submit flow. It is
// UI-framework-free; the terminal front end drives it and renders its
// notifications.
package input

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speechgpt/internal/capture"
	"speechgpt/internal/model/chat"
)

// RecordingCeiling caps a recording: the Recording state auto-expires after
// this long even without a manual stop.
const RecordingCeiling = 5 * time.Second

// API is the backend surface the component drives.
type API interface {
	AppendMessage(ctx context.Context, session chat.Session, chatID, text string) (chat.Message, error)
	Messages(ctx context.Context, email, chatID string) ([]chat.Message, error)
	AskQuestion(ctx context.Context, prompt, chatID, model string, history []chat.Message, session chat.Session) (string, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Notifier renders visible, dismissible notifications. Every failure kind
// reaches the user through it.
type Notifier interface {
	Info(message string)
	Success(message string)
	Error(message string)
}

// Component wires the input surface to the backend.
type Component struct {
	api      API
	mic      capture.Capture
	notifier Notifier
	models   *ModelState
	session  chat.Session
	chatID   string
	ceiling  time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	draft     string
	recording bool
	stopTimer *time.Timer

	pending sync.WaitGroup
}

// Options configures the component.
type Options struct {
	API      API
	Mic      capture.Capture
	Notifier Notifier
	Models   *ModelState
	Session  chat.Session
	ChatID   string

	// Ceiling overrides RecordingCeiling; zero keeps the default.
	Ceiling time.Duration

	Logger zerolog.Logger
}

// New creates the component.
func New(opts Options) *Component {
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = RecordingCeiling
	}
	models := opts.Models
	if models == nil {
		models = &ModelState{}
	}
	return &Component{
		api:      opts.API,
		mic:      opts.Mic,
		notifier: opts.Notifier,
		models:   models,
		session:  opts.Session,
		chatID:   opts.ChatID,
		ceiling:  ceiling,
		logger:   opts.Logger,
	}
}

// Draft returns the current draft text.
func (c *Component) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the draft text (typing).
func (c *Component) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Recording reports whether a recording is in progress.
func (c *Component) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Models exposes the shared model selection state.
func (c *Component) Models() *ModelState {
	return c.models
}

// ToggleRecording flips Idle <-> Recording. Entering Recording starts
// microphone capture and arms the ceiling timer; leaving it finalizes the
// buffer and hands it to transcription.
func (c *Component) ToggleRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		c.finishRecording(ctx)
		return nil
	}

	if err := c.mic.Start(ctx); err != nil {
		c.mu.Unlock()
		if errors.Is(err, capture.ErrUnavailable) {
			c.notifier.Error("Recording is not available on this build")
			return err
		}
		c.notifier.Error("Could not start recording")
		return err
	}

	c.recording = true
	c.stopTimer = time.AfterFunc(c.ceiling, func() {
		c.finishRecording(ctx)
	})
	c.mu.Unlock()
	return nil
}

// finishRecording performs the Recording -> Idle transition exactly once per
// recording, whether triggered manually or by the ceiling timer.
func (c *Component) finishRecording(ctx context.Context) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return
	}
	c.recording = false
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
	// Registered before the state flip is observable so Wait covers the
	// in-flight transcription.
	c.pending.Add(1)
	c.mu.Unlock()

	buf, err := c.mic.Stop()
	if err != nil {
		c.pending.Done()
		c.logger.Error().Err(err).Msg("failed to finalize recording")
		c.notifier.Error("Could not capture the recording")
		return
	}

	go func() {
		defer c.pending.Done()
		text, err := c.api.Transcribe(ctx, buf)
		if err != nil {
			c.logger.Error().Err(err).Msg("transcription request failed")
			c.notifier.Error("Could not transcribe the recording")
			return
		}
		// The transcript overwrites whatever is in the draft, typed text
		// included.
		c.SetDraft(text)
	}()
}

// Submit sends the draft as a new message. With a blank draft or without a
// session it is a no-op gate, not an error. The draft clears immediately;
// the message is durably appended, the full history re-read, and the
// completion request issued asynchronously.
func (c *Component) Submit(ctx context.Context) error {
	c.mu.Lock()
	prompt := strings.TrimSpace(c.draft)
	if prompt == "" || !c.session.Valid() {
		c.mu.Unlock()
		return nil
	}
	c.draft = ""
	c.mu.Unlock()

	if _, err := c.api.AppendMessage(ctx, c.session, c.chatID, prompt); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist message")
		c.notifier.Error("Could not send your message")
		return err
	}

	history, err := c.api.Messages(ctx, c.session.Email, c.chatID)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to re-read chat history")
		c.notifier.Error("Could not load the conversation")
		return err
	}

	model := c.models.Get()

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.notifier.Info("SpeechGPT is thinking...")
		// Resolution only means the HTTP call returned; persistence of the
		// answer is the server's side of the contract.
		if _, err := c.api.AskQuestion(ctx, prompt, c.chatID, model, history, c.session); err != nil {
			c.logger.Error().Err(err).Msg("completion request failed")
			c.notifier.Error("SpeechGPT could not respond")
			return
		}
		c.notifier.Success("SpeechGPT has responded!")
	}()

	return nil
}

// Wait joins all in-flight asynchronous operations. Used on shutdown and by
// tests.
func (c *Component) Wait() {
	c.pending.Wait()
}
