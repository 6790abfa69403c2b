package input_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"speechgpt/internal/input"
	"speechgpt/internal/model/chat"
)

type fakeAPI struct {
	mu          sync.Mutex
	appended    []string
	historyLen  int
	asked       []askCall
	transcript  string
	transcribed int
}

type askCall struct {
	prompt  string
	model   string
	history []chat.Message
}

func (f *fakeAPI) AppendMessage(_ context.Context, session chat.Session, chatID, text string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, text)
	return chat.Message{ID: "m1", Text: text, User: session.Author(), CreatedAt: time.Now()}, nil
}

func (f *fakeAPI) Messages(_ context.Context, email, chatID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := make([]chat.Message, 0, len(f.appended))
	for _, text := range f.appended {
		history = append(history, chat.Message{Text: text})
	}
	f.historyLen = len(history)
	return history, nil
}

func (f *fakeAPI) AskQuestion(_ context.Context, prompt, chatID, model string, history []chat.Message, _ chat.Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, askCall{prompt: prompt, model: model, history: history})
	return "answer", nil
}

func (f *fakeAPI) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribed++
	return f.transcript, nil
}

type fakeMic struct {
	mu      sync.Mutex
	started int
	stopped int
}

func (m *fakeMic) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	return nil
}

func (m *fakeMic) Stop() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return []byte("RIFFaudio"), nil
}

type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

func session() chat.Session {
	return chat.Session{Email: "ada@example.com", Name: "Ada"}
}

func newComponent(api *fakeAPI, mic *fakeMic, sess chat.Session, ceiling time.Duration) *input.Component {
	return input.New(input.Options{
		API:      api,
		Mic:      mic,
		Notifier: nopNotifier{},
		Session:  sess,
		ChatID:   "chat-1",
		Ceiling:  ceiling,
		Logger:   zerolog.Nop(),
	})
}

func TestSubmitGatesOnWhitespace(t *testing.T) {
	api := &fakeAPI{}
	comp := newComponent(api, &fakeMic{}, session(), 0)

	for _, draft := range []string{"", " ", "\t", "\n", "  \t \n "} {
		comp.SetDraft(draft)
		if err := comp.Submit(context.Background()); err != nil {
			t.Fatalf("draft %q: unexpected error %v", draft, err)
		}
	}
	comp.Wait()

	if len(api.appended) != 0 {
		t.Fatalf("expected no persistence calls, got %d", len(api.appended))
	}
	if len(api.asked) != 0 {
		t.Fatalf("expected no completion calls, got %d", len(api.asked))
	}
}

func TestSubmitGatesOnMissingSession(t *testing.T) {
	api := &fakeAPI{}
	comp := newComponent(api, &fakeMic{}, chat.Session{}, 0)

	comp.SetDraft("hello")
	if err := comp.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp.Wait()

	if len(api.appended) != 0 || len(api.asked) != 0 {
		t.Fatal("submit without session must be a no-op")
	}
}

func TestSubmitClearsDraftAndPersistsTrimmed(t *testing.T) {
	api := &fakeAPI{}
	comp := newComponent(api, &fakeMic{}, session(), 0)

	comp.SetDraft("  what is a goroutine?  ")
	if err := comp.Submit(context.Background()); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	comp.Wait()

	if comp.Draft() != "" {
		t.Fatalf("expected cleared draft, got %q", comp.Draft())
	}
	if len(api.appended) != 1 || api.appended[0] != "what is a goroutine?" {
		t.Fatalf("unexpected persisted messages: %v", api.appended)
	}
}

func TestSubmitForwardsHistoryIncludingNewMessage(t *testing.T) {
	api := &fakeAPI{}
	comp := newComponent(api, &fakeMic{}, session(), 0)

	comp.SetDraft("first question")
	if err := comp.Submit(context.Background()); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	comp.Wait()

	if len(api.asked) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(api.asked))
	}
	call := api.asked[0]
	if call.prompt != "first question" {
		t.Fatalf("unexpected prompt: %q", call.prompt)
	}
	if len(call.history) != 1 || call.history[0].Text != "first question" {
		t.Fatalf("forwarded history missing the just-persisted message: %+v", call.history)
	}
	if call.model != input.DefaultModel {
		t.Fatalf("expected default model, got %q", call.model)
	}
}

func TestRecordingCeilingAutoStopsAndPopulatesDraft(t *testing.T) {
	api := &fakeAPI{transcript: "spoken words"}
	mic := &fakeMic{}
	comp := newComponent(api, mic, session(), 20*time.Millisecond)

	if err := comp.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("ToggleRecording err: %v", err)
	}
	if !comp.Recording() {
		t.Fatal("expected Recording state")
	}

	// Ceiling expires without a manual stop.
	deadline := time.Now().Add(time.Second)
	for comp.Recording() {
		if time.Now().After(deadline) {
			t.Fatal("recording did not auto-stop at the ceiling")
		}
		time.Sleep(5 * time.Millisecond)
	}
	comp.Wait()

	if mic.stopped != 1 {
		t.Fatalf("expected one capture stop, got %d", mic.stopped)
	}
	if comp.Draft() != "spoken words" {
		t.Fatalf("expected transcript in draft, got %q", comp.Draft())
	}
}

func TestManualStopTranscribesAndOverwritesTypedDraft(t *testing.T) {
	api := &fakeAPI{transcript: "transcribed"}
	comp := newComponent(api, &fakeMic{}, session(), time.Minute)

	comp.SetDraft("typed text the user loses")
	if err := comp.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("start err: %v", err)
	}
	if err := comp.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("stop err: %v", err)
	}
	comp.Wait()

	if api.transcribed != 1 {
		t.Fatalf("expected one transcription call, got %d", api.transcribed)
	}
	if comp.Draft() != "transcribed" {
		t.Fatalf("transcript must overwrite the draft, got %q", comp.Draft())
	}
}

func TestModelsSelectionDrivesSubmit(t *testing.T) {
	api := &fakeAPI{}
	comp := newComponent(api, &fakeMic{}, session(), 0)

	comp.Models().Set("gpt-4")
	comp.SetDraft("hello")
	if err := comp.Submit(context.Background()); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	comp.Wait()

	if len(api.asked) != 1 || api.asked[0].model != "gpt-4" {
		t.Fatalf("expected completion with the selected model, got %+v", api.asked)
	}
}

func TestModelStateAccessors(t *testing.T) {
	var state input.ModelState
	if state.Get() != input.DefaultModel {
		t.Fatalf("expected default model, got %q", state.Get())
	}

	state.Set("gpt-4")
	if state.Get() != "gpt-4" {
		t.Fatalf("expected override, got %q", state.Get())
	}

	state.Set("")
	if state.Get() != input.DefaultModel {
		t.Fatalf("expected reset to default, got %q", state.Get())
	}
}
