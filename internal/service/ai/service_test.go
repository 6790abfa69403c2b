package ai

import (
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"speechgpt/internal/model/chat"
	"speechgpt/pkg/apierror"
)

func history() []chat.Message {
	user := chat.User{ID: "ada@example.com", Name: "Ada"}
	return []chat.Message{
		{Text: "hello", User: user, CreatedAt: time.Now().Add(-3 * time.Minute)},
		{Text: "hi, how can I help?", User: chat.AssistantUser, CreatedAt: time.Now().Add(-2 * time.Minute)},
		{Text: "what is a closure?", User: user, CreatedAt: time.Now().Add(-time.Minute)},
	}
}

func TestBuildMessagesRoles(t *testing.T) {
	messages := buildMessages("what is a closure?", history())

	// system + (hello, assistant reply) + prompt; the just-persisted prompt
	// at the tail of history must not be duplicated.
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].OfSystem == nil {
		t.Fatal("first message must be the system prompt")
	}
	if messages[2].OfAssistant == nil {
		t.Fatal("assistant turn not mapped to assistant role")
	}
	if messages[3].OfUser == nil {
		t.Fatal("prompt must be the trailing user message")
	}
}

func TestBuildMessagesEmptyHistory(t *testing.T) {
	messages := buildMessages("first question", nil)
	if len(messages) != 2 {
		t.Fatalf("expected system + prompt, got %d messages", len(messages))
	}
}

func TestMapUpstreamErrorNetwork(t *testing.T) {
	err := mapUpstreamError(errTimeout{})
	if !errors.Is(err, apierror.ErrNetwork) {
		t.Fatalf("expected network failure kind, got %v", err)
	}
}

func TestMapUpstreamErrorStatus(t *testing.T) {
	err := mapUpstreamError(&openai.Error{StatusCode: 429})

	var upstream *apierror.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != 429 {
		t.Fatalf("expected status 429, got %d", upstream.Status)
	}
}

type errTimeout struct{}

func (errTimeout) Error() string { return "dial tcp: timeout" }
