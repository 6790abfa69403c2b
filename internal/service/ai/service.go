// Package ai produces assistant replies: the forwarded chat history plus the
// new prompt go to the hosted completion API, the answer comes back as text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"speechgpt/internal/config"
	"speechgpt/internal/model/chat"
	"speechgpt/pkg/apierror"
)

const systemPrompt = "You are SpeechGPT, a helpful assistant. Answer the " +
	"user's question using the conversation so far as context."

// Service wraps the hosted completion API.
type Service struct {
	client       openai.Client
	defaultModel string
	logger       zerolog.Logger
}

// NewService builds the completion client from server-side configuration.
func NewService(cfg config.OpenAIConfig, logger zerolog.Logger) (*Service, error) {
	if !cfg.Enabled() {
		return nil, errors.New("OPENAI_API_KEY is required for the completion service")
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)

	return &Service{
		client:       client,
		defaultModel: cfg.CompletionModel,
		logger:       logger,
	}, nil
}

// Answer runs one completion over the prompt and the full forwarded history.
// model may be empty to use the configured default.
func (s *Service) Answer(ctx context.Context, prompt, model string, history []chat.Message) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", apierror.ErrValidation)
	}
	if model == "" {
		model = s.defaultModel
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: buildMessages(prompt, history),
	})
	if err != nil {
		return "", mapUpstreamError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Debug().Str("model", model).Int("history", len(history)).Int("answer_len", len(answer)).Msg("completion resolved")
	return answer, nil
}

// buildMessages maps the persisted history onto completion roles. Turns
// written under the assistant identity become assistant messages; everything
// else is a user turn. The just-persisted prompt is already part of history,
// so it is skipped there and appended once at the end.
func buildMessages(prompt string, history []chat.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for i, msg := range history {
		if msg.User.ID == chat.AssistantUser.ID {
			messages = append(messages, openai.AssistantMessage(msg.Text))
			continue
		}
		if i == len(history)-1 && msg.Text == prompt {
			continue
		}
		messages = append(messages, openai.UserMessage(msg.Text))
	}

	return append(messages, openai.UserMessage(prompt))
}

func mapUpstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &apierror.UpstreamError{Status: apiErr.StatusCode, Detail: apiErr.Message}
	}
	return fmt.Errorf("%w: %v", apierror.ErrNetwork, err)
}
