// Package client is the Go client for the SpeechGPT API, used by the
// terminal front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"speechgpt/internal/model/chat"
	"speechgpt/pkg/apierror"
)

// Client talks to a SpeechGPT server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) chatPath(email string, parts ...string) string {
	p := c.BaseURL + "/api/users/" + url.PathEscape(email) + "/chats"
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// CreateChat provisions a new chat for the session's user.
func (c *Client) CreateChat(ctx context.Context, session chat.Session) (chat.Chat, error) {
	var created chat.Chat
	err := c.postJSON(ctx, c.chatPath(session.Email), map[string]any{"session": session}, &created)
	return created, err
}

// AppendMessage persists one user message and returns the stored record.
func (c *Client) AppendMessage(ctx context.Context, session chat.Session, chatID, text string) (chat.Message, error) {
	var stored chat.Message
	err := c.postJSON(ctx, c.chatPath(session.Email, chatID, "messages"), map[string]any{
		"text":    text,
		"session": session,
	}, &stored)
	return stored, err
}

// Messages reads the full ordered snapshot of a chat's collection.
func (c *Client) Messages(ctx context.Context, email, chatID string) ([]chat.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.chatPath(email, chatID, "messages"), nil)
	if err != nil {
		return nil, err
	}

	var history []chat.Message
	if err := c.do(req, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AskQuestion forwards the prompt, chat id, model, full history and session
// to the completion endpoint and returns the assistant's answer.
func (c *Client) AskQuestion(ctx context.Context, prompt, chatID, model string, history []chat.Message, session chat.Session) (string, error) {
	var resp struct {
		Answer string `json:"answer"`
	}
	err := c.postJSON(ctx, c.BaseURL+"/api/askQuestion", map[string]any{
		"prompt":      prompt,
		"chatId":      chatID,
		"model":       model,
		"chatHistory": history,
		"session":     session,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Transcribe uploads recorded audio under the multipart field "audio" and
// returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/transcribe", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apierror.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error string `json:"error"`
		}
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(detail, &failure) == nil && failure.Error != "" {
			return &apierror.UpstreamError{Status: resp.StatusCode, Detail: failure.Error}
		}
		return &apierror.UpstreamError{Status: resp.StatusCode, Detail: string(detail)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
