package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"speechgpt/pkg/apierror"
)

// Recognizer converts canonical WAV audio into text.
type Recognizer interface {
	Recognize(ctx context.Context, wav io.Reader) (string, error)
}

// WhisperClient calls the hosted transcription API
// (POST {base}/audio/transcriptions) with a bearer credential.
type WhisperClient struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// NewWhisperClient builds the upstream client. language may be empty, in
// which case the upstream auto-detects.
func NewWhisperClient(apiKey, baseURL, model, language string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		language:   language,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Recognize uploads the WAV payload and returns the recognized text. A
// non-200 upstream answer surfaces as apierror.UpstreamError carrying the
// upstream status; transport failures surface as apierror.ErrNetwork.
func (c *WhisperClient) Recognize(ctx context.Context, wav io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err = io.Copy(part, wav); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}

	if err = writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if c.language != "" {
		if err = writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("writing language field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apierror.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &apierror.UpstreamError{Status: resp.StatusCode, Detail: string(detail)}
	}

	var result transcriptionResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return result.Text, nil
}
