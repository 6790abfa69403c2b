package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"speechgpt/internal/audio"
	transcribesvc "speechgpt/internal/service/transcribe"
	"speechgpt/pkg/apierror"
)

type fakeService struct {
	text string
	err  error
}

func (f *fakeService) Transcribe(_ context.Context, raw []byte) (string, error) {
	return f.text, f.err
}

func multipartBody(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "sample.wav")
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write payload err: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close err: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHandleTranscribeSuccess(t *testing.T) {
	handler := New(&fakeService{text: "hello"}, 32<<20, zerolog.Nop())

	body, contentType := multipartBody(t, "audio", []byte("pcm"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	handler.handleTranscribe(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response err: %v", err)
	}
	if resp["text"] != "hello" {
		t.Fatalf("unexpected text: %q", resp["text"])
	}
}

func TestHandleTranscribeRejectsWrongFieldName(t *testing.T) {
	handler := New(&fakeService{text: "hello"}, 32<<20, zerolog.Nop())

	body, contentType := multipartBody(t, "file", []byte("pcm"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	handler.handleTranscribe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for field name other than audio, got %d", rr.Code)
	}
}

func TestHandleTranscribeDecodeFailure(t *testing.T) {
	handler := New(&fakeService{err: apierror.ErrDecode}, 32<<20, zerolog.Nop())

	body, contentType := multipartBody(t, "audio", []byte("garbage"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	handler.handleTranscribe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response err: %v", err)
	}
	if resp["error"] == "" {
		t.Fatal("expected error field in response")
	}
}

func TestHandleTranscribePropagatesUpstreamStatus(t *testing.T) {
	handler := New(&fakeService{err: &apierror.UpstreamError{Status: http.StatusTooManyRequests}}, 32<<20, zerolog.Nop())

	body, contentType := multipartBody(t, "audio", []byte("pcm"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	handler.handleTranscribe(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected upstream status to propagate, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response err: %v", err)
	}
	if resp["error"] != "Failed to transcribe audio" {
		t.Fatalf("unexpected error body: %q", resp["error"])
	}
}

// Concurrent uploads must not interfere: each request gets its own temp
// resource in the pipeline underneath.
func TestHandleTranscribeConcurrentRequests(t *testing.T) {
	tmpDir := t.TempDir()
	svc := transcribesvc.NewService(audio.WAVTranscoder{}, recognizeFunc(func(wav []byte) (string, error) {
		return "ok", nil
	}), tmpDir, zerolog.Nop())
	handler := New(svc, 32<<20, zerolog.Nop())

	samples := make([]int16, 800)
	fixture := audio.EncodeWAV(samples, audio.DefaultSampleRate)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, contentType := multipartBody(t, "audio", fixture)
			req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			handler.handleTranscribe(rr, req)
			results[i] = rr.Code
		}(i)
	}
	wg.Wait()

	for i, code := range results {
		if code != http.StatusOK {
			t.Fatalf("request %d failed with status %d", i, code)
		}
	}
}

type recognizeFunc func(wav []byte) (string, error)

func (f recognizeFunc) Recognize(_ context.Context, wav io.Reader) (string, error) {
	data, err := io.ReadAll(wav)
	if err != nil {
		return "", err
	}
	return f(data)
}
