package transcribe_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"speechgpt/internal/audio"
	"speechgpt/internal/service/transcribe"
	"speechgpt/pkg/apierror"
)

type fakeRecognizer struct {
	text string
	err  error
	got  []byte
}

func (f *fakeRecognizer) Recognize(_ context.Context, wav io.Reader) (string, error) {
	f.got, _ = io.ReadAll(wav)
	return f.text, f.err
}

func wavFixture(t *testing.T) []byte {
	t.Helper()
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	return audio.EncodeWAV(samples, audio.DefaultSampleRate)
}

func TestTranscribeValidAudio(t *testing.T) {
	rec := &fakeRecognizer{text: "hello world"}
	svc := transcribe.NewService(audio.WAVTranscoder{}, rec, t.TempDir(), zerolog.Nop())

	text, err := svc.Transcribe(context.Background(), wavFixture(t))
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(rec.got) == 0 {
		t.Fatal("recognizer received no audio")
	}
	if string(rec.got[0:4]) != "RIFF" {
		t.Fatal("recognizer payload is not a WAV container")
	}
}

func TestTranscribeCorruptedAudioLeavesNoTempFile(t *testing.T) {
	tmpDir := t.TempDir()
	svc := transcribe.NewService(audio.WAVTranscoder{}, &fakeRecognizer{}, tmpDir, zerolog.Nop())

	// Claims RIFF but truncated: must fail decode, not fall back to raw PCM.
	_, err := svc.Transcribe(context.Background(), []byte("RIFFxxxx"))
	if !errors.Is(err, apierror.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}

	assertEmptyDir(t, tmpDir)
}

func TestTranscribeUpstreamFailureCleansUp(t *testing.T) {
	tmpDir := t.TempDir()
	rec := &fakeRecognizer{err: &apierror.UpstreamError{Status: 500}}
	svc := transcribe.NewService(audio.WAVTranscoder{}, rec, tmpDir, zerolog.Nop())

	_, err := svc.Transcribe(context.Background(), wavFixture(t))
	var upstream *apierror.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != 500 {
		t.Fatalf("expected upstream error with status 500, got %v", err)
	}

	assertEmptyDir(t, tmpDir)
}

func TestTranscribeSuccessCleansUp(t *testing.T) {
	tmpDir := t.TempDir()
	svc := transcribe.NewService(audio.WAVTranscoder{}, &fakeRecognizer{text: "ok"}, tmpDir, zerolog.Nop())

	if _, err := svc.Transcribe(context.Background(), wavFixture(t)); err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}

	assertEmptyDir(t, tmpDir)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir err: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, found %d", len(entries))
	}
}
