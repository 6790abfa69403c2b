package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"speechgpt/internal/audio"
	"speechgpt/internal/config"
	"speechgpt/internal/handler"
	"speechgpt/internal/service/ai"
	chatservice "speechgpt/internal/service/chat"
	"speechgpt/internal/service/transcribe"
	"speechgpt/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file; using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	st, err := store.NewBadgerStore(store.BadgerOptions{
		Dir:      cfg.Store.Dir,
		InMemory: cfg.Store.InMemory,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open document store")
	}
	defer st.Close()

	chatSvc := chatservice.NewService(st)

	var (
		transcriber *transcribe.Service
		answerer    *ai.Service
	)
	if cfg.OpenAI.Enabled() {
		recognizer := transcribe.NewWhisperClient(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.TranscriptionModel,
			cfg.OpenAI.Language,
		)
		transcriber = transcribe.NewService(audio.WAVTranscoder{}, recognizer, "", logger.With().Str("component", "transcribe").Logger())

		answerer, err = ai.NewService(cfg.OpenAI, logger.With().Str("component", "ai").Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize completion service")
		}
		logger.Info().Msg("hosted AI services initialized")
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set; transcription and completions disabled")
	}

	deps := handler.Deps{
		Logger:        logger,
		ChatSvc:       chatSvc,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}
	if transcriber != nil {
		deps.Transcriber = transcriber
	}
	if answerer != nil {
		deps.Answerer = answerer
	}

	router := handler.NewRouter(deps)

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", serverCfg.Addr).Msg("SpeechGPT backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
