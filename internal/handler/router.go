package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	chathandler "speechgpt/internal/handler/chat"
	"speechgpt/internal/handler/live"
	mw "speechgpt/internal/handler/middleware"
	"speechgpt/internal/handler/question"
	transcribehandler "speechgpt/internal/handler/transcribe"
	"speechgpt/internal/metrics"
	chatservice "speechgpt/internal/service/chat"
	"speechgpt/pkg/utils"
)

// Deps carries the services the router wires to routes. Transcriber and
// Answerer may be nil when the hosted AI credential is not configured; their
// endpoints then answer 503.
type Deps struct {
	Logger        zerolog.Logger
	ChatSvc       *chatservice.Service
	Transcriber   transcribehandler.Service
	Answerer      question.Answerer
	MaxUploadSize int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		chathandler.New(deps.ChatSvc).RegisterRoutes(api)
		live.New(deps.ChatSvc, deps.Logger).RegisterRoutes(api)

		if deps.Transcriber != nil {
			transcribehandler.New(deps.Transcriber, deps.MaxUploadSize, deps.Logger).RegisterRoutes(api)
		} else {
			api.Post("/transcribe", unavailable("transcription unavailable"))
		}

		if deps.Answerer != nil {
			question.New(deps.Answerer, deps.ChatSvc, deps.Logger).RegisterRoutes(api)
		} else {
			api.Post("/askQuestion", unavailable("completions unavailable"))
		}

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func unavailable(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, message)
	}
}
