package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alabobai/media-bridge/internal/handler"
	"github.com/alabobai/media-bridge/internal/metrics"
)

func setupRouter(bridge *handler.Bridge, collector *metrics.Collector) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestMetrics(collector))

	r.Get("/health", bridge.Health)
	r.Get("/metrics", collector.Handler())

	r.Post("/api/chat", bridge.Chat)
	r.Post("/api/hybrid/chat", bridge.HybridChat)
	r.Get("/api/hybrid/status", bridge.HybridStatus)

	r.Post("/api/generate-image", bridge.GenerateImage)
	r.Post("/api/generate-video", bridge.GenerateVideo)

	r.Get("/api/local-ai/status", bridge.LocalAIStatus)
	r.Get("/api/local-ai/models", bridge.ListModels)
	r.Post("/api/local-ai/models", bridge.PullModel)
	r.Delete("/api/local-ai/models", bridge.DeleteModel)

	r.Get("/api/webhook", bridge.WebhookRoot)
	r.Post("/api/webhook/test", bridge.WebhookTest)
	r.Post("/api/webhook/dispatch", bridge.WebhookDispatch)
	r.Get("/api/webhook/events", bridge.WebhookEvents)

	return r
}

func requestMetrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			collector.Emit(metrics.Event{
				Type:     metrics.EventRequestReceived,
				Route:    r.URL.Path,
				Duration: time.Since(start),
			})
		})
	}
}
