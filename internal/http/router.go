// Package http assembles the chi router: admin API routes behind rate
// limiting, worker callback routes behind signature verification.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"crevid/internal/cache"
	"crevid/internal/http/handlers"
	"crevid/internal/infra"
	"crevid/internal/middleware"
	"crevid/internal/worker"
)

// RouterDeps carries everything the router needs to mount the service.
type RouterDeps struct {
	App      *handlers.App
	Workers  *worker.Handlers
	Cache    cache.Cache
	Settings middleware.RateLimitSettings
	Config   *infra.Config
	Logger   infra.Logger
}

// NewRouter mounts all routes with their middleware chains.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/api/health", deps.App.Health)

	// Admin API. Rate limited per client address.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Cache, deps.Settings, deps.Logger))

		r.Route("/api/contents", func(r chi.Router) {
			r.Post("/generate", deps.App.GenerateContent)
			r.Post("/", deps.App.SaveContent)
			r.Get("/", deps.App.ListContents)
			r.Get("/{id}", deps.App.GetContent)
			r.Put("/{id}", deps.App.UpdateContent)
			r.Delete("/{id}", deps.App.DeleteContent)
			r.Get("/{id}/jobs", deps.App.ListContentJobs)
		})

		r.Route("/api/media", func(r chi.Router) {
			r.Post("/generate", deps.App.GenerateMedia)
			r.Post("/generate-batch", deps.App.GenerateMediaBatch)
		})
		r.Route("/api/tts", func(r chi.Router) {
			r.Post("/generate", deps.App.GenerateTTS)
			r.Post("/generate-batch", deps.App.GenerateTTSBatch)
		})
		r.Post("/api/batch/generate", deps.App.GenerateBatch)

		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", deps.App.ListJobs)
			r.Get("/content/{id}", deps.App.ListContentJobs)
			r.Get("/{id}", deps.App.GetJob)
			r.Post("/{id}/cancel", deps.App.CancelJob)
			r.Post("/{id}/retry", deps.App.RetryJob)
		})

		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", deps.App.GetSettings)
			r.Put("/", deps.App.UpdateSettings)
			r.Post("/reset", deps.App.ResetSettings)
		})
	})

	// Queue callbacks. Authenticated by delivery signature, never rate
	// limited: throttling our own queue would stall jobs.
	r.Group(func(r chi.Router) {
		r.Use(middleware.VerifySignature(deps.Workers.Settings, deps.Config.AppEnv, deps.Logger))

		r.Post("/api/workers/content-generation", deps.Workers.HandleContentGeneration)
		r.Post("/api/workers/media-generation", deps.Workers.HandleMediaGeneration)
		r.Post("/api/workers/tts-generation", deps.Workers.HandleTTSGeneration)
		r.Post("/api/workers/batch-operation", deps.Workers.HandleBatchOperation)
	})

	return r
}
