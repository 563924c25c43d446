package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillhq/kbingest/internal/api"
	"github.com/quillhq/kbingest/internal/api/handlers"
	"github.com/quillhq/kbingest/internal/api/middleware"
)

type RouterConfig struct {
	SourceHandler *handlers.SourceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Markdown documents arrive inline in ingest requests.
	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/sources", func(r chi.Router) {
		r.Post("/{id}/ingest", cfg.SourceHandler.Ingest)
		r.Get("/{id}", cfg.SourceHandler.Get)
	})

	return r
}
