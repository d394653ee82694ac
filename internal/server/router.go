package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/handlers"
	"github.com/lumenkb/lumen/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	ChunkHandler   *handlers.ChunkHandler
	EmbedHandler   *handlers.EmbedHandler
	SearchHandler  *handlers.SearchHandler
	SourceHandler  *handlers.SourceHandler
	ChatHandler    *handlers.ChatHandler
	GapHandler     *handlers.GapHandler
	AuthHandler    *handlers.AuthHandler
	ProjectHandler *handlers.ProjectHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/chunk", cfg.ChunkHandler.Chunk)
		r.Post("/embed", cfg.EmbedHandler.Embed)
		r.Post("/search", cfg.SearchHandler.Search)
		r.Post("/chat", cfg.ChatHandler.Ask)

		r.Route("/sources", func(r chi.Router) {
			r.Post("/", cfg.SourceHandler.Ingest)
			r.Delete("/{id}", cfg.SourceHandler.Delete)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", cfg.ProjectHandler.Create)
			r.Get("/", cfg.ProjectHandler.List)
			r.Get("/{id}", cfg.ProjectHandler.Get)
			r.Delete("/{id}", cfg.ProjectHandler.Delete)
			r.Get("/{id}/gaps", cfg.GapHandler.List)
		})
	})

	r.Post("/users", cfg.AuthHandler.CreateUser)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
