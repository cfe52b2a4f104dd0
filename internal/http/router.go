package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kbchat/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService handlers.ChatService
	Ingestor    handlers.Ingestor
	Reviewer    handlers.Reviewer
	Chunks      handlers.ChunkLister
	Health      *handlers.HealthHandler
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.Ingestor, deps.Chunks)
	reviewHandler := handlers.NewReviewHandler(deps.Reviewer)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Post("/documents", documentsHandler.Ingest)
		r.Get("/documents/{id}/chunks", documentsHandler.ListChunks)
		r.Method(http.MethodPost, "/chunks/{id}/review", reviewHandler)
		if deps.Health != nil {
			r.Method(http.MethodGet, "/health", deps.Health)
		}
	})

	return r
}
