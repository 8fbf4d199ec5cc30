package route

import (
	"authenta/internal/config"
	"authenta/internal/handler"
	"authenta/internal/logger"
	"authenta/internal/middleware"
	"authenta/internal/repository"
	"authenta/internal/service/progress"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes registers the progress WebSocket, the ledger API and the log
// endpoints, all behind the token middleware.
func SetupRoutes(hub *progress.HubService, cfg *config.Config, logger *logger.Logger,
	mediaRepo repository.MediaRepository, artifactRepo repository.ArtifactRepository) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TokenMiddleware(cfg.ProgressToken))

	// API endpoints
	r.Get("/api/progress", handler.ProgressWebsocketHandler(hub, logger))
	r.Get("/api/media", handler.GetMediaFromLedgerHandler(logger, mediaRepo))
	r.Get("/api/media/{mid}", handler.GetMediaHandler(logger, mediaRepo))
	r.Get("/api/media/{mid}/artifacts", handler.GetArtifactsHandler(logger, artifactRepo))

	// Log endpoints
	r.Get("/logs/{level}", handler.ShowLogsHandler(cfg.LogDirectory))
	r.Post("/logs/{level}/clear", handler.ClearLogsHandler(logger))

	return r
}
