package app

import (
	"authenta/internal/client"
	"authenta/internal/config"
	"authenta/internal/logger"
	"authenta/internal/model"
	"authenta/internal/repository/sqlite"
	"authenta/internal/route"
	"authenta/internal/service/media"
	"authenta/internal/service/progress"
	"authenta/internal/service/visualization"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// App wires configuration, logging, the local ledger and the Authenta
// services together. The progress server only runs when ProgressPort > 0.
type App struct {
	config       *config.Config
	logger       *logger.Logger
	db           *sqlite.DB
	mediaRepo    *sqlite.MediaRepository
	artifactRepo *sqlite.ArtifactRepository
	orchestrator *media.Orchestrator
	renderer     *visualization.Renderer
	hubService   *progress.HubService
	server       *http.Server
	stop         context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		appLogger.Close()
		return nil, err
	}
	mediaRepo := sqlite.NewMediaRepository(db)
	artifactRepo := sqlite.NewArtifactRepository(db)

	c, err := client.NewFromConfig(cfg)
	if err != nil {
		db.Close()
		appLogger.Close()
		return nil, err
	}

	a := &App{
		config:       cfg,
		logger:       appLogger,
		db:           db,
		mediaRepo:    mediaRepo,
		artifactRepo: artifactRepo,
		orchestrator: media.NewOrchestrator(c, cfg, appLogger, mediaRepo),
		renderer:     visualization.NewRenderer(c, appLogger),
	}

	if cfg.ProgressPort > 0 {
		a.hubService = progress.NewHubService(appLogger)
		a.orchestrator.SetPublisher(a.hubService)
	}
	return a, nil
}

// Start launches the hub and the progress server in the background.
func (a *App) Start() {
	if a.hubService == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go a.hubService.Run(ctx)

	router := route.SetupRoutes(a.hubService, a.config, a.logger, a.mediaRepo, a.artifactRepo)
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.ProgressPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Progress server listening on http://localhost:%d", a.config.ProgressPort)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Progress server stopped: %v", err)
		}
	}()
}

// Close stops the progress server and releases the database and log files.
func (a *App) Close() error {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warning("Progress server shutdown: %v", err)
		}
	}
	if a.stop != nil {
		a.stop()
	}

	dbErr := a.db.Close()
	logErr := a.logger.Close()
	return errors.Join(dbErr, logErr)
}

// RecordArtefacts stores every file in artefacts as an artifact of mid.
func (a *App) RecordArtefacts(mid string, artefacts *visualization.Artefacts) {
	var batch []model.Artifact
	for kind, paths := range artefacts.Paths() {
		for _, path := range paths {
			batch = append(batch, model.Artifact{MID: mid, Kind: kind, Path: path})
		}
	}
	if len(batch) == 0 {
		return
	}
	if err := a.artifactRepo.InsertBatch(batch); err != nil {
		a.logger.Warning("Failed to record artifacts for %s: %v", mid, err)
	}
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Logger() *logger.Logger { return a.logger }
func (a *App) Orchestrator() *media.Orchestrator { return a.orchestrator }
func (a *App) Renderer() *visualization.Renderer { return a.renderer }
func (a *App) MediaRepo() *sqlite.MediaRepository { return a.mediaRepo }
func (a *App) ArtifactRepo() *sqlite.ArtifactRepository { return a.artifactRepo }
