package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/browser"
	"github.com/ternarybob/verity/internal/common"
	"github.com/ternarybob/verity/internal/events"
	"github.com/ternarybob/verity/internal/handlers"
	"github.com/ternarybob/verity/internal/interfaces"
	"github.com/ternarybob/verity/internal/report"
	"github.com/ternarybob/verity/internal/services/runs"
	"github.com/ternarybob/verity/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	// Core services
	BrowserPool  *browser.Pool
	EventService interfaces.EventService
	DB           *badger.BadgerDB
	RunStorage   *badger.RunStorage
	ReportWriter *report.Writer
	RunService   *runs.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	RunsHandler     *handlers.RunsHandler
	ScenarioHandler *handlers.ScenarioHandler
	WSHandler       *handlers.WebSocketHandler
}

// New wires the application: storage, browser pool, event service, run
// service and handlers. The browser pool is launched here; a failure to
// start any browser is fatal.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Config:    config,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open run storage: %w", err)
	}
	a.DB = db
	a.RunStorage = badger.NewRunStorage(db, logger)

	a.EventService = events.NewService(logger)
	a.ReportWriter = report.NewWriter(config.Reports.Dir, logger)

	a.BrowserPool = browser.NewPool(config.Browser, logger)
	if err := a.BrowserPool.Init(); err != nil {
		db.Close()
		cancel()
		return nil, fmt.Errorf("failed to initialize browser pool: %w", err)
	}

	a.RunService = runs.NewService(a.BrowserPool, config, a.EventService, a.RunStorage, a.ReportWriter, logger)

	a.APIHandler = handlers.NewAPIHandler(logger)
	a.RunsHandler = handlers.NewRunsHandler(a.RunStorage, a.RunService, logger)
	a.ScenarioHandler = handlers.NewScenarioHandler(config.Scenarios.Dir, logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger)

	logger.Info().
		Str("scenarios_dir", config.Scenarios.Dir).
		Str("reports_dir", config.Reports.Dir).
		Msg("Application initialized")

	return a, nil
}

// Context returns the application lifetime context
func (a *App) Context() context.Context {
	return a.ctx
}

// Close shuts down components in reverse dependency order.
func (a *App) Close() error {
	a.cancelCtx()

	var firstErr error
	if err := a.BrowserPool.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if svc, ok := a.EventService.(*events.Service); ok {
		if err := svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	a.Logger.Info().Msg("Application shut down")
	return firstErr
}
