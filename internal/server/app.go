// Package server wires the BMD portal together: database, services, the
// Workflow API submitter, the HTTP front-end and the gRPC health endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bmd/internal/dbx"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/auth"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/dmitrijs2005/bmd/internal/server/crates"
	gs "github.com/dmitrijs2005/bmd/internal/server/grpc"
	"github.com/dmitrijs2005/bmd/internal/server/httpapi"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/dmitrijs2005/bmd/internal/server/workflowapi"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	userService     *services.UserService
	workflowService *services.WorkflowService
	mock            *workflowapi.MockRunner
	http            *httpapi.Server
	health          *gs.HealthServer
}

// OpenDatabase opens the configured database and applies pending migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, dialect, err := dbx.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	m, err := repomanager.NewSQLRepositoryManager(dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

// NewApp builds every component. ctx bounds the lifetime of background
// work such as mock workflow runs.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, m, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: logger, db: db, repomanager: m}
	if err := app.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	cfg := app.config

	var submitter workflowapi.Submitter
	if cfg.Workflow.Mock {
		app.mock = workflowapi.NewMockRunner(ctx, cfg.Workflow.MockDelay, app.logger)
		submitter = app.mock
		app.logger.Info(ctx, "using mock workflow runner", "delay", cfg.Workflow.MockDelay)
	} else {
		submitter = workflowapi.NewClient(workflowapi.ClientConfig{
			URL:                cfg.Workflow.APIURL,
			APIKey:             cfg.Workflow.APIKey,
			AuthHeader:         cfg.Workflow.AuthHeader,
			AuthScheme:         cfg.Workflow.AuthScheme,
			WebhookURLTemplate: cfg.Workflow.WebhookURLTemplate,
			WebhookSecret:      cfg.Webhook.Secret,
			DryRun:             cfg.Workflow.DryRun,
			Force:              cfg.Workflow.Force,
			Timeout:            cfg.Workflow.Timeout,
		}, app.logger)
	}

	var archive services.CrateArchive
	if cfg.S3.Bucket != "" {
		store, err := crates.NewStore(ctx, crates.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("crate archive: %w", err)
		}
		archive = store
	}

	app.userService = services.NewUserService(app.db, app.repomanager, cfg, app.logger)

	ws, err := services.NewWorkflowService(app.db, app.repomanager, submitter, archive, app.logger)
	if err != nil {
		return err
	}
	app.workflowService = ws
	if app.mock != nil {
		app.mock.Attach(ws)
	}

	var orcid httpapi.ORCIDFlow
	if cfg.ORCID.ClientID != "" {
		linker, err := auth.NewORCIDLinker(ctx, auth.ORCIDConfig{
			Issuer:       cfg.ORCID.Issuer,
			ClientID:     cfg.ORCID.ClientID,
			ClientSecret: cfg.ORCID.ClientSecret,
			RedirectURL:  cfg.ORCID.RedirectURL,
		})
		if err != nil {
			return fmt.Errorf("orcid: %w", err)
		}
		orcid = linker
	}

	app.http, err = httpapi.NewServer(httpapi.Deps{
		Config:    cfg,
		Users:     app.userService,
		Workflows: ws,
		ORCID:     orcid,
		DB:        app.db,
		Logger:    app.logger,
	})
	if err != nil {
		return err
	}

	app.health = gs.NewHealthServer(cfg.GRPC.HealthAddress, app.db, app.logger)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a signal arrives or a server fails, then waits for the
// servers and any mock runs to stop and closes the database.
func (app *App) Run(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx, app.config.HTTP.Address); err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.health.Run(ctx); err != nil {
			app.logger.Error(ctx, "health server failed", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.mock != nil {
		app.mock.Wait()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
