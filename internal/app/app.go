// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/config"
	"github.com/JakeFAU/mini-spider/internal/controller"
	"github.com/JakeFAU/mini-spider/internal/fetcher"
	"github.com/JakeFAU/mini-spider/internal/id/uuid"
	"github.com/JakeFAU/mini-spider/internal/logging"
	"github.com/JakeFAU/mini-spider/internal/metrics"
	"github.com/JakeFAU/mini-spider/internal/parser"
	"github.com/JakeFAU/mini-spider/internal/storage/local"
)

// Options are the command-line inputs the App is built from.
type Options struct {
	ConfDir     string
	ConfFile    string
	LogDir      string
	LogFile     string
	LogLevel    string
	Development bool
}

// App holds the shared services of one crawl run: the logger, the loaded
// configuration and the run id every log record carries.
type App struct {
	logger  *zap.Logger
	cfg     config.Config
	confDir string
	runID   string
}

// New builds the logger, assigns a run id and loads configuration. It fails
// fast if any of them cannot be initialized.
func New(_ context.Context, opts Options) (*App, error) {
	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	logger, err := logging.NewWithOptions(logging.Options{
		Development: opts.Development,
		Dir:         opts.LogDir,
		File:        opts.LogFile,
		Level:       opts.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	cfg, err := config.Load(opts.ConfDir, opts.ConfFile)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	metrics.Init()

	logger.Info("application initialized",
		zap.String("conf_dir", opts.ConfDir),
		zap.String("conf_file", opts.ConfFile),
		zap.String("output_directory", cfg.Spider.OutputDirectory),
	)
	return &App{
		logger:  logger,
		cfg:     cfg,
		confDir: opts.ConfDir,
		runID:   runID,
	}, nil
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the validated configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetRunID returns the id of this run.
func (a *App) GetRunID() string {
	return a.runID
}

// SeedFilePath returns the seed file location resolved against the conf dir.
func (a *App) SeedFilePath() string {
	return a.cfg.SeedFilePath(a.confDir)
}

// NewController wires the fetcher, link extractor and page store into a crawl controller.
func (a *App) NewController() (*controller.Controller, error) {
	store, err := local.New(local.Config{BaseDir: a.cfg.Spider.OutputDirectory}, a.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("init page store: %w", err)
	}
	deps := controller.Deps{
		Fetcher: fetcher.New(fetcher.Config{
			UserAgent:   a.cfg.HTTP.UserAgent,
			MaxAttempts: a.cfg.HTTP.MaxAttempts,
			RetryDelay:  a.cfg.RetryDelay(),
		}, a.logger.Named("fetcher")),
		Extractor: parser.New(a.logger.Named("parser")),
		Persister: store,
	}
	ctrl, err := controller.New(controller.Config{
		ThreadCount: a.cfg.Spider.ThreadCount,
		MaxDepth:    a.cfg.Spider.MaxDepth,
		Interval:    a.cfg.Interval(),
		Timeout:     a.cfg.Timeout(),
		TargetURL:   a.cfg.Spider.TargetURL,
	}, deps, a.logger.Named("controller"))
	if err != nil {
		return nil, fmt.Errorf("init controller: %w", err)
	}
	return ctrl, nil
}

// Close flushes the logger. It is called by a Cobra hook after the command finishes.
func (a *App) Close() {
	a.logger.Info("shutting down")
	// Sync on stderr can fail with EINVAL.
	_ = a.logger.Sync()
}
