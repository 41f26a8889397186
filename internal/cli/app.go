package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/SHUNKURANARI/excel/internal/amqp"
	"github.com/SHUNKURANARI/excel/internal/backend"
	"github.com/SHUNKURANARI/excel/internal/config"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/services"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// AppOptions select the optional parts of the application.
type AppOptions struct {
	// Jobs opens the SQLite job queue.
	Jobs bool
	// Publish connects to AMQP to announce queued jobs.
	Publish bool
}

// App is the wired report application shared by the commands.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Backend   *backend.BackendResult
	Generator *report.Generator
	Jobs      *storage.SQLiteRepository
	AMQP      *amqp.Client
	Reports   *services.ReportService

	closers []func() error
}

// NewApp builds the backend, the generator and the report service. A
// missing job database or broker degrades the app instead of failing it:
// job routes answer 503 and queued jobs wait for the poller.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts AppOptions) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	app.Backend = res
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	app.Generator = report.NewGenerator(res.Backend, res.Backend,
		report.WithApps(cfg.Apps()),
		report.WithLogger(logger))

	reportOpts := []services.ReportOption{}
	if cfg.HeaderApp > 0 {
		reportOpts = append(reportOpts, services.WithHeaders(res.Backend, cfg.HeaderApp))
	}

	if opts.Jobs {
		app.Jobs = res.Repository
		if app.Jobs == nil {
			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
			if err != nil {
				logger.Warn("Job queue unavailable, queued reports disabled",
					log.FieldError, err,
					"path", cfg.SQLiteDBPath)
			} else {
				app.Jobs = repo
				app.closers = append(app.closers, repo.Close)
			}
		}
		if app.Jobs != nil {
			reportOpts = append(reportOpts, services.WithJobs(app.Jobs))
		}
	}

	if opts.Publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, jobs will be picked up by polling", log.FieldError, err)
		} else {
			app.AMQP = client
			app.closers = append(app.closers, client.Close)
			reportOpts = append(reportOpts, services.WithPublisher(client))
		}
	}

	app.Reports = services.NewReportService(app.Generator, reportOpts...)
	return app, nil
}

// JobProcessor builds the processor that runs queued jobs, writing files
// to OUTPUT_DIR.
func (a *App) JobProcessor() (*services.JobProcessor, error) {
	if a.Jobs == nil {
		return nil, fmt.Errorf("job queue: %w", services.ErrNotConfigured)
	}
	cfg := services.DefaultJobProcessorConfig()
	cfg.PollInterval = a.Config.JobPollInterval
	cfg.BatchSize = a.Config.JobBatchSize
	cfg.MaxRetries = a.Config.JobMaxRetries
	return services.NewJobProcessor(a.Jobs, a.Generator, services.DirSink{Dir: a.Config.OutputDir}, cfg), nil
}

// Ready reports whether the job database answers.
func (a *App) Ready(ctx context.Context) error {
	if a.Jobs == nil {
		return nil
	}
	return a.Jobs.Ping(ctx)
}

// Close releases everything NewApp opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
