package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/SHUNKURANARI/excel/internal/cli"
	apphttp "github.com/SHUNKURANARI/excel/internal/http"
	"github.com/SHUNKURANARI/excel/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap()

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{Jobs: true, Publish: true})
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, app.Reports, apphttp.Options{
		Logger:             logger,
		Ready:              app.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	})

	logger.Info("Starting excel server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"jobs", app.Jobs != nil,
		"amqp", app.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
