package main

import (
	"context"
	"os"
	"time"

	"github.com/SHUNKURANARI/excel/internal/amqp"
	"github.com/SHUNKURANARI/excel/internal/cli"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting excel-worker")

	// The worker consumes the queue, it never publishes.
	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{Jobs: true})
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	processor, err := app.JobProcessor()
	if err != nil {
		logger.Error("Failed to initialize job processor", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// consumer stays a nil interface when AMQP is off, never a typed nil.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on polling", log.FieldError, err)
		} else {
			defer client.Close()
			consumer = client
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	w := worker.NewReportWorker(processor, consumer)
	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
