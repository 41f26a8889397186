package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SHUNKURANARI/excel/internal/amqp"
	"github.com/SHUNKURANARI/excel/internal/log"
)

// Processor runs queued report jobs. services.JobProcessor implements it.
type Processor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Process(ctx context.Context, id string) error
}

// Consumer delivers job announcements. amqp.Client implements it.
type Consumer interface {
	ConsumeReportJobs(ctx context.Context, handler func(context.Context, *amqp.ReportJobMessage) error) error
}

const maxReconnectDelay = 30 * time.Second

// ReportWorker generates queued reports. Announced jobs run as soon as
// their message arrives; the poller catches anything the broker lost.
type ReportWorker struct {
	processor   Processor
	consumer    Consumer
	stopTimeout time.Duration
}

// NewReportWorker creates a worker. consumer may be nil, in which case jobs
// are only picked up by polling.
func NewReportWorker(processor Processor, consumer Consumer) *ReportWorker {
	return &ReportWorker{
		processor:   processor,
		consumer:    consumer,
		stopTimeout: 30 * time.Second,
	}
}

// HandleReportJob processes a single job message from AMQP. An error makes
// the broker redeliver the message.
func (w *ReportWorker) HandleReportJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	slog.InfoContext(ctx, "Processing report job message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldJobID, msg.JobID,
		log.FieldReportKind, msg.Kind)

	if err := w.processor.Process(ctx, msg.JobID); err != nil {
		return fmt.Errorf("process job %s: %w", msg.JobID, err)
	}
	return nil
}

// Run starts the poller and the consumer and blocks until ctx is done.
func (w *ReportWorker) Run(ctx context.Context) error {
	if err := w.processor.Start(ctx); err != nil {
		return fmt.Errorf("start job processor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error { return w.consume(gctx) })
	} else {
		slog.InfoContext(ctx, "No AMQP consumer configured, relying on polling",
			log.FieldComponent, log.ComponentWorker)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), w.stopTimeout)
		defer cancel()
		return w.processor.Stop(stopCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume keeps a consumer attached, reconnecting with backoff when the
// broker goes away.
func (w *ReportWorker) consume(ctx context.Context) error {
	delay := time.Second
	for {
		err := w.consumer.ConsumeReportJobs(ctx, w.HandleReportJob)
		if ctx.Err() != nil {
			return nil
		}
		slog.WarnContext(ctx, "Message consumption stopped, reconnecting",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err,
			"delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}
