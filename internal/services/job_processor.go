package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// JobProcessorConfig holds configuration for the job processor
type JobProcessorConfig struct {
	// PollInterval is how often to check for pending jobs (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of jobs to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before a job is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often finished jobs are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old finished jobs must be before purge (default: 24h)
	CleanupAge time.Duration
}

// DefaultJobProcessorConfig returns sensible defaults
func DefaultJobProcessorConfig() JobProcessorConfig {
	return JobProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// JobQueue is the job table as seen by the processor.
type JobQueue interface {
	GetJob(ctx context.Context, id string) (storage.Job, error)
	PendingJobs(ctx context.Context, limit, maxAttempts int) ([]storage.Job, error)
	ClaimJob(ctx context.Context, id string) (bool, error)
	CompleteJob(ctx context.Context, id, filename, outputPath string) error
	FailJob(ctx context.Context, id, message string, retryable bool) error
	ResetStaleJobs(ctx context.Context) (int64, error)
	DeleteFinishedJobs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Remover deletes stored output. DirSink implements it.
type Remover interface {
	Remove(path string) error
}

// JobProcessor generates queued reports. Jobs arrive through the poll loop
// or through Process, called by the AMQP worker.
type JobProcessor struct {
	jobs      JobQueue
	generator *report.Generator
	sink      Sink
	config    JobProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewJobProcessor(jobs JobQueue, generator *report.Generator, sink Sink, config JobProcessorConfig) *JobProcessor {
	return &JobProcessor{
		jobs:      jobs,
		generator: generator,
		sink:      sink,
		config:    config,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *JobProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("job processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Jobs left running by a crash go back to the queue
	if n, err := p.jobs.ResetStaleJobs(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale jobs",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset stale jobs",
			log.FieldComponent, log.ComponentWorker,
			"count", n)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Job processor started",
		log.FieldComponent, log.ComponentWorker,
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *JobProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Job processor stopped gracefully",
			log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Job processor stop timed out",
			log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *JobProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *JobProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessPending(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessPending(ctx)
		case <-cleanupTicker.C:
			p.Cleanup(ctx)
		}
	}
}

// ProcessPending runs one batch of pending jobs and returns how many were
// processed.
func (p *JobProcessor) ProcessPending(ctx context.Context) int {
	jobs, err := p.jobs.PendingJobs(ctx, p.config.BatchSize, p.config.MaxRetries)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending jobs",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing job batch",
		log.FieldComponent, log.ComponentWorker,
		"count", len(jobs))

	n := 0
	for _, job := range jobs {
		select {
		case <-p.stopCh:
			return n
		case <-ctx.Done():
			return n
		default:
		}
		if err := p.run(ctx, job); err != nil {
			slog.ErrorContext(ctx, "Job bookkeeping failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldJobID, job.ID,
				log.FieldError, err)
			continue
		}
		n++
	}
	return n
}

// Process runs one job by ID. Jobs that are not pending or were claimed
// by another worker are skipped. The returned error covers bookkeeping
// only; generation failures are recorded on the job.
func (p *JobProcessor) Process(ctx context.Context, id string) error {
	job, err := p.jobs.GetJob(ctx, id)
	if errors.Is(err, core.ErrMissingResource) {
		slog.WarnContext(ctx, "Dropping message for unknown job",
			log.FieldComponent, log.ComponentWorker,
			log.FieldJobID, id)
		return nil
	}
	if err != nil {
		return err
	}
	if job.Status != storage.JobPending {
		return nil
	}
	return p.run(ctx, job)
}

func (p *JobProcessor) run(ctx context.Context, job storage.Job) error {
	ok, err := p.jobs.ClaimJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	attempt := job.Attempts + 1

	path, filename, genErr := p.generate(ctx, job)
	if genErr != nil {
		retryable := isRetryable(genErr) && attempt < p.config.MaxRetries
		slog.WarnContext(ctx, "Report job failed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldJobID, job.ID,
			"attempt", attempt,
			"retryable", retryable,
			log.FieldError, genErr)
		// the job must leave running even when ctx was cancelled
		return p.jobs.FailJob(context.WithoutCancel(ctx), job.ID, failureMessage(genErr), retryable)
	}

	if err := p.jobs.CompleteJob(ctx, job.ID, filename, path); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Report job completed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldJobID, job.ID,
		log.FieldFilename, filename)
	return nil
}

func (p *JobProcessor) generate(ctx context.Context, job storage.Job) (path, filename string, err error) {
	kind, err := report.ParseKind(job.Kind)
	if err != nil {
		return "", "", &core.ValidationError{Message: err.Error()}
	}
	res, err := p.generator.Generate(ctx, kind, job.Header)
	if err != nil {
		return "", "", err
	}
	path, err = p.sink.Write(ctx, job.ID, res.Filename, res.Data)
	if err != nil {
		return "", "", err
	}
	return path, res.Filename, nil
}

// Cleanup purges finished jobs older than CleanupAge and their files.
func (p *JobProcessor) Cleanup(ctx context.Context) {
	paths, err := p.jobs.DeleteFinishedJobs(ctx, time.Now().Add(-p.config.CleanupAge))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to purge finished jobs",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return
	}
	rm, ok := p.sink.(Remover)
	if !ok {
		return
	}
	for _, path := range paths {
		if err := rm.Remove(path); err != nil {
			slog.WarnContext(ctx, "Failed to remove job output",
				log.FieldComponent, log.ComponentWorker,
				"path", path,
				log.FieldError, err)
		}
	}
}

// isRetryable reports whether another attempt could succeed. Bad input and
// missing templates or fields stay broken until someone edits the data.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrFieldAccess),
		errors.Is(err, core.ErrMissingResource):
		return false
	default:
		return true
	}
}

// failureMessage is stored on the job and shown to whoever polls it.
func failureMessage(err error) string {
	var fe *core.FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return core.UserMessage(err)
}
