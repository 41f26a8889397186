package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

var (
	// ErrNotConfigured is returned for operations whose backing store was
	// not set up, e.g. queued jobs without a database.
	ErrNotConfigured = errors.New("not configured")

	// ErrJobNotReady is returned when a job's file is requested before the
	// job has finished.
	ErrJobNotReady = errors.New("job not finished")
)

// JobStore persists queued report jobs.
type JobStore interface {
	CreateJob(ctx context.Context, id, kind string, h core.Header) (storage.Job, error)
	GetJob(ctx context.Context, id string) (storage.Job, error)
}

// Publisher announces queued jobs to workers.
type Publisher interface {
	PublishReportJob(ctx context.Context, jobID, kind string) error
}

// ReportService is the entry point for report requests: immediate
// generation, generation from a header record and queued jobs.
type ReportService struct {
	generator *report.Generator
	headers   sheets.HeaderReader
	headerApp int
	jobs      JobStore
	publisher Publisher
	newID     func() string
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithHeaders enables generation from header records stored in app.
func WithHeaders(r sheets.HeaderReader, app int) ReportOption {
	return func(s *ReportService) {
		s.headers = r
		s.headerApp = app
	}
}

// WithJobs enables queued generation.
func WithJobs(store JobStore) ReportOption {
	return func(s *ReportService) { s.jobs = store }
}

// WithPublisher announces queued jobs. Without one, jobs wait for the
// poller.
func WithPublisher(p Publisher) ReportOption {
	return func(s *ReportService) { s.publisher = p }
}

func NewReportService(generator *report.Generator, opts ...ReportOption) *ReportService {
	s := &ReportService{generator: generator, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds a report synchronously.
func (s *ReportService) Generate(ctx context.Context, kind report.Kind, h core.Header) (report.Result, error) {
	return s.generator.Generate(ctx, kind, h)
}

// GenerateFromRecord loads the header record and builds the report its
// out_category names.
func (s *ReportService) GenerateFromRecord(ctx context.Context, recordID string) (report.Result, error) {
	if s.headers == nil || s.headerApp == 0 {
		return report.Result{}, fmt.Errorf("header records: %w", ErrNotConfigured)
	}
	h, err := s.headers.FetchHeader(ctx, s.headerApp, recordID)
	if err != nil {
		return report.Result{}, fmt.Errorf("fetch header: %w", err)
	}
	return s.generator.GenerateFromHeader(ctx, h)
}

// Enqueue validates the request, stores a pending job and announces it.
// A failed announcement is logged only: the poller picks the job up.
func (s *ReportService) Enqueue(ctx context.Context, kind report.Kind, h core.Header) (storage.Job, error) {
	if s.jobs == nil {
		return storage.Job{}, fmt.Errorf("report jobs: %w", ErrNotConfigured)
	}
	if _, err := s.generator.Check(kind, h); err != nil {
		return storage.Job{}, err
	}

	job, err := s.jobs.CreateJob(ctx, s.newID(), kind.String(), h)
	if err != nil {
		return storage.Job{}, fmt.Errorf("create job: %w", err)
	}
	slog.InfoContext(ctx, "Report job queued",
		log.FieldComponent, log.ComponentReport,
		log.FieldJobID, job.ID,
		log.FieldReportKind, kind)

	if s.publisher != nil {
		if err := s.publisher.PublishReportJob(ctx, job.ID, job.Kind); err != nil {
			slog.WarnContext(ctx, "Failed to publish report job",
				log.FieldComponent, log.ComponentReport,
				log.FieldJobID, job.ID,
				log.FieldError, err)
		}
	}
	return job, nil
}

// Job returns a queued job.
func (s *ReportService) Job(ctx context.Context, id string) (storage.Job, error) {
	if s.jobs == nil {
		return storage.Job{}, fmt.Errorf("report jobs: %w", ErrNotConfigured)
	}
	return s.jobs.GetJob(ctx, id)
}

// JobFile returns a finished job and its workbook.
func (s *ReportService) JobFile(ctx context.Context, id string) (storage.Job, []byte, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		return storage.Job{}, nil, err
	}
	if job.Status != storage.JobDone {
		return job, nil, fmt.Errorf("job %s is %s: %w", id, job.Status, ErrJobNotReady)
	}
	data, err := os.ReadFile(job.OutputPath)
	if os.IsNotExist(err) {
		return job, nil, &core.MissingResourceError{Resource: "job output", ID: id}
	}
	if err != nil {
		return job, nil, fmt.Errorf("read job output: %w", err)
	}
	return job, data, nil
}
