package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/middleware/ratelimit"
	"github.com/SHUNKURANARI/excel/internal/middleware/security"
	"github.com/SHUNKURANARI/excel/internal/middleware/trace"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// Reports is the report service the handlers drive.
type Reports interface {
	Generate(ctx context.Context, kind report.Kind, h core.Header) (report.Result, error)
	GenerateFromRecord(ctx context.Context, recordID string) (report.Result, error)
	Enqueue(ctx context.Context, kind report.Kind, h core.Header) (storage.Job, error)
	Job(ctx context.Context, id string) (storage.Job, error)
	JobFile(ctx context.Context, id string) (storage.Job, []byte, error)
}

// Options tune the server. Zero values pick the defaults.
type Options struct {
	Logger *log.Logger
	// Ready reports whether the backing stores are reachable.
	Ready func(ctx context.Context) error
	// RateLimitPerMinute bounds report generation requests per client.
	RateLimitPerMinute int
	// GenerateTimeout bounds one synchronous generation.
	GenerateTimeout time.Duration
	TrustedProxies  []string
}

const (
	defaultRateLimit       = 20
	defaultGenerateTimeout = 2 * time.Minute
)

type Server struct {
	http.Server
	reports         Reports
	ready           func(ctx context.Context) error
	logger          *log.Logger
	limiter         *ratelimit.Limiter
	detector        *security.Detector
	tracer          *trace.Middleware
	validate        *validator.Validate
	generateTimeout time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, reports Reports, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background())
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = defaultRateLimit
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = defaultGenerateTimeout
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		reports:  reports,
		ready:    opts.Ready,
		logger:   logger,
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: opts.RateLimitPerMinute,
			Window:            time.Minute,
		}),
		tracer:          trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		validate:        validator.New(),
		generateTimeout: opts.GenerateTimeout,
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      opts.GenerateTimeout + 30*time.Second,
		IdleTimeout:       time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)
	r.Route("/reports", func(r chi.Router) {
		r.With(limited).Post("/{kind}", s.handleGenerate)
		r.With(limited).Post("/{kind}/jobs", s.handleEnqueue)
		r.With(limited).Post("/records/{id}", s.handleGenerateFromRecord)
		r.Get("/jobs/{id}", s.handleJob)
		r.Get("/jobs/{id}/file", s.handleJobFile)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed", Message: "method not allowed"}).Write(w)
	})
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server. Only the
// first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, ErrorBody{
		Error:   "rate limit exceeded",
		Message: "リクエストが多すぎます。しばらくしてから再度お試しください。",
	}).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
