package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// jobResponse is the public view of a queued job. The header is left out:
// it carries bank details.
type jobResponse struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Status    storage.JobStatus `json:"status"`
	Attempts  int               `json:"attempts"`
	Error     string            `json:"error,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	FileURL   string            `json:"file_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newJobResponse(j storage.Job) jobResponse {
	resp := jobResponse{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status,
		Attempts:  j.Attempts,
		Error:     j.Error,
		Filename:  j.Filename,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == storage.JobDone {
		resp.FileURL = jobFileURL(j.ID)
	}
	return resp
}

func jobURL(id string) string     { return "/reports/jobs/" + id }
func jobFileURL(id string) string { return jobURL(id) + "/file" }

// handleGenerate builds a report synchronously and returns the workbook.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	h, ok := s.parseHeader(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	res, err := s.reports.Generate(ctx, kind, h)
	if err != nil {
		s.fail(w, r, log.OpGenerate, err)
		return
	}
	writeReport(w, res)
}

// handleGenerateFromRecord builds the report a header record asks for.
func (s *Server) handleGenerateFromRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.validate.Var(id, "required,numeric"); err != nil {
		BadRequestError("invalid record id").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	res, err := s.reports.GenerateFromRecord(ctx, id)
	if err != nil {
		s.fail(w, r, log.OpGenerate, err)
		return
	}
	writeReport(w, res)
}

// handleEnqueue queues a report job and answers 202 with its status URL.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	h, ok := s.parseHeader(w, r)
	if !ok {
		return
	}

	job, err := s.reports.Enqueue(r.Context(), kind, h)
	if err != nil {
		s.fail(w, r, log.OpEnqueue, err)
		return
	}
	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", jobURL(job.ID)).
		JSON(newJobResponse(job)).
		Write(w)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobIDParam(w, r)
	if !ok {
		return
	}
	job, err := s.reports.Job(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpFetch, err)
		return
	}
	NewResponse().JSON(newJobResponse(job)).Write(w)
}

func (s *Server) handleJobFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobIDParam(w, r)
	if !ok {
		return
	}
	job, data, err := s.reports.JobFile(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpDownload, err)
		return
	}
	NewResponse().Attachment(job.Filename, data).Write(w)
}

func writeReport(w http.ResponseWriter, res report.Result) {
	NewResponse().
		Header("X-Report-Kind", res.Kind.String()).
		Header("X-Report-Records", strconv.Itoa(res.Records)).
		Attachment(res.Filename, res.Data).
		Write(w)
}

func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (report.Kind, bool) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return "", false
	}
	return kind, true
}

func (s *Server) jobIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		BadRequestError("invalid job id").Write(w)
		return "", false
	}
	return id, true
}

func (s *Server) parseHeader(w http.ResponseWriter, r *http.Request) (core.Header, bool) {
	p := NewRequestBodyParser(w, r)
	h, err := p.Header()
	if err != nil {
		if p.TooLarge() {
			ErrorResponse(http.StatusRequestEntityTooLarge, ErrorBody{Error: "request body too large", Message: "request body too large"}).Write(w)
			return core.Header{}, false
		}
		s.logger.WarnContext(r.Context(), "Invalid request body", log.FieldError, err, log.FieldPath, r.URL.Path)
		BadRequestError("invalid request body").Write(w)
		return core.Header{}, false
	}
	return h, true
}

// fail logs err and writes its response. Server side failures are logged as
// errors with full detail, client mistakes as warnings.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	resp := ErrorFor(err)
	if errors.Is(err, context.Canceled) {
		s.logger.InfoContext(ctx, "Request cancelled", log.FieldOperation, op, log.FieldPath, r.URL.Path)
	} else if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Report request failed", err, log.ComponentHTTP, op, log.NewFields().WithClientIP(s.detector.ExtractClientIP(r)))
	} else {
		s.logger.WarnContext(ctx, "Report request rejected",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorType(err))
	}
	resp.Write(w)
}
