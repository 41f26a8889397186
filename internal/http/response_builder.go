// Package http provides the report API server and its handlers.
//
// This file implements a small builder for JSON and file responses and the
// mapping from service errors to HTTP statuses.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the JSON response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"encode response"}`)
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = data
	return b
}

// Attachment sets an xlsx download body.
func (b *ResponseBuilder) Attachment(filename string, data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = xlsxContentType
	b.headers["Content-Disposition"] = contentDisposition(filename)
	b.headers["Content-Length"] = strconv.Itoa(len(data))
	b.body = data
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// contentDisposition names the download. Report filenames are Japanese, so
// the RFC 5987 form carries the real name and the plain form an ASCII
// fallback.
func contentDisposition(filename string) string {
	return `attachment; filename="report.xlsx"; filename*=UTF-8''` + url.PathEscape(filename)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Hints   []string `json:"hints,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, body ErrorBody) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(body)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, ErrorBody{Error: message, Message: message})
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, ErrorBody{Error: message, Message: message})
}

// ErrorFor maps a service error to its response. Validation failures carry
// their hints, everything else shows the generic message.
func ErrorFor(err error) *ResponseBuilder {
	status, body := classify(err)
	return ErrorResponse(status, body)
}

func classify(err error) (int, ErrorBody) {
	generic := func(code string) ErrorBody {
		return ErrorBody{Error: code, Message: core.GenericFailureMessage}
	}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorBody{Error: verr.Message, Message: verr.UserMessage(), Hints: verr.Hints}
	case errors.Is(err, core.ErrMissingResource):
		return http.StatusNotFound, ErrorBody{Error: err.Error(), Message: core.GenericFailureMessage}
	case errors.Is(err, services.ErrJobNotReady):
		return http.StatusConflict, ErrorBody{Error: "job not finished", Message: "帳票を作成中です。しばらくしてから再度お試しください。"}
	case errors.Is(err, services.ErrNotConfigured):
		return http.StatusServiceUnavailable, generic("not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, generic("timeout")
	case errors.Is(err, core.ErrTransport):
		return http.StatusBadGateway, generic("upstream failure")
	default:
		return http.StatusInternalServerError, generic("internal error")
	}
}
