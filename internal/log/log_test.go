package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SHUNKURANARI/excel/internal/core"
)

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Format: FormatJSON, Component: component, Output: buf})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentApp).WithComponent(ComponentKintone).With(FieldApp, 24)

	logger.Info("Fetched records", FieldRecordCount, 3)

	entry := lastEntry(t, &buf)
	if entry[FieldComponent] != ComponentKintone {
		t.Errorf("component = %v, want %s", entry[FieldComponent], ComponentKintone)
	}
	if entry[FieldApp] != float64(24) || entry[FieldRecordCount] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("FromContext(background).Component() = %q", got.Component())
	}

	logger := Discard().WithComponent(ComponentHTTP)
	if got := FromContext(NewContext(context.Background(), logger)); got != logger {
		t.Error("FromContext did not return the stored logger")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentHTTP)

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := lastEntry(t, &buf)[FieldRequestID]; got != "req_42" {
		t.Errorf("request_id = %v, want req_42", got)
	}
}

func TestStructuredLogger_HTTPEndLevel(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(jsonLogger(&buf, ComponentHTTP))
		sl.LogHTTPEnd(context.Background(), httptest.NewRequest(http.MethodPost, "/reports/invoice", nil), tt.status, 12, "192.0.2.1")

		entry := lastEntry(t, &buf)
		if entry["level"] != tt.want {
			t.Errorf("status %d logged at %v, want %s", tt.status, entry["level"], tt.want)
		}
		if entry[FieldStatusCode] != float64(tt.status) {
			t.Errorf("status_code = %v", entry[FieldStatusCode])
		}
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("generate: %w", core.NoRecordsError("顧客名", "人工数_請求")), ErrorTypeValidation},
		{&core.MissingResourceError{Resource: "template", ID: "6"}, ErrorTypeMissingResource},
		{&core.FieldError{Record: "1", Field: "作業日"}, ErrorTypeFieldAccess},
		{&core.TransportError{Op: "records", Status: 500}, ErrorTypeTransport},
		{errors.New("boom"), ErrorTypeInternal},
	}
	for _, tt := range tests {
		if got := ErrorType(tt.err); got != tt.want {
			t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
