package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/services"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", "/reports/jobs/1").
		JSON(map[string]string{"status": "pending"}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/reports/jobs/1" {
		t.Errorf("Location = %q", got)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"status":"pending"}` {
		t.Errorf("Body = %q", body)
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().Attachment("（請求書）A社_2024-04-01.xlsx", []byte("xlsx")).Write(w)

	if got := w.Header().Get("Content-Type"); got != xlsxContentType {
		t.Errorf("Content-Type = %q", got)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="report.xlsx"; filename*=UTF-8''`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if strings.ContainsAny(cd[strings.Index(cd, "''")+2:], "（）") {
		t.Errorf("filename not escaped: %q", cd)
	}
	if got := w.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q", got)
	}
	if w.Body.String() != "xlsx" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantHints   int
	}{
		{
			name:        "validation",
			err:         fmt.Errorf("generate: %w", core.NoRecordsError("顧客名", "人工数_請求")),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "指定された期間内に該当するデータがありません。",
			wantHints:   4,
		},
		{
			name:        "missing template",
			err:         &core.MissingResourceError{Resource: "template", ID: "6"},
			wantStatus:  http.StatusNotFound,
			wantMessage: core.GenericFailureMessage,
		},
		{
			name:        "field access",
			err:         &core.FieldError{Record: "1", Field: "現場名"},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: core.GenericFailureMessage,
		},
		{
			name:        "transport",
			err:         &core.TransportError{Op: "records", Status: 502},
			wantStatus:  http.StatusBadGateway,
			wantMessage: core.GenericFailureMessage,
		},
		{
			name:       "job not ready",
			err:        fmt.Errorf("job x is running: %w", services.ErrJobNotReady),
			wantStatus: http.StatusConflict,
		},
		{
			name:        "not configured",
			err:         fmt.Errorf("report jobs: %w", services.ErrNotConfigured),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: core.GenericFailureMessage,
		},
		{
			name:        "deadline",
			err:         fmt.Errorf("fetch records: %w", context.DeadlineExceeded),
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: core.GenericFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFor(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if tt.wantMessage != "" && !strings.HasPrefix(body.Message, tt.wantMessage) {
				t.Errorf("message = %q, want prefix %q", body.Message, tt.wantMessage)
			}
			if len(body.Hints) != tt.wantHints {
				t.Errorf("hints = %v, want %d", body.Hints, tt.wantHints)
			}
		})
	}
}

func TestErrorFor_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFor(&core.FieldError{Record: "7", Field: "口座番号"}).Write(w)
	if strings.Contains(w.Body.String(), "口座番号") {
		t.Errorf("body leaks field detail: %s", w.Body.String())
	}
}
