package kintone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// AttachmentField holds a template record's spreadsheet.
const AttachmentField = "添付ファイル"

// RecordNumberField identifies template records.
const RecordNumberField = "レコード番号"

var (
	_ sheets.RecordStore   = (*Store)(nil)
	_ sheets.TemplateStore = (*Store)(nil)
	_ sheets.HeaderReader  = (*Store)(nil)
)

// Store serves work records, templates and headers from kintone.
type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// FetchAll returns every record matching q.
func (s *Store) FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error) {
	return s.fetch(ctx, q.App, q.Condition(), q.Fields)
}

// FetchPeriod returns every record of app whose dateField lies in
// [from, to], with all fields. It feeds the local mirror.
func (s *Store) FetchPeriod(ctx context.Context, app int, dateField string, from, to core.Date) ([]core.RawRecord, error) {
	cond := fmt.Sprintf("%s >= %q and %s <= %q", dateField, from.String(), dateField, to.String())
	return s.fetch(ctx, app, cond, nil)
}

func (s *Store) fetch(ctx context.Context, app int, condition string, fields []string) ([]core.RawRecord, error) {
	recs, err := s.client.GetAllRecords(ctx, app, condition, fields)
	if err != nil {
		return nil, err
	}
	out := make([]core.RawRecord, 0, len(recs))
	for _, r := range recs {
		raw, err := r.Raw()
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	slog.InfoContext(ctx, "Fetched records",
		log.FieldComponent, log.ComponentKintone,
		log.FieldApp, app,
		log.FieldRecordCount, len(out))
	return out, nil
}

// FetchTemplate downloads the first attachment of the template record.
func (s *Store) FetchTemplate(ctx context.Context, app int, recordNumber string) ([]byte, error) {
	q := fmt.Sprintf("%s = %q", RecordNumberField, recordNumber)
	recs, err := s.client.GetRecords(ctx, app, q, []string{RecordNumberField, AttachmentField})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &core.MissingResourceError{Resource: "template record", ID: recordNumber}
	}
	files := recs[0].Files(AttachmentField)
	if len(files) == 0 || files[0].FileKey == "" {
		return nil, &core.MissingResourceError{Resource: "template attachment", ID: recordNumber}
	}
	data, err := s.client.DownloadFile(ctx, files[0].FileKey)
	if err != nil {
		return nil, fmt.Errorf("template download failed: %w", err)
	}
	slog.DebugContext(ctx, "Template downloaded",
		log.FieldComponent, log.ComponentTemplate,
		log.FieldFilename, files[0].Name,
		log.FieldBytes, len(data))
	return data, nil
}

// FetchHeader reads a report header record.
func (s *Store) FetchHeader(ctx context.Context, app int, recordID string) (core.Header, error) {
	rec, err := s.client.GetRecord(ctx, app, recordID)
	if err != nil {
		var te *core.TransportError
		if errors.As(err, &te) && te.Status == http.StatusNotFound {
			return core.Header{}, &core.MissingResourceError{Resource: "header record", ID: recordID}
		}
		return core.Header{}, err
	}
	raw, err := rec.Raw()
	if err != nil {
		return core.Header{}, err
	}
	return core.HeaderFromRaw(raw), nil
}
