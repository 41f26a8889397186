package adapters

import (
	"context"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/sheets/memory"
)

// RecordsAdapter pairs any record store, such as the Google Sheets client,
// with seed-file templates and headers.
type RecordsAdapter struct {
	records sheets.RecordStore
	files   *memory.Store
}

func NewRecordsAdapter(records sheets.RecordStore, files *memory.Store) *RecordsAdapter {
	return &RecordsAdapter{records: records, files: files}
}

// FetchAll implements sheets.RecordStore
func (a *RecordsAdapter) FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error) {
	return a.records.FetchAll(ctx, q)
}

// FetchTemplate implements sheets.TemplateStore
func (a *RecordsAdapter) FetchTemplate(ctx context.Context, app int, recordNumber string) ([]byte, error) {
	return a.files.FetchTemplate(ctx, app, recordNumber)
}

// FetchHeader implements sheets.HeaderReader
func (a *RecordsAdapter) FetchHeader(ctx context.Context, app int, recordID string) (core.Header, error) {
	return a.files.FetchHeader(ctx, app, recordID)
}
