// Package adapters combines a record source with the local file store so
// every backend serves records, templates and headers.
package adapters

import (
	"context"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/sheets/memory"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

var (
	_ sheets.RecordStore   = (*SQLiteAdapter)(nil)
	_ sheets.RecordWriter  = (*SQLiteAdapter)(nil)
	_ sheets.TemplateStore = (*SQLiteAdapter)(nil)
	_ sheets.HeaderReader  = (*SQLiteAdapter)(nil)
)

// SQLiteAdapter serves records from the SQLite mirror and templates and
// headers from seed files.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	files   *memory.Store
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, files *memory.Store) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		files:   files,
	}
}

// FetchAll implements sheets.RecordStore
func (a *SQLiteAdapter) FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error) {
	return a.storage.FetchAll(ctx, q)
}

// UpsertRecords implements sheets.RecordWriter
func (a *SQLiteAdapter) UpsertRecords(ctx context.Context, app int, records []core.RawRecord) (int, error) {
	return a.storage.UpsertRecords(ctx, app, records)
}

// FetchTemplate implements sheets.TemplateStore
func (a *SQLiteAdapter) FetchTemplate(ctx context.Context, app int, recordNumber string) ([]byte, error) {
	return a.files.FetchTemplate(ctx, app, recordNumber)
}

// FetchHeader implements sheets.HeaderReader
func (a *SQLiteAdapter) FetchHeader(ctx context.Context, app int, recordID string) (core.Header, error) {
	return a.files.FetchHeader(ctx, app, recordID)
}
