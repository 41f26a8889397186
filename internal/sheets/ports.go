package sheets

import (
	"context"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordStore returns every record matching a query. Pagination is the
	// store's concern; results are never truncated.
	RecordStore interface {
		FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error)
	}

	// TemplateStore returns the spreadsheet attached to a template record.
	TemplateStore interface {
		FetchTemplate(ctx context.Context, app int, recordNumber string) ([]byte, error)
	}

	// HeaderReader loads a report header record by ID.
	HeaderReader interface {
		FetchHeader(ctx context.Context, app int, recordID string) (core.Header, error)
	}

	// RecordWriter stores raw records in a local mirror.
	RecordWriter interface {
		UpsertRecords(ctx context.Context, app int, records []core.RawRecord) (int, error)
	}

	// WorkbookOpener decodes a template into a mutable workbook.
	WorkbookOpener interface {
		Open(data []byte) (Workbook, error)
	}

	// Workbook is a spreadsheet document being assembled.
	Workbook interface {
		// Sheet returns the named sheet, creating it when missing. created
		// is true when the sheet was created or holds no cells.
		Sheet(name string) (s Sheet, created bool, err error)
		SheetNames() []string
		// Bytes serializes the workbook.
		Bytes() ([]byte, error)
	}

	// Sheet addresses cells by A1 name. Values and formulas are stored
	// apart from styles, so styling never replaces cell content.
	Sheet interface {
		Name() string
		// SetValue writes a literal. Supported values: string, int,
		// float64, decimal.Decimal, core.Date, time.Time and nil.
		SetValue(cell string, v any) error
		// SetFormula writes formula text without a leading "=".
		SetFormula(cell string, formula string) error
		// Style overlays the non-zero fields of s on the cell's style.
		Style(cell string, s Style) error
		// Merge merges from:to. Merging a range again is a no-op.
		Merge(from, to string) error
		SetColumnWidth(col string, width float64) error
		// NextRow is the first row after the last row holding a value or
		// formula, 1 for an empty sheet.
		NextRow() (int, error)
	}
)
