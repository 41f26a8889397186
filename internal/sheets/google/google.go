// Package google reads work records from a Google spreadsheet: one tab of
// records with field codes in the first row, one tab of expense rows.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	ports "github.com/SHUNKURANARI/excel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config locates the spreadsheet and its credentials.
type Config struct {
	SpreadsheetID      string
	RecordsSheet       string
	ExpensesSheet      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
	expensesSheet string
}

var _ ports.RecordStore = (*Client)(nil)

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	c := &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		recordsSheet:  strings.TrimSpace(cfg.RecordsSheet),
		expensesSheet: strings.TrimSpace(cfg.ExpensesSheet),
	}
	if c.recordsSheet == "" {
		c.recordsSheet = "Records"
	}
	if c.expensesSheet == "" {
		c.expensesSheet = "Expenses"
	}
	return c
}

// newSheetsService reads service account credentials from inline JSON, a
// file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!A:ZZ", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, &core.TransportError{Op: "read " + sheet, Err: err}
	}
	return resp.Values, nil
}

// FetchAll reads both tabs and returns the records matching q. The app
// is ignored: the spreadsheet holds one app.
func (c *Client) FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	recordRows, err := c.readSheet(ctx, c.recordsSheet)
	if err != nil {
		return nil, err
	}
	expenseRows, err := c.readSheet(ctx, c.expensesSheet)
	if err != nil {
		return nil, err
	}
	records, err := parseRecords(recordRows, expenseRows)
	if err != nil {
		return nil, err
	}

	out := records[:0]
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	slog.InfoContext(ctx, "Fetched records from spreadsheet",
		log.FieldComponent, log.ComponentSheets,
		log.FieldRecordCount, len(out),
		"rows", len(records))
	return out, nil
}
