package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// PeriodSource lists every record of an app within a date range.
// kintone.Store implements it.
type PeriodSource interface {
	FetchPeriod(ctx context.Context, app int, dateField string, from, to core.Date) ([]core.RawRecord, error)
}

// SyncService copies work records from the source of truth into a local
// mirror, one calendar month per fetch.
type SyncService struct {
	source    PeriodSource
	target    sheets.RecordWriter
	app       int
	dateField string
	parallel  int
}

func NewSyncService(source PeriodSource, target sheets.RecordWriter, app int, dateField string) *SyncService {
	return &SyncService{
		source:    source,
		target:    target,
		app:       app,
		dateField: dateField,
		parallel:  2,
	}
}

// SyncResult summarises a sync run.
type SyncResult struct {
	Months  int
	Fetched int
	Stored  int
}

// Sync mirrors the records dated within [from, to]. Months are fetched
// concurrently and written in order; the first failure stops the run.
func (s *SyncService) Sync(ctx context.Context, from, to core.Date) (SyncResult, error) {
	if to.Before(from.Time) {
		return SyncResult{}, &core.ValidationError{Message: "終了日は開始日以降の日付を指定してください。"}
	}
	windows := monthWindows(from, to)
	fetched := make([][]core.RawRecord, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, w := range windows {
		g.Go(func() error {
			recs, err := s.source.FetchPeriod(gctx, s.app, s.dateField, w[0], w[1])
			if err != nil {
				return fmt.Errorf("fetch %s..%s: %w", w[0], w[1], err)
			}
			fetched[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Months: len(windows)}
	for _, recs := range fetched {
		n, err := s.target.UpsertRecords(ctx, s.app, recs)
		if err != nil {
			return res, fmt.Errorf("store records: %w", err)
		}
		res.Fetched += len(recs)
		res.Stored += n
	}

	slog.InfoContext(ctx, "Records synced",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpSync,
		log.FieldApp, s.app,
		log.FieldPeriodStart, from.String(),
		log.FieldPeriodEnd, to.String(),
		log.FieldRecordCount, res.Stored)
	return res, nil
}

// monthWindows splits [from, to] at month boundaries.
func monthWindows(from, to core.Date) [][2]core.Date {
	var out [][2]core.Date
	start := from
	for !start.After(to.Time) {
		end := core.NewDate(start.Year(), start.Month()+1, 0)
		if end.After(to.Time) {
			end = to
		}
		out = append(out, [2]core.Date{start, end})
		start = core.NewDate(end.Year(), end.Month(), end.Day()+1)
	}
	return out
}
