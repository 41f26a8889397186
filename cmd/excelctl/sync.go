package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SHUNKURANARI/excel/internal/backend"
	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/kintone"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
	"github.com/SHUNKURANARI/excel/internal/services"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

func syncCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror kintone work records into SQLite",
		Long: `Copy the work records dated within a period from the kintone record app
into the local SQLite database, so the sqlite backend can generate reports
without reaching kintone.

The period defaults to the previous calendar month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, err := syncPeriod(from, to, time.Now())
			if err != nil {
				return err
			}

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			client, err := backend.KintoneClient(bcfg)
			if err != nil {
				return fmt.Errorf("create kintone client: %w", err)
			}

			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = repo.Close() }()

			svc := services.NewSyncService(kintone.NewStore(client), repo, cfg.RecordApp, report.InvoiceFields().Date)

			logger.Info("Starting record sync",
				log.FieldOperation, log.OpSync,
				"from", start.String(),
				"to", end.String(),
				"database", cfg.SQLiteDBPath)

			res, err := svc.Sync(ctx, start, end)
			if err != nil {
				return fmt.Errorf("sync records: %w", err)
			}

			logger.Info("Record sync complete",
				log.FieldOperation, log.OpSync,
				"months", res.Months,
				"fetched", res.Fetched,
				"stored", res.Stored)
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d records (%d months)\n", res.Stored, res.Months)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first work date, YYYY-MM-DD (default: first day of last month)")
	cmd.Flags().StringVar(&to, "to", "", "last work date, YYYY-MM-DD (default: last day of last month)")
	return cmd
}

// syncPeriod resolves the --from/--to flags against now.
func syncPeriod(from, to string, now time.Time) (core.Date, core.Date, error) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	prev := firstOfMonth.AddDate(0, -1, 0)
	start := core.NewDate(prev.Year(), int(prev.Month()), 1)
	last := firstOfMonth.AddDate(0, 0, -1)
	end := core.NewDate(last.Year(), int(last.Month()), last.Day())

	var err error
	if from != "" {
		if start, err = core.ParseDate(from); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if end, err = core.ParseDate(to); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if end.Before(start.Time) {
		return core.Date{}, core.Date{}, fmt.Errorf("--to %s is before --from %s", end, start)
	}
	return start, end, nil
}
