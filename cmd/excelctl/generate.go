package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SHUNKURANARI/excel/internal/cli"
	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/report"
)

func generateCmd() *cobra.Command {
	var (
		h        core.Header
		recordID string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "generate [invoice|payment]",
		Short: "Generate a report workbook",
		Long: `Generate an invoice or payment workbook for one party and period.

With --record the header is read from the header app and the kind is taken
from its out_category field; no positional argument is needed then.`,
		Example: `  excelctl generate invoice --customer "株式会社A" --start 2024-04-01 --end 2024-04-30
  excelctl generate payment --person yamada --person-name 山田太郎 --start 2024-04-01 --end 2024-04-30
  excelctl generate --record 42 --out ./reports`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := cli.NewApp(ctx, cfg, logger, cli.AppOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			var res report.Result
			switch {
			case recordID != "":
				res, err = app.Reports.GenerateFromRecord(ctx, recordID)
			case len(args) == 1:
				kind, perr := report.ParseKind(args[0])
				if perr != nil {
					return perr
				}
				res, err = app.Reports.Generate(ctx, kind, h)
			default:
				return fmt.Errorf("either a report kind or --record is required")
			}
			if err != nil {
				return userError(err)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			path := filepath.Join(outDir, filepath.Base(res.Filename))
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			logger.Info("Report written",
				log.FieldReportKind, res.Kind.String(),
				log.FieldRecordCount, res.Records,
				"path", path)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&h.Customer, "customer", "", "customer name (invoice)")
	f.StringVar(&h.Person, "person", "", "worker id (payment)")
	f.StringVar(&h.PersonName, "person-name", "", "worker display name (payment)")
	f.StringVar(&h.StartDate, "start", "", "first work date, YYYY-MM-DD")
	f.StringVar(&h.EndDate, "end", "", "last work date, YYYY-MM-DD")
	f.StringVar(&h.Category, "category", "", "restrict records to this category")
	f.StringVar(&h.ClaimDate, "claim-date", "", "claim date printed on the invoice")
	f.StringVar(&h.PaymentDeadline, "payment-deadline", "", "payment deadline, YYYY-MM-DD")
	f.StringVar(&recordID, "record", "", "header record id to generate from")
	f.StringVar(&outDir, "out", ".", "directory to write the workbook to")
	cmd.MarkFlagsMutuallyExclusive("record", "customer")
	cmd.MarkFlagsMutuallyExclusive("record", "person")

	return cmd
}

// userError replaces err with the message operators see in the UI when
// one exists.
func userError(err error) error {
	if msg := core.UserMessage(err); msg != core.GenericFailureMessage {
		return errors.New(msg)
	}
	return err
}
