package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SHUNKURANARI/excel/internal/cli"
	"github.com/SHUNKURANARI/excel/internal/config"
	"github.com/SHUNKURANARI/excel/internal/log"
)

var (
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "excelctl",
		Short: "Generate kintone work reports from the command line",
		Long: `excelctl builds invoice and payment workbooks from kintone work records,
mirrors records into the local SQLite store and manages its schema.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	level := cfg.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		level = flag
	}
	logger = cli.SetupLogger(level, cfg.LogFormat)
	return nil
}
