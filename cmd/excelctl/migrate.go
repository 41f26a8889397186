package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SHUNKURANARI/excel/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the SQLite schema (job queue and record mirror) to
the latest version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			dbPath := cfg.SQLiteDBPath

			if !status {
				if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
					return fmt.Errorf("create database directory: %w", err)
				}
				logger.Info("Starting database migration", "database", dbPath)
				if err := storage.RunMigrations(dbPath); err != nil {
					return err
				}
			}

			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
				return fmt.Errorf("database %s is in a dirty migration state", dbPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "show the current schema version without applying migrations")
	return cmd
}
