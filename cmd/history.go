package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/internal/outwriter"
	"github.com/huangsam/folio/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendConfig reads the history backend, treating an empty value as NoneBackend.
func historyBackendConfig() (schema.DatabaseBackend, string, error) {
	backend := schema.NoneBackend
	if raw := viper.GetString("history-backend"); raw != "" {
		backend = schema.DatabaseBackend(raw)
	}
	connStr := viper.GetString("history-db-connect")

	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup(cmd *cobra.Command, args []string) error {
	if err := configSetup(cmd, args); err != nil {
		return err
	}

	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// Initialize the history store only (no stats caching for history commands)
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on fetch history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage fetch history tracking and exports",
	Long: `Manage the fetch history used to audit how stats requests were served.

When enabled, folio records every stats request, storing:
- Identity and start time
- Duration
- Outcome (live, cached, stale, failed) and whether GitHub rate limited the refresh
- The error message of failed requests

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show fetch history statistics
  list    - Print recorded fetch runs
  export  - Export data to Parquet for analytics
  clear   - Remove all history data
  migrate - Run database schema migrations

Examples:
  # Enable history tracking for stats
  folio stats --history-backend sqlite

  # Check history status
  folio history status --history-backend sqlite

  # Export to Parquet
  folio history export --history-backend sqlite --output-file runs.parquet`,
}

// historyClearCmd clears all history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all fetch history data",
	Long: `Delete all recorded fetch runs from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

Examples:
  # Clear SQLite history
  folio history clear --history-backend sqlite`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := sqlitePath(cfg.HistoryDBConnect, contract.GetHistoryDBFilePath)
		if err := iocache.ClearHistory(cfg.HistoryBackend, path, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display fetch history statistics",
	Long: `Show information about the fetch history store.

Displays:
- Backend type and connection status
- Total number of recorded runs
- Last and oldest run timestamps
- Number of runs per outcome

Examples:
  folio history status --history-backend sqlite`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyListCmd prints recorded fetch runs.
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print recorded fetch runs",
	Long: `Print every recorded fetch run in run order as a table, CSV or JSON.

Examples:
  folio history list --history-backend sqlite
  folio history list --history-backend sqlite --output csv --output-file runs.csv`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := iocache.Manager.GetHistoryStore().ListFetches()
		if err != nil {
			contract.LogFatal("Failed to list fetch runs", err)
		}
		if err := outwriter.NewOutWriter().WriteFetchRuns(runs, cfg); err != nil {
			contract.LogFatal("Failed to write fetch runs", err)
		}
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export fetch history to a Parquet file",
	Long: `Export all recorded fetch runs to a Parquet file for analytics tools.

The .parquet extension is appended when missing.

Examples:
  folio history export --history-backend sqlite --output-file runs.parquet`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		_, err := iocache.ExportHistory(iocache.Manager.GetHistoryStore(), cfg.OutputFile, os.Stdout)
		if errors.Is(err, iocache.ErrNoHistory) {
			fmt.Println("No fetch history found. Run folio stats with --history-backend to record some.")
			return
		}
		if err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database schema migrations.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run fetch history schema migrations",
	Long: `Apply or roll back the embedded schema migrations of the fetch history store.

Examples:
  # Migrate to the latest version
  folio history migrate --history-backend sqlite

  # Roll back every migration
  folio history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to migrate history", err)
		}
	},
}
