package cmd

import (
	"fmt"
	"os"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ledgerConfig reads and checks the ledger backend settings.
func ledgerConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend, err := contract.ParseBackend(viper.GetString("ledger-backend"), "ledger")
	if err != nil {
		return "", "", err
	}
	connStr := viper.GetString("ledger-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// ledgerSetup loads minimal configuration needed for ledger operations.
// This is used by commands that need ledger access without full shared setup.
func ledgerSetup() error {
	backend, connStr, err := ledgerConfig()
	if err != nil {
		return err
	}

	// Initialize the ledger only (no snapshot caching for ledger commands)
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize override ledger: %w", err)
	}

	cfg.LedgerBackend = backend
	cfg.LedgerDBConnect = connStr
	return nil
}

// ledgerSetupWrapper wraps ledgerSetup to provide PreRunE for ledger commands.
func ledgerSetupWrapper(_ *cobra.Command, _ []string) error {
	return ledgerSetup()
}

// ledgerMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func ledgerMigrateSetup() error {
	backend, connStr, err := ledgerConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetLedgerDBFilePath()
	}

	cfg.LedgerBackend = backend
	cfg.LedgerDBConnect = connStr
	return nil
}

// ledgerMigrateSetupWrapper wraps ledgerMigrateSetup to provide PreRunE for migrate command.
func ledgerMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return ledgerMigrateSetup()
}

// ledgerCmd focused on override ledger management.
//
// Note: Ledger subcommands use minimal initialization (ledgerSetup) instead of the full
// sharedSetup used by the rating commands. This avoids loading the static tables for
// simple storage operations.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the override ledger storage",
	Long: `Manage the database that stores analyst overrides.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  status  - Show ledger statistics and connection info
  migrate - Run database schema migrations
  clear   - Remove every partition

Examples:
  # Check ledger status
  sovrate ledger status

  # Use PostgreSQL (set connection string via env variable)
  SOVRATE_LEDGER_BACKEND=postgresql SOVRATE_LEDGER_DB_CONNECT="host=... dbname=..." sovrate ledger status`,
}

// ledgerStatusCmd shows ledger status.
var ledgerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display ledger statistics and connection details",
	Long: `Show the backend, the number of partitions and rows, the last write and the
database size of the override ledger.

Examples:
  sovrate ledger status`,
	PreRunE: ledgerSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetLedger().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get ledger status", err)
		}
		iocache.PrintLedgerStatus(os.Stdout, status)
	},
}

// ledgerClearCmd removes every partition.
var ledgerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every override partition",
	Long: `Delete every partition and override row from the configured backend.

WARNING: This action cannot be undone. Consider exporting first.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the ledger tables

Examples:
  sovrate overrides export --output-file backup.csv
  sovrate ledger clear`,
	PreRunE: ledgerMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearLedger(cfg.LedgerBackend, cfg.LedgerDBConnect, cfg.LedgerDBConnect); err != nil {
			contract.LogFatal("Failed to clear override ledger", err)
		}
		fmt.Println("Override ledger cleared successfully.")
	},
}

// ledgerMigrateCmd runs database migrations for the ledger.
var ledgerMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the override ledger.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  sovrate ledger migrate

  # Rollback to initial state
  sovrate ledger migrate --target-version 0`,
	PreRunE: ledgerMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateLedger(os.Stdout, cfg.LedgerBackend, cfg.LedgerDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
