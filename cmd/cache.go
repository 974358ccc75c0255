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

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend, err := contract.ParseBackend(viper.GetString("cache-backend"), "cache")
	if err != nil {
		return err
	}
	connStr := viper.GetString("cache-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Initialize caching with the loaded config (an in-memory ledger for cache commands)
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by the rating commands. This avoids loading the static
// tables and opening the ledger for simple cache operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the rating list snapshot cache",
	Long: `Manage the cache that stores computed rating lists.

A snapshot is keyed by the year, a digest of the static tables and the revision of the
override ledger, so edits and new tables never serve stale lists.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  sovrate cache status

  # Clear cache
  sovrate cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached rating lists",
	Long: `Delete all cached rating lists from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  sovrate cache clear

  # Clear MySQL cache (set connection string via env variable)
  SOVRATE_CACHE_BACKEND=mysql SOVRATE_CACHE_DB_CONNECT="..." sovrate cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		path := cfg.CacheDBConnect
		if path == "" {
			path = contract.GetCacheDBFilePath()
		}
		if err := iocache.ClearCache(cfg.CacheBackend, path, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the snapshot cache.

Displays:
- Backend type and connection status
- Total number of cached entries
- Last and oldest cache entry timestamps
- Cache database size

Examples:
  sovrate cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetSnapshotStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
