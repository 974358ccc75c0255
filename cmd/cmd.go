// Package cmd defines the command-line interface for sovrate.
package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(constituentsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(overridesCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the overrides subcommands to the parent overrides command
	overridesCmd.AddCommand(overridesGetCmd)
	overridesCmd.AddCommand(overridesSetCmd)
	overridesCmd.AddCommand(overridesClearCmd)
	overridesCmd.AddCommand(overridesImportCmd)
	overridesCmd.AddCommand(overridesExportCmd)
	overridesCmd.AddCommand(overridesProvisionCmd)

	// Add the ledger subcommands to the parent ledger command
	ledgerCmd.AddCommand(ledgerStatusCmd)
	ledgerCmd.AddCommand(ledgerClearCmd)
	ledgerCmd.AddCommand(ledgerMigrateCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("data-dir", contract.DefaultDataDir, "Directory holding the static rating tables")
	rootCmd.PersistentFlags().IntP("year", "y", 0, "Rating year (0 = latest year in the static tables)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("ledger-backend", string(schema.SQLiteBackend), "Override ledger backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("ledger-db-connect", "", "Database connection string for the override ledger")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Snapshot cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for the snapshot cache")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "How long a rating list snapshot stays fresh")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", string(schema.TextLog), "Log format: text or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// The what-if flag is read straight from cobra so values keep their commas
	rateCmd.Flags().StringArray("what-if", nil, "Hypothetical adjustment as key=value (repeatable)")

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address the HTTP server listens on")
	serveCmd.Flags().Float64("rate-limit", contract.DefaultRateLimit, "Requests per second allowed per client IP (0 = unlimited)")
	serveCmd.Flags().Int("rate-burst", contract.DefaultRateBurst, "Requests a client may send at once before the rate limit applies")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of ledgerMigrateCmd to Viper
	ledgerMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(ledgerMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding ledger migrate flags", err)
	}
}
