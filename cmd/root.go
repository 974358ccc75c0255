package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager = iocache.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "sovrate",
	Short:              "Rate sovereigns from a factor model and analyst overrides.",
	Long:               `Sovrate turns factor Z-scores into a model rating, layers analyst overrides on top, and reports the final letter rating.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".sovrate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("SOVRATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("data-dir", contract.DefaultDataDir)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("ledger-backend", schema.SQLiteBackend)
	viper.SetDefault("ledger-db-connect", "")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", schema.TextLog)
	viper.SetDefault("listen", contract.DefaultListen)
	viper.SetDefault("rate-limit", contract.DefaultRateLimit)
	viper.SetDefault("rate-burst", contract.DefaultRateBurst)
	viper.SetDefault("color", "yes")
}

// sharedSetup unmarshals config, runs validation, installs the logger and opens the stores.
func sharedSetup(_ context.Context, country string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.Country = country

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	slog.SetDefault(contract.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.LedgerBackend, cfg.LedgerDBConnect, cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	return nil
}

// countrySetup is a PreRunE for commands whose first positional argument is a country.
func countrySetup(_ *cobra.Command, args []string) error {
	country := ""
	if len(args) > 0 {
		country = args[0]
	}
	return sharedSetup(rootCtx, country)
}

// plainSetup is a PreRunE for commands without a country argument.
func plainSetup(_ *cobra.Command, _ []string) error {
	return sharedSetup(rootCtx, "")
}

// loadConfigFile reads the config file when one exists.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// parseWhatIf reads key=value flags into hypothetical adjustments.
func parseWhatIf(assignments []string) (map[string]float64, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(assignments))
	for _, a := range assignments {
		rec, err := core.ParseAssignment(a)
		if err != nil {
			return nil, fmt.Errorf("invalid --what-if: %w", err)
		}
		out[rec.ShortKey] = rec.Adjustment
	}
	return out, nil
}

// execute runs fn against the validated config and exits when it fails.
func execute(what string, fn core.ExecutorFunc) {
	if err := fn(rootCtx, cfg, storeManager); err != nil {
		contract.LogFatal(what, err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}
