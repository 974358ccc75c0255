package contract

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

// Default values for configuration.
const (
	DefaultDataDir   = "data"
	DefaultPrecision = 2
	MaxPrecision     = 6
	DefaultCacheTTL  = 24 * time.Hour
	DefaultListen    = ":8080"
	DefaultLogLevel  = "warn"
	DefaultRateLimit = 20.0
	DefaultRateBurst = 40
)

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	DataDir    string
	Country    string
	Year       int // 0 means the latest year available for the country
	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	LedgerBackend   schema.DatabaseBackend
	LedgerDBConnect string // Please use env var as this is plaintext

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	LogLevel  slog.Level
	LogFormat schema.LogFormat

	Listen    string
	RateLimit float64 // Requests per second per client on the HTTP API (0 = unlimited)
	RateBurst int

	// WhatIf holds hypothetical adjustments applied for one request only.
	WhatIf map[string]float64
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	Country string

	// --- Fields from rootCmd.PersistentFlags() ---
	DataDir         string `mapstructure:"data-dir"`
	Year            int    `mapstructure:"year"`
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Precision       int    `mapstructure:"precision"`
	Width           int    `mapstructure:"width"`
	Color           string `mapstructure:"color"`
	LedgerBackend   string `mapstructure:"ledger-backend"`
	LedgerDBConnect string `mapstructure:"ledger-db-connect"`
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	CacheTTL        string `mapstructure:"cache-ttl"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`

	// --- Fields from serveCmd.Flags() ---
	Listen    string  `mapstructure:"listen"`
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.WhatIf != nil {
		clone.WhatIf = maps.Clone(c.WhatIf)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateDataDir(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := validateLogging(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", backend)
	}
	return nil
}

// ParseBackend lower-cases and checks a backend name.
func ParseBackend(raw string, what string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid %s backend '%s'. must be sqlite, mysql, postgresql, none", what, raw)
	}
	return backend, nil
}

// validateBackendConfigs validates ledger and cache backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Ledger Backend Validation ---
	backend, err := ParseBackend(input.LedgerBackend, "ledger")
	if err != nil {
		return err
	}
	cfg.LedgerBackend = backend
	cfg.LedgerDBConnect = input.LedgerDBConnect
	if err := ValidateDatabaseConnectionString(cfg.LedgerBackend, cfg.LedgerDBConnect); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	// --- Cache Backend Validation ---
	backend, err = ParseBackend(input.CacheBackend, "cache")
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// The cache clear command deletes the SQLite file, so it must never be the ledger's.
	if cfg.LedgerBackend == schema.SQLiteBackend && cfg.CacheBackend == schema.SQLiteBackend {
		ledgerPath := cfg.LedgerDBConnect
		if ledgerPath == "" {
			ledgerPath = GetLedgerDBFilePath()
		}
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		if ledgerPath == cachePath && ledgerPath != ":memory:" {
			return fmt.Errorf("ledger and cache must use different SQLite database files. Both resolve to %q", ledgerPath)
		}
	}

	ttl := DefaultCacheTTL
	if input.CacheTTL != "" {
		parsed, err := time.ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache-ttl %q: %w", input.CacheTTL, err)
		}
		if parsed < 0 {
			return fmt.Errorf("cache-ttl must be >= 0, got %s", parsed)
		}
		ttl = parsed
	}
	cfg.CacheTTL = ttl

	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Country = strings.TrimSpace(input.Country)
	cfg.OutputFile = input.OutputFile
	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	if input.RateLimit < 0 {
		return fmt.Errorf("rate-limit must be >= 0, got %g", input.RateLimit)
	}
	if input.RateLimit > 0 && input.RateBurst < 1 {
		return fmt.Errorf("rate-burst must be >= 1 when rate-limit is set, got %d", input.RateBurst)
	}
	cfg.RateLimit = input.RateLimit
	cfg.RateBurst = input.RateBurst

	if input.Year < 0 {
		return fmt.Errorf("year must be >= 0, got %d", input.Year)
	}
	cfg.Year = input.Year

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d, got %d", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	if input.Width < 0 {
		return fmt.Errorf("width must be >= 0, got %d", input.Width)
	}
	cfg.Width = input.Width

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}

	color := input.Color
	if color == "" {
		color = "yes"
	}
	useColors, err := ParseBoolString(color)
	if err != nil {
		return fmt.Errorf("invalid color value: %w", err)
	}
	cfg.UseColors = useColors

	return nil
}

// validateDataDir checks that the static data directory exists.
func validateDataDir(cfg *Config, input *ConfigRawInput) error {
	dir := input.DataDir
	if dir == "" {
		dir = DefaultDataDir
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("data directory %q is not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %q is not a directory", dir)
	}
	cfg.DataDir = dir
	return nil
}

// validateLogging parses the log level and format.
func validateLogging(cfg *Config, input *ConfigRawInput) error {
	raw := input.LogLevel
	if raw == "" {
		raw = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fmt.Errorf("invalid log-level '%s'. must be debug, info, warn, error", input.LogLevel)
	}
	cfg.LogLevel = level

	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = schema.TextLog
	}
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log-format '%s'. must be text or json", input.LogFormat)
	}
	return nil
}
