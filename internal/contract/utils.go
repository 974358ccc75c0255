package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/kaimin86/credit-rating-deploy/core/algo"
)

// Grade band labels.
const (
	InvestmentValue  = "Investment"
	SpeculativeValue = "Speculative"
	DistressedValue  = "Distressed"
	DefaultValue     = "Default"
)

// Color variables for console output.
var (
	InvestmentColor  = color.New(color.FgGreen, color.Bold)
	SpeculativeColor = color.New(color.FgYellow)
	DistressedColor  = color.New(color.FgMagenta, color.Bold)
	DefaultColor     = color.New(color.FgRed, color.Bold)

	// AdjustmentColor marks analyst-entered figures.
	AdjustmentColor = color.New(color.FgBlue, color.Bold)
	HeaderColor     = color.New(color.FgHiWhite, color.Bold)
)

// GetPlainLabel returns the grade band of a rating. This is the core logic used for
// CSV, JSON, and table printing.
func GetPlainLabel(rating float64) string {
	switch n := algo.Notch(rating); {
	case n >= 13:
		return InvestmentValue
	case n >= 7:
		return SpeculativeValue
	case n >= 2:
		return DistressedValue
	default:
		return DefaultValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(rating float64) string {
	return ColorizeByGrade(GetPlainLabel(rating), rating)
}

// ColorizeByGrade colors text with the color of rating's grade band.
func ColorizeByGrade(text string, rating float64) string {
	switch GetPlainLabel(rating) {
	case InvestmentValue:
		return InvestmentColor.Sprint(text)
	case SpeculativeValue:
		return SpeculativeColor.Sprint(text)
	case DistressedValue:
		return DistressedColor.Sprint(text)
	default:
		return DefaultColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetLedgerDBFilePath returns the path to the SQLite DB file for the override ledger.
func GetLedgerDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".sovrate_ledger.db"
	}
	return filepath.Join(homeDir, ".sovrate_ledger.db")
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the snapshot cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".sovrate_cache.db"
	}
	return filepath.Join(homeDir, ".sovrate_cache.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so that at least one character of content survives.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
