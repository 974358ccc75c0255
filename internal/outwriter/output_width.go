package outwriter

import (
	"os"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"golang.org/x/term"
)

// GetTerminalWidth returns the width override from config, else the detected
// terminal width, else a conservative 80 columns.
func GetTerminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		return 80
	}
	return detectedWidth
}

// GetMaxDescriptionWidth calculates the maximum width of the description column of the
// constituent table based on terminal width.
func GetMaxDescriptionWidth(cfg *contract.Config) int {
	// Name + Weight + Raw + Z-Score + Adj + Grade with borders/padding
	baseWidth := 90

	// Reserve generous space for table borders, separators, and padding
	baseWidth += 20

	available := GetTerminalWidth(cfg) - baseWidth
	if available < 15 {
		// Minimum reasonable description width
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}
