package contract

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

// NewLogger builds the process logger. JSON output stamps RFC3339 times so that log
// shippers can parse them without configuration.
func NewLogger(w io.Writer, level slog.Level, format schema.LogFormat) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == schema.JSONLog {
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
			}
			return a
		}
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoggerOrDefault returns l, or the process default when l is nil.
func LoggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
