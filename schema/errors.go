package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the engine, the ledger backends and the outer surfaces.
var (
	// ErrPartitionNotFound means the country's override partition was never provisioned.
	ErrPartitionNotFound = errors.New("override partition not found")

	// ErrNotEditable means an override targeted a read-only row.
	ErrNotEditable = errors.New("row is not editable")

	// ErrUnknownKey means an override targeted a key outside the catalog.
	ErrUnknownKey = errors.New("unknown override key")

	// ErrNoData means no static row exists for the requested country or year.
	ErrNoData = errors.New("no static data")
)

// ConfigurationError reports a missing or invalid static input. It is fatal for the request.
type ConfigurationError struct {
	Table   string
	Country string
	Year    int
	Key     string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Table != "" {
		fmt.Fprintf(&b, " in %s", e.Table)
	}
	if e.Country != "" {
		fmt.Fprintf(&b, " for %s", e.Country)
		if e.Year != 0 {
			fmt.Fprintf(&b, "/%d", e.Year)
		}
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " [%s]", e.Key)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError wraps a failure of the override partition transport.
// It must never be read as "no overrides".
type TransportError struct {
	Op      string
	Country string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("override transport %s %s: %v", e.Op, e.Country, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransportError reports whether err carries a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
