package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the ledger and the snapshot cache.
	DatabaseBackend string

	// NodeKind classifies a row of a rendered rating table.
	NodeKind string

	// OverridesStatus reports how the override layer behaved for one request.
	OverridesStatus string

	// LogFormat selects the slog handler.
	LogFormat string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Table node kinds.
const (
	HeaderNode  NodeKind = "header"
	ConstNode   NodeKind = "const"
	FactorNode  NodeKind = "factor"  // independent factor, carries its own adjustment
	RollupNode  NodeKind = "rollup"  // factor whose adjustment is derived from its children
	LeafNode    NodeKind = "leaf"    // rollup child variable
	SummaryNode NodeKind = "summary" // predicted / final rating rows
)

// Override layer outcomes.
const (
	OverridesLoaded      OverridesStatus = "loaded"
	OverridesNoPartition OverridesStatus = "partition_not_found"
	OverridesUnavailable OverridesStatus = "unavailable"
)

// Log formats.
const (
	TextLog LogFormat = "text" // default
	JSONLog LogFormat = "json"
)

// Rating scale bounds. 1 is the weakest notch, 22 the strongest.
const (
	MinNotch = 1
	MaxNotch = 22
)

// Markers for values that cannot be mapped to a letter.
const (
	UnknownLetter = "N/A"     // rating scale lookup miss
	ListUnknown   = "Unknown" // rating list lookup miss
	NotRated      = "NR"      // agency rating absent
)

// Sentinel keys. They never carry adjustments and are never editable.
const (
	ConstKey           = "const"
	PredictedRatingKey = "predicted_rating"
	FinalRatingKey     = "final_rating"
	FinalHeaderKey     = "final_header"
	PublicRatingKey    = "rating"
)

// Display names for the sentinel rows.
const (
	ConstName           = "Constant"
	PredictedRatingName = "Model Rating"
	FinalRatingName     = "LS Final Rating"
	FinalHeaderTitle    = "SOVEREIGN CREDIT RATING"
)

// ERVWidth is the character width of the position line drawn inside a rating notch.
const ERVWidth = 21

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLogFormats lists all valid log formats.
var ValidLogFormats = map[LogFormat]struct{}{
	TextLog: {},
	JSONLog: {},
}

// IsSentinelKey reports whether key names a row that is never editable and never
// contributes to the adjustment total.
func IsSentinelKey(key string) bool {
	switch key {
	case ConstKey, PredictedRatingKey, FinalRatingKey, FinalHeaderKey:
		return true
	}
	return false
}
