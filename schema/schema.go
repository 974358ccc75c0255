// Package schema has the catalog, records, results and constants shared by every part of sovrate.
package schema

import (
	"maps"
	"time"
)

// CountryYear keys every static time series row.
type CountryYear struct {
	Country string `json:"country"`
	Year    int    `json:"year"`
}

// Observation is one (country, year) row of a static time series (Z-scores or raw values).
// Values only holds cells that were present; a blank cell is absent, never zero.
type Observation struct {
	Country      string             `json:"country"`
	Year         int                `json:"year"`
	PublicRating *float64           `json:"public_rating,omitempty"`
	Values       map[string]float64 `json:"values"`
}

// Value returns a cell and whether it was present.
func (o Observation) Value(key string) (float64, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Coefficients maps a factor key (and "const") to its regression coefficient.
type Coefficients map[string]float64

// Clone returns a copy of the table.
func (c Coefficients) Clone() Coefficients { return maps.Clone(c) }

// RatingScaleEntry maps one integer notch to its letter grade.
type RatingScaleEntry struct {
	Notch  int    `json:"notch"`
	Letter string `json:"letter"`
}

// AgencyRatings holds the public agency letters for one (country, year).
type AgencyRatings struct {
	SP     string `json:"sp"`
	Moodys string `json:"moodys"`
	Fitch  string `json:"fitch"`
}

// OverrideRecord is an analyst adjustment for one key of one (country, year).
type OverrideRecord struct {
	ShortKey   string  `json:"short_key"`
	Adjustment float64 `json:"adjustment"`
	Comment    string  `json:"comment"`
}

// PartitionHandle identifies an opened country partition.
type PartitionHandle struct {
	Country string `json:"country"`
}

// PartitionRow is a ledger row as the transport stores it. Adjustment is the raw cell text
// so that blank and malformed values survive the round trip until they are coerced.
type PartitionRow struct {
	Year       int    `json:"year"`
	ShortName  string `json:"short_name"`
	Adjustment string `json:"adjustment"`
	Comment    string `json:"comment"`
}

// PartitionInfo summarizes one provisioned partition.
type PartitionInfo struct {
	Country   string    `json:"country"`
	Rows      int       `json:"rows"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MalformedRow records a ledger row whose adjustment could not be read as a number.
type MalformedRow struct {
	Index    int    `json:"index"`
	Year     int    `json:"year"`
	ShortKey string `json:"short_key"`
	Value    string `json:"value"`
}

// FactorNotch is one factor's contribution to the model rating.
type FactorNotch struct {
	Key         string  `json:"key"`
	Coefficient float64 `json:"coefficient"`
	ZScore      float64 `json:"zscore"`
	Notch       float64 `json:"notch"`
}

// TableRow is one node of a rendered factor or constituent table.
type TableRow struct {
	Kind        NodeKind    `json:"kind"`
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Weight      string      `json:"weight,omitempty"`
	Coefficient *float64    `json:"coefficient,omitempty"`
	ZScore      *float64    `json:"zscore,omitempty"`
	Notch       *float64    `json:"notch,omitempty"`
	RawValue    *float64    `json:"raw_value,omitempty"`
	Adjustment  *float64    `json:"adjustment,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	Letter      string      `json:"letter,omitempty"`
	Editable    Editability `json:"editable"`
}

// RatingResult is the derived rating for one (country, year). It is never persisted.
type RatingResult struct {
	Country          string             `json:"country"`
	Year             int                `json:"year"`
	ModelRating      float64            `json:"model_rating"`
	AdjustmentTotal  float64            `json:"adjustment_total"`
	FinalRating      float64            `json:"final_rating"`
	ModelLetter      string             `json:"model_letter"`
	FinalLetter      string             `json:"final_letter"`
	Notches          []FactorNotch      `json:"notches"`
	Adjustments      map[string]float64 `json:"adjustments"`
	Comments         map[string]string  `json:"comments"`
	Overrides        OverridesStatus    `json:"overrides"`
	OverridesError   string             `json:"overrides_error,omitempty"`
	Malformed        []MalformedRow     `json:"malformed,omitempty"`
	PublicRating     *float64           `json:"public_rating,omitempty"`
	Agencies         AgencyRatings      `json:"agencies"`
	FactorTable      []TableRow         `json:"factor_table"`
	ConstituentTable []TableRow         `json:"constituent_table"`
}

// RatingListEntry is one country's line in the all-countries rating list.
type RatingListEntry struct {
	Country            string          `json:"country"`
	PublicRating       *float64        `json:"public_rating,omitempty"`
	ModelRating        float64         `json:"model_rating"`
	Adjustment         float64         `json:"adjustment"`
	FinalRating        float64         `json:"final_rating"`
	FinalLetter        string          `json:"final_letter"`
	DistanceLowerBound float64         `json:"distance_lower_bound"`
	ERVLine            string          `json:"erv_line"`
	Overrides          OverridesStatus `json:"overrides"`
	InERV              string          `json:"in_erv,omitempty"`
	Analyst            string          `json:"analyst,omitempty"`
}

// Coverage records which analyst covers a country and whether it sits in the ERV list.
type Coverage struct {
	InERV   string `json:"in_erv"`
	Analyst string `json:"analyst"`
}

// RatingBucket is an inclusive range over rounded public ratings.
type RatingBucket struct {
	Name string `json:"name"`
	Low  int    `json:"low"`
	High int    `json:"high"`
}

// PeerEntry is one country of a peer bucket.
type PeerEntry struct {
	Country      string             `json:"country"`
	PublicRating float64            `json:"public_rating"`
	PublicLetter string             `json:"public_letter"`
	ModelRating  float64            `json:"model_rating"`
	ModelLetter  string             `json:"model_letter"`
	Gap          float64            `json:"gap"`
	Notches      map[string]float64 `json:"notches"`
}

// HistoryPoint compares the model with the public rating for one year.
type HistoryPoint struct {
	Year         int      `json:"year"`
	PublicRating *float64 `json:"public_rating,omitempty"`
	ModelRating  float64  `json:"model_rating"`
	Gap          *float64 `json:"gap,omitempty"`
}
