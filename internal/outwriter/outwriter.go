// Package outwriter renders ratings, tables and lists as text, CSV, JSON and Parquet.
package outwriter

import (
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRating prints the factor view of a rating using the configured output format.
func (ow *OutWriter) WriteRating(result *schema.RatingResult, cfg *contract.Config) error {
	return PrintRatingResult(result, cfg)
}

// WriteConstituents prints the constituent view of a rating using the configured output format.
func (ow *OutWriter) WriteConstituents(result *schema.RatingResult, cfg *contract.Config) error {
	return PrintConstituents(result, cfg)
}

// WriteRatingList prints the all-countries rating list using the configured output format.
func (ow *OutWriter) WriteRatingList(year int, entries []schema.RatingListEntry, cfg *contract.Config) error {
	return PrintRatingList(year, entries, cfg)
}

// WritePeers prints a peer bucket comparison using the configured output format.
func (ow *OutWriter) WritePeers(report PeerReport, cfg *contract.Config) error {
	return PrintPeers(report, cfg)
}

// WriteHistory prints the model versus public rating history of one country.
func (ow *OutWriter) WriteHistory(country string, points []schema.HistoryPoint, cfg *contract.Config) error {
	return PrintHistory(country, points, cfg)
}

// WriteOverrides prints the stored overrides of one (country, year).
func (ow *OutWriter) WriteOverrides(report OverrideReport, cfg *contract.Config) error {
	return PrintOverrides(report, cfg)
}
