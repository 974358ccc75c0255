package core

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// LoadResult is one year of a partition after coercion.
type LoadResult struct {
	Records   []schema.OverrideRecord `json:"records"`
	Status    schema.OverridesStatus  `json:"status"`
	Malformed []schema.MalformedRow   `json:"malformed,omitempty"`
}

// OverrideStore reads and writes one country partition through a transport.
type OverrideStore struct {
	transport contract.PartitionTransport
	country   string
	logger    *slog.Logger
}

// NewOverrideStore binds a transport to one country partition.
func NewOverrideStore(transport contract.PartitionTransport, country string, logger *slog.Logger) *OverrideStore {
	return &OverrideStore{transport: transport, country: country, logger: contract.LoggerOrDefault(logger)}
}

// Load returns the records tagged with year.
//
// A partition that was never provisioned is not an error: the result is empty and its
// Status is schema.OverridesNoPartition, so callers can tell it apart from a provisioned
// partition without rows for year (schema.OverridesLoaded). Transport failures come back
// as a *schema.TransportError.
//
// Adjustments are coerced: blank reads as 0, unreadable or non-finite values read as 0 and
// are reported in Malformed. Summary rows are skipped and repeated keys keep the last row.
func (s *OverrideStore) Load(ctx context.Context, year int) (LoadResult, error) {
	h, err := s.transport.Open(ctx, s.country)
	if errors.Is(err, schema.ErrPartitionNotFound) {
		return LoadResult{Records: []schema.OverrideRecord{}, Status: schema.OverridesNoPartition}, nil
	}
	if err != nil {
		return LoadResult{}, asTransportError("open", s.country, err)
	}
	rows, err := s.transport.ReadRows(ctx, h)
	if err != nil {
		return LoadResult{}, asTransportError("read", s.country, err)
	}

	res := LoadResult{Records: []schema.OverrideRecord{}, Status: schema.OverridesLoaded}
	position := map[string]int{}
	for i, row := range rows {
		if row.Year != year {
			continue
		}
		key := strings.TrimSpace(row.ShortName)
		if key == "" || key == schema.PredictedRatingKey || key == schema.FinalRatingKey {
			continue
		}
		adj, ok := CoerceAdjustment(row.Adjustment)
		if !ok {
			res.Malformed = append(res.Malformed, schema.MalformedRow{Index: i, Year: row.Year, ShortKey: key, Value: row.Adjustment})
			s.logger.Warn("malformed override adjustment coerced to 0",
				"country", s.country, "year", year, "key", key, "value", row.Adjustment)
		}
		rec := schema.OverrideRecord{ShortKey: key, Adjustment: adj, Comment: row.Comment}
		if at, dup := position[key]; dup {
			res.Records[at] = rec
			continue
		}
		position[key] = len(res.Records)
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// Save replaces every row tagged with year by records. Rows of other years are kept as
// stored. Transports that implement contract.YearReplacer swap the year in one atomic
// step; others are rewritten whole from a fresh read, bypassing any read cache.
// Concurrent saves of the same year are last-writer-wins.
func (s *OverrideStore) Save(ctx context.Context, year int, records []schema.OverrideRecord) error {
	h, err := s.transport.Open(ctx, s.country)
	if err != nil {
		if errors.Is(err, schema.ErrPartitionNotFound) {
			return err
		}
		return asTransportError("open", s.country, err)
	}

	yearRows := make([]schema.PartitionRow, 0, len(records))
	for _, r := range records {
		yearRows = append(yearRows, schema.PartitionRow{
			Year:       year,
			ShortName:  r.ShortKey,
			Adjustment: FormatAdjustment(r.Adjustment),
			Comment:    r.Comment,
		})
	}

	if replacer, ok := s.transport.(contract.YearReplacer); ok {
		if err := replacer.ReplaceYear(ctx, h, year, yearRows); err != nil {
			return s.writeError(err)
		}
		return nil
	}

	if inv, ok := s.transport.(contract.CacheInvalidator); ok {
		inv.Invalidate(s.country)
	}
	rows, err := s.transport.ReadRows(ctx, h)
	if err != nil {
		return asTransportError("read", s.country, err)
	}
	next := make([]schema.PartitionRow, 0, len(rows)+len(yearRows))
	for _, row := range rows {
		if row.Year != year {
			next = append(next, row)
		}
	}
	next = append(next, yearRows...)
	if err := s.transport.WriteRows(ctx, h, next); err != nil {
		return s.writeError(err)
	}
	return nil
}

func (s *OverrideStore) writeError(err error) error {
	if errors.Is(err, schema.ErrPartitionNotFound) {
		return err
	}
	return asTransportError("write", s.country, err)
}

// CoerceAdjustment reads a ledger cell. Blank is 0 and well-formed; anything that is not
// a finite number is 0 and reported as malformed.
func CoerceAdjustment(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatAdjustment writes an adjustment in the shortest form that reads back exactly.
func FormatAdjustment(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func asTransportError(op, country string, err error) error {
	var te *schema.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &schema.TransportError{Op: op, Country: country, Err: err}
}
