// Package parquet provides data structures and functions for exchanging sovrate
// tables as Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/parquet-go/parquet-go"
)

// LongValue is one cell of a static time series in long format.
// A short_name of "rating" carries the public numeric rating.
type LongValue struct {
	Country   string   `parquet:"country,snappy"`
	Year      int32    `parquet:"year,snappy"`
	ShortName string   `parquet:"short_name,snappy"`
	Value     *float64 `parquet:"value,optional,snappy"`
}

// OverrideRow is one ledger row of a country partition.
// Blank and unreadable adjustments are stored as null.
type OverrideRow struct {
	Country    string   `parquet:"country,snappy"`
	Year       int32    `parquet:"year,snappy"`
	ShortName  string   `parquet:"short_name,snappy"`
	Adjustment *float64 `parquet:"adjustment,optional,snappy"`
	Comment    string   `parquet:"comment,snappy"`
}

// RatingListRow is one country's line of the rating list.
type RatingListRow struct {
	Year               int32    `parquet:"year,snappy"`
	Country            string   `parquet:"country,snappy"`
	PublicRating       *float64 `parquet:"public_rating,optional,snappy"`
	ModelRating        float64  `parquet:"model_rating,snappy"`
	Adjustment         float64  `parquet:"adjustment,snappy"`
	FinalRating        float64  `parquet:"final_rating,snappy"`
	FinalLetter        string   `parquet:"final_letter,snappy"`
	DistanceLowerBound float64  `parquet:"distance_lower_bound,snappy"`
	Overrides          string   `parquet:"overrides,snappy"`
	InERV              string   `parquet:"in_erv,snappy"`
	Analyst            string   `parquet:"analyst,snappy"`
}

// TableRow is one node of a factor or constituent table.
type TableRow struct {
	Country     string   `parquet:"country,snappy"`
	Year        int32    `parquet:"year,snappy"`
	Position    int32    `parquet:"position,snappy"`
	Kind        string   `parquet:"kind,snappy"`
	Key         string   `parquet:"key,snappy"`
	Name        string   `parquet:"name,snappy"`
	Coefficient *float64 `parquet:"coefficient,optional,snappy"`
	ZScore      *float64 `parquet:"zscore,optional,snappy"`
	Notch       *float64 `parquet:"notch,optional,snappy"`
	RawValue    *float64 `parquet:"raw_value,optional,snappy"`
	Adjustment  *float64 `parquet:"adjustment,optional,snappy"`
	Comment     string   `parquet:"comment,snappy"`
	Letter      string   `parquet:"letter,snappy"`
}

// WriteLongValuesParquet writes static cells in long format.
func WriteLongValuesParquet(data []LongValue, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteOverrideRowsParquet writes ledger rows.
func WriteOverrideRowsParquet(data []OverrideRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteRatingListParquet writes a rating list.
func WriteRatingListParquet(data []RatingListRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteTableRowsParquet writes a factor or constituent table.
func WriteTableRowsParquet(data []TableRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ReadLongValuesParquet reads static cells in long format.
func ReadLongValuesParquet(inputPath string) ([]LongValue, error) {
	return readParquet[LongValue](inputPath)
}

// ReadOverrideRowsParquet reads ledger rows, e.g. for an import.
func ReadOverrideRowsParquet(inputPath string) ([]OverrideRow, error) {
	return readParquet[OverrideRow](inputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func readParquet[T any](inputPath string) ([]T, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	read := 0
	for read < len(rows) {
		n, err := reader.Read(rows[read:])
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet file %s: %w", inputPath, err)
		}
		if n == 0 {
			break
		}
	}
	return rows[:read], nil
}

// ConvertPartitionRows converts ledger rows for Parquet export.
func ConvertPartitionRows(country string, rows []schema.PartitionRow) []OverrideRow {
	result := make([]OverrideRow, len(rows))
	for i, row := range rows {
		result[i] = OverrideRow{
			Country:    country,
			Year:       int32(row.Year),
			ShortName:  row.ShortName,
			Adjustment: parseCell(row.Adjustment),
			Comment:    row.Comment,
		}
	}
	return result
}

// ToPartitionRows converts imported Parquet rows back to ledger rows for one country.
func ToPartitionRows(country string, rows []OverrideRow) []schema.PartitionRow {
	var result []schema.PartitionRow
	for _, row := range rows {
		if row.Country != "" && row.Country != country {
			continue
		}
		adj := ""
		if row.Adjustment != nil {
			adj = strconv.FormatFloat(*row.Adjustment, 'g', -1, 64)
		}
		result = append(result, schema.PartitionRow{
			Year:       int(row.Year),
			ShortName:  row.ShortName,
			Adjustment: adj,
			Comment:    row.Comment,
		})
	}
	return result
}

// ConvertRatingList converts a rating list for Parquet export.
func ConvertRatingList(year int, entries []schema.RatingListEntry) []RatingListRow {
	result := make([]RatingListRow, len(entries))
	for i, e := range entries {
		result[i] = RatingListRow{
			Year:               int32(year),
			Country:            e.Country,
			PublicRating:       e.PublicRating,
			ModelRating:        e.ModelRating,
			Adjustment:         e.Adjustment,
			FinalRating:        e.FinalRating,
			FinalLetter:        e.FinalLetter,
			DistanceLowerBound: e.DistanceLowerBound,
			Overrides:          string(e.Overrides),
			InERV:              e.InERV,
			Analyst:            e.Analyst,
		}
	}
	return result
}

// ConvertTableRows converts a factor or constituent table for Parquet export.
func ConvertTableRows(country string, year int, rows []schema.TableRow) []TableRow {
	result := make([]TableRow, len(rows))
	for i, r := range rows {
		result[i] = TableRow{
			Country:     country,
			Year:        int32(year),
			Position:    int32(i),
			Kind:        string(r.Kind),
			Key:         r.Key,
			Name:        r.Name,
			Coefficient: r.Coefficient,
			ZScore:      r.ZScore,
			Notch:       r.Notch,
			RawValue:    r.RawValue,
			Adjustment:  r.Adjustment,
			Comment:     r.Comment,
			Letter:      r.Letter,
		}
	}
	return result
}

func parseCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
