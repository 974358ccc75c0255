package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/parquet"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintRatingList outputs the rating list of year, dispatching based on the output format configured.
func PrintRatingList(year int, entries []schema.RatingListEntry, cfg *contract.Config) error {
	fmtFloat, optFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRatingListJSON(w, year, entries)
		}, "Wrote JSON rating list"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRatingListCSV(w, year, entries, fmtFloat, optFmt)
		}, "Wrote CSV rating list"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return writeParquetFile(cfg.OutputFile, func(path string) error {
			return parquet.WriteRatingListParquet(parquet.ConvertRatingList(year, entries), path)
		}, "Wrote Parquet rating list")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRatingListTable(w, year, entries, cfg, fmtFloat, optFmt)
		}, "Wrote table")
	}
	return nil
}

// writeRatingListTable renders one line per country, best rated first.
func writeRatingListTable(w io.Writer, year int, entries []schema.RatingListEntry, cfg *contract.Config, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Country", "Public", "Model", "Adj", "Final", "Grade", "Band", "DLB", "ERV", "In ERV", "Analyst"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	unavailable := 0
	var data [][]string
	for i, e := range entries {
		country := e.Country
		if e.Overrides == schema.OverridesUnavailable {
			country += " *"
			unavailable++
		}
		adj := e.Adjustment
		data = append(data, []string{
			strconv.Itoa(i + 1),
			country,
			optFmt(e.PublicRating),
			fmtFloat(e.ModelRating),
			adjustmentText(cfg, fmtFloat(e.Adjustment), &adj),
			fmtFloat(e.FinalRating),
			gradeText(cfg, e.FinalLetter, e.FinalRating),
			gradeLabel(cfg, e.FinalRating),
			fmtFloat(e.DistanceLowerBound),
			"|" + e.ERVLine + "|",
			e.InERV,
			e.Analyst,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing %d countries for %d\n", len(entries), year); err != nil {
		return err
	}
	if unavailable > 0 {
		if _, err := fmt.Fprintf(w, "* overrides unavailable for %d countries, model rating shown\n", unavailable); err != nil {
			return err
		}
	}
	return nil
}

// writeRatingListCSV writes the rating list in CSV format.
func writeRatingListCSV(w io.Writer, year int, entries []schema.RatingListEntry, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	header := []string{
		"rank",
		"year",
		"country",
		"public_rating",
		"model_rating",
		"adjustment",
		"final_rating",
		"final_letter",
		"distance_lower_bound",
		"erv_line",
		"overrides",
		"in_erv",
		"analyst",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, e := range entries {
			rec := []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(year),
				e.Country,
				optFmt(e.PublicRating),
				fmtFloat(e.ModelRating),
				fmtFloat(e.Adjustment),
				fmtFloat(e.FinalRating),
				e.FinalLetter,
				fmtFloat(e.DistanceLowerBound),
				e.ERVLine,
				string(e.Overrides),
				e.InERV,
				e.Analyst,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRatingListJSON writes the list with rank and grade band added to each entry.
func writeRatingListJSON(w io.Writer, year int, entries []schema.RatingListEntry) error {
	type JSONRatingListEntry struct {
		Rank  int    `json:"rank"`
		Year  int    `json:"year"`
		Label string `json:"label"`
		schema.RatingListEntry
	}

	output := make([]JSONRatingListEntry, len(entries))
	for i, e := range entries {
		output[i] = JSONRatingListEntry{
			Rank:            i + 1,
			Year:            year,
			Label:           contract.GetPlainLabel(e.FinalRating),
			RatingListEntry: e,
		}
	}
	return writeJSON(w, output)
}
