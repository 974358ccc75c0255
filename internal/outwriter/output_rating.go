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

// tableCSVHeader is shared by the factor and constituent CSV exports.
var tableCSVHeader = []string{
	"country",
	"year",
	"position",
	"kind",
	"key",
	"name",
	"weight",
	"coefficient",
	"zscore",
	"notch",
	"raw_value",
	"adjustment",
	"comment",
	"letter",
}

// PrintRatingResult outputs the factor view of a rating, dispatching based on the output format configured.
func PrintRatingResult(result *schema.RatingResult, cfg *contract.Config) error {
	fmtFloat, optFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON rating"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTableCSV(w, result.Country, result.Year, result.FactorTable, optFmt)
		}, "Wrote CSV factor table"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return writeParquetFile(cfg.OutputFile, func(path string) error {
			return parquet.WriteTableRowsParquet(parquet.ConvertTableRows(result.Country, result.Year, result.FactorTable), path)
		}, "Wrote Parquet factor table")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFactorTable(w, result, cfg, fmtFloat, optFmt)
		}, "Wrote table")
	}
	return nil
}

// PrintConstituents outputs the constituent view of a rating, dispatching based on the output format configured.
func PrintConstituents(result *schema.RatingResult, cfg *contract.Config) error {
	fmtFloat, optFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Country string            `json:"country"`
				Year    int               `json:"year"`
				Rows    []schema.TableRow `json:"rows"`
			}{result.Country, result.Year, result.ConstituentTable})
		}, "Wrote JSON constituents"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTableCSV(w, result.Country, result.Year, result.ConstituentTable, optFmt)
		}, "Wrote CSV constituent table"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return writeParquetFile(cfg.OutputFile, func(path string) error {
			return parquet.WriteTableRowsParquet(parquet.ConvertTableRows(result.Country, result.Year, result.ConstituentTable), path)
		}, "Wrote Parquet constituent table")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeConstituentTable(w, result, cfg, fmtFloat, optFmt)
		}, "Wrote table")
	}
	return nil
}

// writeFactorTable renders the 11-factor view followed by the rating summary.
func writeFactorTable(w io.Writer, result *schema.RatingResult, cfg *contract.Config, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	if _, err := fmt.Fprintf(w, "%s %d\n", headerText(cfg, result.Country), result.Year); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Factor", "Weight", "Coef", "Z-Score", "Notch", "Adj", "Grade", "Comment"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range result.FactorTable {
		if r.Kind == schema.HeaderNode {
			data = append(data, []string{headerText(cfg, r.Name), "", "", "", "", "", "", ""})
			continue
		}
		grade := ""
		if r.Letter != "" && r.Notch != nil {
			grade = gradeText(cfg, r.Letter, *r.Notch)
		}
		data = append(data, []string{
			r.Name,
			r.Weight,
			optFmt(r.Coefficient),
			optFmt(r.ZScore),
			optFmt(r.Notch),
			adjustmentText(cfg, optFmt(r.Adjustment), r.Adjustment),
			grade,
			contract.TruncateText(r.Comment, 40),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	return writeRatingSummary(w, result, cfg, fmtFloat)
}

// writeConstituentTable renders every factor with the leaf variables that roll up into it.
func writeConstituentTable(w io.Writer, result *schema.RatingResult, cfg *contract.Config, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	if _, err := fmt.Fprintf(w, "%s %d constituents\n", headerText(cfg, result.Country), result.Year); err != nil {
		return err
	}

	descWidth := GetMaxDescriptionWidth(cfg)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Variable", "Description", "Weight", "Raw", "Z-Score", "Adj", "Comment"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range result.ConstituentTable {
		if r.Kind == schema.HeaderNode {
			data = append(data, []string{headerText(cfg, r.Name), "", "", "", "", "", ""})
			continue
		}
		name := r.Name
		if r.Kind == schema.LeafNode {
			name = "  " + name
		}
		data = append(data, []string{
			name,
			contract.TruncateText(r.Description, descWidth),
			r.Weight,
			optFmt(r.RawValue),
			optFmt(r.ZScore),
			adjustmentText(cfg, optFmt(r.Adjustment), r.Adjustment),
			contract.TruncateText(r.Comment, 40),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	return writeRatingSummary(w, result, cfg, fmtFloat)
}

// writeRatingSummary prints the rating line, the public ratings and any override warnings.
func writeRatingSummary(w io.Writer, result *schema.RatingResult, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "Model rating %s (%s), adjustments %s, final rating %s (%s) [%s]\n",
		fmtFloat(result.ModelRating), gradeText(cfg, result.ModelLetter, result.ModelRating),
		fmtFloat(result.AdjustmentTotal),
		fmtFloat(result.FinalRating), gradeText(cfg, result.FinalLetter, result.FinalRating),
		gradeLabel(cfg, result.FinalRating)); err != nil {
		return err
	}

	public := schema.NotRated
	if result.PublicRating != nil {
		public = fmtFloat(*result.PublicRating)
	}
	if _, err := fmt.Fprintf(w, "Public rating %s | S&P %s | Moody's %s | Fitch %s\n",
		public, result.Agencies.SP, result.Agencies.Moodys, result.Agencies.Fitch); err != nil {
		return err
	}

	switch result.Overrides {
	case schema.OverridesUnavailable:
		if _, err := fmt.Fprintf(w, "⚠️  Overrides unavailable (%s), showing the model rating only\n", result.OverridesError); err != nil {
			return err
		}
	case schema.OverridesNoPartition:
		if _, err := fmt.Fprintf(w, "No override partition for %s, rated without adjustments\n", result.Country); err != nil {
			return err
		}
	}
	if n := len(result.Malformed); n > 0 {
		if _, err := fmt.Fprintf(w, "⚠️  %d malformed override row(s) read as 0\n", n); err != nil {
			return err
		}
	}
	return nil
}

// writeTableCSV writes a factor or constituent table as CSV.
func writeTableCSV(w io.Writer, country string, year int, rows []schema.TableRow, optFmt func(*float64) string) error {
	return writeCSVWithHeader(w, tableCSVHeader, func(cw *csv.Writer) error {
		for i, r := range rows {
			rec := []string{
				country,
				strconv.Itoa(year),
				strconv.Itoa(i),
				string(r.Kind),
				r.Key,
				r.Name,
				r.Weight,
				optFmt(r.Coefficient),
				optFmt(r.ZScore),
				optFmt(r.Notch),
				optFmt(r.RawValue),
				optFmt(r.Adjustment),
				r.Comment,
				r.Letter,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
