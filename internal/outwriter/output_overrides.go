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

// OverrideReport is the set of stored overrides of one (country, year).
type OverrideReport struct {
	Country   string                  `json:"country"`
	Year      int                     `json:"year"`
	Status    schema.OverridesStatus  `json:"status"`
	Records   []schema.OverrideRecord `json:"records"`
	Malformed []schema.MalformedRow   `json:"malformed,omitempty"`
}

// PrintOverrides outputs stored overrides, dispatching based on the output format configured.
func PrintOverrides(report OverrideReport, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON overrides"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeOverridesCSV(w, report)
		}, "Wrote CSV overrides"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return writeParquetFile(cfg.OutputFile, func(path string) error {
			return parquet.WriteOverrideRowsParquet(parquet.ConvertPartitionRows(report.Country, reportRows(report)), path)
		}, "Wrote Parquet overrides")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeOverridesTable(w, report, cfg, fmtFloat)
		}, "Wrote table")
	}
	return nil
}

// reportRows lays the records out as ledger rows of the report's year.
func reportRows(report OverrideReport) []schema.PartitionRow {
	rows := make([]schema.PartitionRow, len(report.Records))
	for i, r := range report.Records {
		rows[i] = schema.PartitionRow{
			Year:       report.Year,
			ShortName:  r.ShortKey,
			Adjustment: strconv.FormatFloat(r.Adjustment, 'g', -1, 64),
			Comment:    r.Comment,
		}
	}
	return rows
}

func writeOverridesTable(w io.Writer, report OverrideReport, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "%s %d overrides\n", headerText(cfg, report.Country), report.Year); err != nil {
		return err
	}
	if report.Status == schema.OverridesNoPartition {
		_, err := fmt.Fprintf(w, "No override partition for %s. Run 'sovrate overrides provision %s' first.\n", report.Country, report.Country)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Key", "Adjustment", "Comment"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range report.Records {
		adj := r.Adjustment
		data = append(data, []string{r.ShortKey, adjustmentText(cfg, fmtFloat(r.Adjustment), &adj), r.Comment})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	for _, m := range report.Malformed {
		if _, err := fmt.Fprintf(w, "⚠️  row %d (%s) has unreadable adjustment %q, read as 0\n", m.Index, m.ShortKey, m.Value); err != nil {
			return err
		}
	}
	return nil
}

// writeOverridesCSV writes the records in the ledger layout.
func writeOverridesCSV(w io.Writer, report OverrideReport) error {
	return writeCSVWithHeader(w, []string{"year", "short_name", "Adjustment", "Analyst Comment"}, func(cw *csv.Writer) error {
		for _, row := range reportRows(report) {
			if err := cw.Write([]string{strconv.Itoa(row.Year), row.ShortName, row.Adjustment, row.Comment}); err != nil {
				return err
			}
		}
		return nil
	})
}
