package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PeerReport is a peer bucket comparison ready for rendering.
// FactorKeys fixes the column order of the per-factor notches.
type PeerReport struct {
	Year       int                `json:"year"`
	Bucket     string             `json:"bucket"`
	FactorKeys []string           `json:"-"`
	Peers      []schema.PeerEntry `json:"peers"`
}

// PrintPeers outputs a peer comparison, dispatching based on the output format configured.
func PrintPeers(report PeerReport, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON peers"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePeersCSV(w, report, fmtFloat)
		}, "Wrote CSV peers"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for peer comparisons")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePeersTable(w, report, cfg, fmtFloat)
		}, "Wrote table")
	}
	return nil
}

// writePeersTable renders public and model ratings side by side.
func writePeersTable(w io.Writer, report PeerReport, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Country", "Public", "Grade", "Model", "Grade", "Gap"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, p := range report.Peers {
		data = append(data, []string{
			p.Country,
			fmtFloat(p.PublicRating),
			gradeText(cfg, p.PublicLetter, p.PublicRating),
			fmtFloat(p.ModelRating),
			gradeText(cfg, p.ModelLetter, p.ModelRating),
			fmtFloat(p.Gap),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d peers rated %s by the public rating in %d\n", len(report.Peers), report.Bucket, report.Year)
	return err
}

// writePeersCSV writes one row per peer with the per-factor notches as trailing columns.
func writePeersCSV(w io.Writer, report PeerReport, fmtFloat func(float64) string) error {
	header := []string{"year", "bucket", "country", "public_rating", "public_letter", "model_rating", "model_letter", "gap"}
	header = append(header, report.FactorKeys...)
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, p := range report.Peers {
			rec := []string{
				strconv.Itoa(report.Year),
				report.Bucket,
				p.Country,
				fmtFloat(p.PublicRating),
				p.PublicLetter,
				fmtFloat(p.ModelRating),
				p.ModelLetter,
				fmtFloat(p.Gap),
			}
			for _, key := range report.FactorKeys {
				rec = append(rec, fmtFloat(p.Notches[key]))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrintHistory outputs the yearly model versus public ratings of country.
func PrintHistory(country string, points []schema.HistoryPoint, cfg *contract.Config) error {
	fmtFloat, optFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Country string                `json:"country"`
				Points  []schema.HistoryPoint `json:"points"`
			}{country, points})
		}, "Wrote JSON history"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryCSV(w, country, points, fmtFloat, optFmt)
		}, "Wrote CSV history"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for rating history")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(w, country, points, cfg, fmtFloat, optFmt)
		}, "Wrote table")
	}
	return nil
}

func writeHistoryTable(w io.Writer, country string, points []schema.HistoryPoint, cfg *contract.Config, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	if _, err := fmt.Fprintf(w, "%s rating history\n", headerText(cfg, country)); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Year", "Public", "Model", "Gap"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, p := range points {
		data = append(data, []string{
			strconv.Itoa(p.Year),
			optFmt(p.PublicRating),
			gradeText(cfg, fmtFloat(p.ModelRating), p.ModelRating),
			optFmt(p.Gap),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeHistoryCSV(w io.Writer, country string, points []schema.HistoryPoint, fmtFloat func(float64) string, optFmt func(*float64) string) error {
	return writeCSVWithHeader(w, []string{"country", "year", "public_rating", "model_rating", "gap"}, func(cw *csv.Writer) error {
		for _, p := range points {
			rec := []string{country, strconv.Itoa(p.Year), optFmt(p.PublicRating), fmtFloat(p.ModelRating), optFmt(p.Gap)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
