package iocache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/parquet"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// LedgerHeader is the column layout of a partition in CSV form.
var LedgerHeader = []string{"year", "short_name", "Adjustment", "Analyst Comment"}

// WriteLedgerCSV writes partition rows in the ledger layout. A non-empty country adds a
// leading country column.
func WriteLedgerCSV(w io.Writer, country string, rows []schema.PartitionRow) error {
	cw := csv.NewWriter(w)
	header := LedgerHeader
	if country != "" {
		header = append([]string{"country"}, LedgerHeader...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{strconv.Itoa(r.Year), r.ShortName, r.Adjustment, r.Comment}
		if country != "" {
			record = append([]string{country}, record...)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLedgerFile reads partition rows for one country from a CSV in the ledger layout or a
// Parquet ledger export. Rows of other countries are skipped when a country column exists.
func ReadLedgerFile(path, country string) ([]schema.PartitionRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		rows, err := parquet.ReadOverrideRowsParquet(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return parquet.ToPartitionRows(country, rows), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadLedgerCSV(f, country)
}

// ReadLedgerCSV parses a CSV in the ledger layout. Header names are matched without regard
// to case; the comment column is optional.
func ReadLedgerCSV(r io.Reader, country string) ([]schema.PartitionRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	yearCol, okYear := cols["year"]
	keyCol, okKey := cols["short_name"]
	adjCol, okAdj := cols["adjustment"]
	if !okYear || !okKey || !okAdj {
		return nil, fmt.Errorf("ledger header must contain year, short_name and Adjustment, got %v", header)
	}
	commentCol, okComment := cols["analyst comment"]
	countryCol, okCountry := cols["country"]

	cell := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var out []schema.PartitionRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if okCountry && country != "" && cell(record, countryCol) != country {
			continue
		}
		year, err := strconv.Atoi(cell(record, yearCol))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid year %q", line, cell(record, yearCol))
		}
		row := schema.PartitionRow{
			Year:       year,
			ShortName:  cell(record, keyCol),
			Adjustment: cell(record, adjCol),
		}
		if okComment {
			row.Comment = cell(record, commentCol)
		}
		out = append(out, row)
	}
	return out, nil
}

// ExecuteLedgerExport writes every partition of the ledger to outputFile. A .parquet
// extension selects Parquet, anything else CSV with a country column.
func ExecuteLedgerExport(ctx context.Context, w io.Writer, store contract.PartitionStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	partitions, err := store.ListPartitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}
	if len(partitions) == 0 {
		return errors.New("no override partitions found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting %d partitions...\n", len(partitions))

	var all []parquet.OverrideRow
	byCountry := make(map[string][]schema.PartitionRow, len(partitions))
	for _, p := range partitions {
		h, err := store.Open(ctx, p.Country)
		if err != nil {
			return err
		}
		rows, err := store.ReadRows(ctx, h)
		if err != nil {
			return fmt.Errorf("failed to read partition %s: %w", p.Country, err)
		}
		byCountry[p.Country] = rows
		all = append(all, parquet.ConvertPartitionRows(p.Country, rows)...)
	}

	if strings.EqualFold(filepath.Ext(outputFile), ".parquet") {
		if err := parquet.WriteOverrideRowsParquet(all, outputFile); err != nil {
			return fmt.Errorf("failed to write ledger export: %w", err)
		}
	} else {
		if err := writeLedgerCSVFile(outputFile, partitions, byCountry); err != nil {
			return fmt.Errorf("failed to write ledger export: %w", err)
		}
	}
	_, _ = fmt.Fprintf(w, "Exported %d override rows to: %s\n", len(all), outputFile)
	return nil
}

func writeLedgerCSVFile(path string, partitions []schema.PartitionInfo, byCountry map[string][]schema.PartitionRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write(append([]string{"country"}, LedgerHeader...)); err != nil {
		return err
	}
	for _, p := range partitions {
		for _, r := range byCountry[p.Country] {
			if err := cw.Write([]string{p.Country, strconv.Itoa(r.Year), r.ShortName, r.Adjustment, r.Comment}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
