// Package core rates sovereigns from static factor tables and analyst overrides.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	"github.com/kaimin86/credit-rating-deploy/internal/outwriter"
	"github.com/kaimin86/credit-rating-deploy/internal/parquet"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// ExecutorFunc defines the function signature for executing the rating commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// NewEngineFromConfig loads the static tables under cfg.DataDir and binds them to the
// override ledger of mgr.
func NewEngineFromConfig(cfg *contract.Config, mgr contract.StoreManager) (*Engine, error) {
	tables, err := staticdata.Load(cfg.DataDir, slog.Default())
	if err != nil {
		return nil, err
	}
	return NewEngine(tables, mgr.GetLedger(), WithLogger(slog.Default()))
}

// ExecuteRate rates cfg.Country and prints the factor table.
// What-if adjustments in cfg are applied for this run only.
func ExecuteRate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, err := rate(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintRatingResult(result, cfg)
}

// ExecuteConstituents rates cfg.Country and prints the constituent table.
func ExecuteConstituents(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, err := rate(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintConstituents(result, cfg)
}

func rate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.RatingResult, error) {
	if cfg.Country == "" {
		return nil, errors.New("a country is required")
	}
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return nil, err
	}
	result, err := e.Simulate(ctx, cfg.Country, cfg.Year, cfg.WhatIf)
	if err != nil {
		return nil, err
	}
	if result.Overrides == schema.OverridesUnavailable {
		contract.LogWarn("override ledger unavailable, showing the model rating only", errors.New(result.OverridesError))
	}
	return result, nil
}

// ExecuteRatingList rates every country for cfg.Year and prints the list, best first.
// The list is served from the snapshot cache when one is configured.
func ExecuteRatingList(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	year := cfg.Year
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return schema.ErrNoData
		}
		year = latest
	}
	entries, err := e.CachedRatingList(ctx, year, mgr.GetSnapshotStore(), cfg.CacheTTL)
	if err != nil {
		return err
	}
	return outwriter.PrintRatingList(year, entries, cfg)
}

// ExecuteHistory prints the model and public ratings of cfg.Country for every year.
func ExecuteHistory(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if cfg.Country == "" {
		return errors.New("a country is required")
	}
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	points, err := e.History(ctx, cfg.Country)
	if err != nil {
		return err
	}
	return outwriter.PrintHistory(cfg.Country, points, cfg)
}

// ExecutePeers compares the model with the public rating for one peer bucket.
func ExecutePeers(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, bucket string) error {
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	b, err := FindBucket(bucket)
	if err != nil {
		return err
	}
	year := cfg.Year
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return schema.ErrNoData
		}
		year = latest
	}
	peers, err := e.Peers(ctx, year, b.Name)
	if err != nil {
		return err
	}
	return outwriter.PrintPeers(outwriter.PeerReport{
		Year:       year,
		Bucket:     b.Name,
		FactorKeys: e.Catalog().FactorKeys(),
		Peers:      peers,
	}, cfg)
}

// ExecuteOverridesGet prints the stored overrides of (cfg.Country, cfg.Year).
func ExecuteOverridesGet(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	e, year, err := overridesEngine(cfg, mgr)
	if err != nil {
		return err
	}
	loaded, err := e.Overrides(ctx, cfg.Country, year)
	if err != nil {
		return err
	}
	return outwriter.PrintOverrides(outwriter.OverrideReport{
		Country:   cfg.Country,
		Year:      year,
		Status:    loaded.Status,
		Records:   loaded.Records,
		Malformed: loaded.Malformed,
	}, cfg)
}

// ExecuteOverridesClear removes every override of (cfg.Country, cfg.Year).
func ExecuteOverridesClear(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	e, year, err := overridesEngine(cfg, mgr)
	if err != nil {
		return err
	}
	if _, err := e.SaveOverrides(ctx, cfg.Country, year, nil); err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Cleared overrides for %s %d\n", cfg.Country, year)
	return err
}

// ExecuteOverridesSet merges key=value[:comment] assignments into the stored overrides of
// (cfg.Country, cfg.Year) and saves the result. Stored rows that can never be saved are
// dropped with a warning; assignments naming such keys fail.
func ExecuteOverridesSet(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, assignments []string) error {
	if len(assignments) == 0 {
		return errors.New("at least one key=value assignment is required")
	}
	updates := make([]schema.OverrideRecord, 0, len(assignments))
	for _, a := range assignments {
		rec, err := ParseAssignment(a)
		if err != nil {
			return err
		}
		updates = append(updates, rec)
	}

	e, year, err := overridesEngine(cfg, mgr)
	if err != nil {
		return err
	}
	loaded, err := e.Overrides(ctx, cfg.Country, year)
	if err != nil {
		return err
	}
	if loaded.Status == schema.OverridesNoPartition {
		return fmt.Errorf("%w: %s", schema.ErrPartitionNotFound, cfg.Country)
	}
	current := e.DropReadOnly(cfg.Country, year, loaded.Records)
	saved, err := e.SaveOverrides(ctx, cfg.Country, year, mergeRecords(current, updates))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Saved %d overrides for %s %d\n", len(saved), cfg.Country, year)
	return err
}

// ExecuteOverridesImport saves every year found in a ledger CSV or Parquet file for cfg.Country.
// Each year replaces the stored rows of that year only. Summary, header and rollup rows
// of the spreadsheet layout are dropped with a warning.
func ExecuteOverridesImport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, path string) error {
	if cfg.Country == "" {
		return errors.New("a country is required")
	}
	rows, err := iocache.ReadLedgerFile(path, cfg.Country)
	if err != nil {
		return err
	}
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return err
	}
	byYear, err := RecordsByYear(e.dropReadOnlyRows(cfg.Country, rows))
	if err != nil {
		return err
	}
	if len(byYear) == 0 {
		return fmt.Errorf("no override rows for %s in %s", cfg.Country, path)
	}

	total := 0
	for _, year := range sortedYears(byYear) {
		saved, err := e.SaveOverrides(ctx, cfg.Country, year, byYear[year])
		if err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
		total += len(saved)
	}
	_, err = fmt.Fprintf(os.Stdout, "Imported %d overrides across %d years for %s\n", total, len(byYear), cfg.Country)
	return err
}

// ExecuteOverridesExport writes the partition of cfg.Country in the ledger layout, to
// cfg.OutputFile or stdout. A .parquet output file selects Parquet. Without a country every
// partition is exported to cfg.OutputFile.
func ExecuteOverridesExport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	ledger := mgr.GetLedger()
	if cfg.Country == "" {
		return iocache.ExecuteLedgerExport(ctx, os.Stdout, ledger, cfg.OutputFile)
	}

	h, err := ledger.Open(ctx, cfg.Country)
	if err != nil {
		return err
	}
	rows, err := ledger.ReadRows(ctx, h)
	if err != nil {
		return asTransportError("read", cfg.Country, err)
	}

	if strings.EqualFold(filepath.Ext(cfg.OutputFile), ".parquet") {
		if err := parquet.WriteOverrideRowsParquet(parquet.ConvertPartitionRows(cfg.Country, rows), cfg.OutputFile); err != nil {
			return err
		}
		_, err = fmt.Fprintf(os.Stdout, "Exported %d override rows to: %s\n", len(rows), cfg.OutputFile)
		return err
	}

	file, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}
	return iocache.WriteLedgerCSV(file, "", rows)
}

// ExecuteProvision creates empty partitions for countries, or for every country of the
// static tables when none are given. Existing partitions are left untouched.
func ExecuteProvision(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, countries []string) error {
	if len(countries) == 0 {
		e, err := NewEngineFromConfig(cfg, mgr)
		if err != nil {
			return err
		}
		countries = e.Static().Countries()
	}
	created, skipped, err := Provision(ctx, mgr.GetLedger(), countries)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "Provisioned %d partitions, skipped %d existing\n", created, skipped)
	return err
}

// Provision creates a partition per country and counts created and existing ones.
func Provision(ctx context.Context, ledger contract.PartitionStore, countries []string) (created, skipped int, err error) {
	for _, c := range countries {
		ok, err := ledger.Provision(ctx, c)
		if err != nil {
			return created, skipped, fmt.Errorf("provision %s: %w", c, err)
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}

func overridesEngine(cfg *contract.Config, mgr contract.StoreManager) (*Engine, int, error) {
	if cfg.Country == "" {
		return nil, 0, errors.New("a country is required")
	}
	e, err := NewEngineFromConfig(cfg, mgr)
	if err != nil {
		return nil, 0, err
	}
	year, err := e.ResolveYear(cfg.Country, cfg.Year)
	if err != nil {
		return nil, 0, err
	}
	return e, year, nil
}

// ParseAssignment reads "key=value" or "key=value:comment".
func ParseAssignment(s string) (schema.OverrideRecord, error) {
	key, rest, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return schema.OverrideRecord{}, fmt.Errorf("invalid assignment %q. expected key=value[:comment]", s)
	}
	raw, comment, _ := strings.Cut(rest, ":")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return schema.OverrideRecord{}, fmt.Errorf("invalid adjustment in %q: %w", s, err)
	}
	return schema.OverrideRecord{ShortKey: key, Adjustment: v, Comment: strings.TrimSpace(comment)}, nil
}

// mergeRecords lays updates over current. An update without a comment keeps the stored one.
func mergeRecords(current, updates []schema.OverrideRecord) []schema.OverrideRecord {
	out := slices.Clone(current)
	for _, u := range updates {
		i := slices.IndexFunc(out, func(r schema.OverrideRecord) bool { return r.ShortKey == u.ShortKey })
		if i < 0 {
			out = append(out, u)
			continue
		}
		if u.Comment == "" {
			u.Comment = out[i].Comment
		}
		out[i] = u
	}
	return out
}

// RecordsByYear groups imported ledger rows into override records per year.
// Unreadable adjustments are rejected rather than coerced, so a bad file never
// silently zeroes an analyst's figure.
func RecordsByYear(rows []schema.PartitionRow) (map[int][]schema.OverrideRecord, error) {
	out := map[int][]schema.OverrideRecord{}
	for i, row := range rows {
		adj, ok := CoerceAdjustment(row.Adjustment)
		if !ok {
			return nil, fmt.Errorf("row %d (%d %s): unreadable adjustment %q", i+1, row.Year, row.ShortName, row.Adjustment)
		}
		out[row.Year] = append(out[row.Year], schema.OverrideRecord{ShortKey: row.ShortName, Adjustment: adj, Comment: row.Comment})
	}
	return out, nil
}

// dropReadOnlyRows keeps the rows whose key can be saved.
func (e *Engine) dropReadOnlyRows(country string, rows []schema.PartitionRow) []schema.PartitionRow {
	out := make([]schema.PartitionRow, 0, len(rows))
	for _, row := range rows {
		if e.savable(country, row.Year, row.ShortName) {
			out = append(out, row)
		}
	}
	return out
}

func sortedYears(m map[int][]schema.OverrideRecord) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
