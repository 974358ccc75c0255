// Package staticdata loads the read-only static tables (Z-scores, raw values, coefficients,
// rating scale, public agency ratings, coverage and the catalog) from a data directory.
package staticdata

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/parquet"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"gopkg.in/yaml.v3"
)

// File names looked up under the data directory.
const (
	ZScoresFile       = "zscores"
	RawFile           = "raw"
	CoefficientsFile  = "coefficients.csv"
	RatingScaleFile   = "rating_scale.csv"
	PublicRatingsFile = "public_ratings.csv"
	CoverageFile      = "coverage.csv"
	CatalogFile       = "catalog.yaml"
)

// Tables is an immutable snapshot of every static input.
type Tables struct {
	catalog      *schema.Catalog
	scale        []schema.RatingScaleEntry
	coefficients schema.Coefficients
	zscores      map[schema.CountryYear]schema.Observation
	raw          map[schema.CountryYear]schema.Observation
	agencies     map[schema.CountryYear]schema.AgencyRatings
	coverage     map[string]schema.Coverage
	countries    []string
	years        map[string][]int
	fingerprint  string
}

var _ contract.StaticSource = &Tables{}

// Load reads every static table under dir. Z-scores and coefficients are required; the
// rating scale and catalog fall back to the built-in ones, and the remaining tables are
// optional. Any parse failure is a ConfigurationError naming the file.
func Load(dir string, logger *slog.Logger) (*Tables, error) {
	logger = contract.LoggerOrDefault(logger)
	h := sha256.New()

	t := &Tables{
		raw:      map[schema.CountryYear]schema.Observation{},
		agencies: map[schema.CountryYear]schema.AgencyRatings{},
		coverage: map[string]schema.Coverage{},
		years:    map[string][]int{},
	}

	catalog, err := loadCatalog(dir, h)
	if err != nil {
		return nil, err
	}
	t.catalog = catalog

	t.zscores, err = loadSeries(dir, ZScoresFile, true, h)
	if err != nil {
		return nil, err
	}
	t.raw, err = loadSeries(dir, RawFile, false, h)
	if err != nil {
		return nil, err
	}

	t.coefficients, err = loadCoefficients(dir, h)
	if err != nil {
		return nil, err
	}

	t.scale, err = loadRatingScale(dir, h)
	if err != nil {
		return nil, err
	}

	t.agencies, err = loadAgencies(dir, h)
	if err != nil {
		return nil, err
	}

	t.coverage, err = loadCoverage(dir, h)
	if err != nil {
		return nil, err
	}

	for cy := range t.zscores {
		t.years[cy.Country] = append(t.years[cy.Country], cy.Year)
	}
	for country, ys := range t.years {
		slices.Sort(ys)
		t.years[country] = ys
	}
	t.countries = slices.Sorted(maps.Keys(t.years))
	t.fingerprint = hex.EncodeToString(h.Sum(nil))

	logger.Debug("static tables loaded",
		"dir", dir,
		"countries", len(t.countries),
		"rows", len(t.zscores),
		"fingerprint", t.fingerprint[:12],
	)
	return t, nil
}

// Catalog returns the factor/variable catalog.
func (t *Tables) Catalog() *schema.Catalog { return t.catalog }

// RatingScale returns the notch-to-letter table.
func (t *Tables) RatingScale() []schema.RatingScaleEntry { return slices.Clone(t.scale) }

// Coefficients returns a copy of the coefficient table.
func (t *Tables) Coefficients() schema.Coefficients { return t.coefficients.Clone() }

// ZScores returns the Z-score row for (country, year).
func (t *Tables) ZScores(country string, year int) (schema.Observation, bool) {
	o, ok := t.zscores[schema.CountryYear{Country: country, Year: year}]
	return o, ok
}

// RawValues returns the raw-value row for (country, year).
func (t *Tables) RawValues(country string, year int) (schema.Observation, bool) {
	o, ok := t.raw[schema.CountryYear{Country: country, Year: year}]
	return o, ok
}

// Agencies returns the public agency letters for (country, year).
func (t *Tables) Agencies(country string, year int) (schema.AgencyRatings, bool) {
	a, ok := t.agencies[schema.CountryYear{Country: country, Year: year}]
	return a, ok
}

// Coverage returns the ERV coverage of a country.
func (t *Tables) Coverage(country string) (schema.Coverage, bool) {
	c, ok := t.coverage[country]
	return c, ok
}

// Countries returns every country with at least one Z-score row, sorted.
func (t *Tables) Countries() []string { return slices.Clone(t.countries) }

// Years returns the years with a Z-score row for country, ascending.
func (t *Tables) Years(country string) []int { return slices.Clone(t.years[country]) }

// Fingerprint is a digest of every file that was read.
func (t *Tables) Fingerprint() string { return t.fingerprint }

func configErr(file string, format string, args ...any) error {
	return &schema.ConfigurationError{Table: file, Reason: fmt.Sprintf(format, args...)}
}

// readFile returns the file contents and feeds them to the fingerprint.
// A missing file yields (nil, nil) unless required.
func readFile(dir, name string, required bool, h io.Writer) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return nil, configErr(name, "required file is missing")
		}
		return nil, nil
	}
	if err != nil {
		return nil, &schema.ConfigurationError{Table: name, Reason: "cannot read file", Err: err}
	}
	_, _ = io.WriteString(h, name)
	_, _ = h.Write(data)
	return data, nil
}

// readCSV parses data into a lower-cased header and the remaining records.
func readCSV(name string, data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, &schema.ConfigurationError{Table: name, Reason: "malformed csv", Err: err}
	}
	if len(records) == 0 {
		return nil, nil, configErr(name, "file has no header")
	}
	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}
	return header, records[1:], nil
}

func column(header []string, names ...string) int {
	for i, col := range header {
		for _, n := range names {
			if strings.EqualFold(col, n) {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseNumber parses a numeric cell. A blank cell is reported as absent.
func parseNumber(raw string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func loadCatalog(dir string, h io.Writer) (*schema.Catalog, error) {
	data, err := readFile(dir, CatalogFile, false, h)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return schema.DefaultCatalog(), nil
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog.yaml document.
func ParseCatalog(data []byte) (*schema.Catalog, error) {
	var spec schema.CatalogSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, &schema.ConfigurationError{Table: CatalogFile, Reason: "invalid yaml", Err: err}
	}
	return schema.NewCatalog(spec)
}

// loadSeries reads base.csv, or base.parquet when no CSV exists.
func loadSeries(dir, base string, required bool, h io.Writer) (map[schema.CountryYear]schema.Observation, error) {
	csvName := base + ".csv"
	data, err := readFile(dir, csvName, false, h)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return parseWideSeries(csvName, data)
	}

	pqName := base + ".parquet"
	data, err = readFile(dir, pqName, false, h)
	if err != nil {
		return nil, err
	}
	if data == nil {
		if required {
			return nil, configErr(csvName, "required file is missing (no %s either)", pqName)
		}
		return map[schema.CountryYear]schema.Observation{}, nil
	}
	rows, err := parquet.ReadLongValuesParquet(filepath.Join(dir, pqName))
	if err != nil {
		return nil, &schema.ConfigurationError{Table: pqName, Reason: "cannot read parquet", Err: err}
	}
	return longToSeries(rows), nil
}

// parseWideSeries reads `country,year[,rating],<key>...` rows.
func parseWideSeries(name string, data []byte) (map[schema.CountryYear]schema.Observation, error) {
	header, records, err := readCSV(name, data)
	if err != nil {
		return nil, err
	}
	countryIdx := column(header, "country", "name")
	yearIdx := column(header, "year")
	if countryIdx < 0 || yearIdx < 0 {
		return nil, configErr(name, "header needs country and year columns")
	}

	out := make(map[schema.CountryYear]schema.Observation, len(records))
	for line, record := range records {
		country := cell(record, countryIdx)
		if country == "" {
			continue
		}
		year, err := strconv.Atoi(cell(record, yearIdx))
		if err != nil {
			return nil, configErr(name, "line %d: invalid year %q", line+2, cell(record, yearIdx))
		}
		key := schema.CountryYear{Country: country, Year: year}
		if _, dup := out[key]; dup {
			return nil, configErr(name, "line %d: duplicate row for %s/%d", line+2, country, year)
		}

		obs := schema.Observation{Country: country, Year: year, Values: map[string]float64{}}
		for i, col := range header {
			if i == countryIdx || i == yearIdx || col == "" {
				continue
			}
			v, ok, err := parseNumber(cell(record, i))
			if err != nil {
				return nil, configErr(name, "line %d: column %s: non-numeric value %q", line+2, col, cell(record, i))
			}
			if !ok {
				continue
			}
			if strings.EqualFold(col, schema.PublicRatingKey) {
				obs.PublicRating = &v
				continue
			}
			obs.Values[col] = v
		}
		out[key] = obs
	}
	return out, nil
}

func longToSeries(rows []parquet.LongValue) map[schema.CountryYear]schema.Observation {
	out := map[schema.CountryYear]schema.Observation{}
	for _, row := range rows {
		key := schema.CountryYear{Country: row.Country, Year: int(row.Year)}
		obs, ok := out[key]
		if !ok {
			obs = schema.Observation{Country: row.Country, Year: int(row.Year), Values: map[string]float64{}}
		}
		if row.Value != nil && !math.IsNaN(*row.Value) {
			v := *row.Value
			if row.ShortName == schema.PublicRatingKey {
				obs.PublicRating = &v
			} else {
				obs.Values[row.ShortName] = v
			}
		}
		out[key] = obs
	}
	return out
}

func loadCoefficients(dir string, h io.Writer) (schema.Coefficients, error) {
	data, err := readFile(dir, CoefficientsFile, true, h)
	if err != nil {
		return nil, err
	}
	header, records, err := readCSV(CoefficientsFile, data)
	if err != nil {
		return nil, err
	}
	keyIdx := column(header, "short_name", "key")
	valIdx := column(header, "coefficient", "coef")
	if keyIdx < 0 || valIdx < 0 {
		return nil, configErr(CoefficientsFile, "header needs short_name and coefficient columns")
	}
	out := schema.Coefficients{}
	for line, record := range records {
		key := cell(record, keyIdx)
		if key == "" {
			continue
		}
		v, ok, err := parseNumber(cell(record, valIdx))
		if err != nil {
			return nil, configErr(CoefficientsFile, "line %d: non-numeric coefficient %q for %s", line+2, cell(record, valIdx), key)
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

func loadRatingScale(dir string, h io.Writer) ([]schema.RatingScaleEntry, error) {
	data, err := readFile(dir, RatingScaleFile, false, h)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return schema.DefaultRatingScale(), nil
	}
	header, records, err := readCSV(RatingScaleFile, data)
	if err != nil {
		return nil, err
	}
	numIdx := column(header, "numeric", "notch")
	letterIdx := column(header, "letter", "credit rating")
	if numIdx < 0 || letterIdx < 0 {
		return nil, configErr(RatingScaleFile, "header needs numeric and letter columns")
	}
	var out []schema.RatingScaleEntry
	for line, record := range records {
		raw := cell(record, numIdx)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, configErr(RatingScaleFile, "line %d: notch %q is not an integer", line+2, raw)
		}
		out = append(out, schema.RatingScaleEntry{Notch: n, Letter: cell(record, letterIdx)})
	}
	return out, nil
}

// agencyLetter normalizes an agency cell: blank is NR and the unsolicited suffix is dropped.
func agencyLetter(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return schema.NotRated
	}
	if trimmed := strings.TrimSuffix(raw, "u"); trimmed != "" {
		return trimmed
	}
	return raw
}

func loadAgencies(dir string, h io.Writer) (map[schema.CountryYear]schema.AgencyRatings, error) {
	out := map[schema.CountryYear]schema.AgencyRatings{}
	data, err := readFile(dir, PublicRatingsFile, false, h)
	if err != nil || data == nil {
		return out, err
	}
	header, records, err := readCSV(PublicRatingsFile, data)
	if err != nil {
		return nil, err
	}
	countryIdx := column(header, "country", "name")
	yearIdx := column(header, "year")
	if countryIdx < 0 || yearIdx < 0 {
		return nil, configErr(PublicRatingsFile, "header needs country and year columns")
	}
	spIdx := column(header, "sp", "s&p")
	moodysIdx := column(header, "moodys", "moody's")
	fitchIdx := column(header, "fitch")
	for line, record := range records {
		country := cell(record, countryIdx)
		if country == "" {
			continue
		}
		year, err := strconv.Atoi(cell(record, yearIdx))
		if err != nil {
			return nil, configErr(PublicRatingsFile, "line %d: invalid year %q", line+2, cell(record, yearIdx))
		}
		out[schema.CountryYear{Country: country, Year: year}] = schema.AgencyRatings{
			SP:     agencyLetter(cell(record, spIdx)),
			Moodys: agencyLetter(cell(record, moodysIdx)),
			Fitch:  agencyLetter(cell(record, fitchIdx)),
		}
	}
	return out, nil
}

func loadCoverage(dir string, h io.Writer) (map[string]schema.Coverage, error) {
	out := map[string]schema.Coverage{}
	data, err := readFile(dir, CoverageFile, false, h)
	if err != nil || data == nil {
		return out, err
	}
	header, records, err := readCSV(CoverageFile, data)
	if err != nil {
		return nil, err
	}
	countryIdx := column(header, "country", "name")
	if countryIdx < 0 {
		return nil, configErr(CoverageFile, "header needs a country column")
	}
	ervIdx := column(header, "in_erv")
	analystIdx := column(header, "analyst")
	for _, record := range records {
		country := cell(record, countryIdx)
		if country == "" {
			continue
		}
		out[country] = schema.Coverage{InERV: cell(record, ervIdx), Analyst: cell(record, analystIdx)}
	}
	return out, nil
}
