package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeParquetFile runs a Parquet writer and reports the file like writeWithFile does.
func writeParquetFile(outputFile string, write func(string) error, successMsg string) error {
	if outputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	if err := write(outputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// createFormatters creates the common formatter closures used across multiple output types.
// optFmt renders a missing value as an empty cell.
func createFormatters(precision int) (fmtFloat func(float64) string, optFmt func(*float64) string) {
	numFmt := "%.*f"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	optFmt = func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmtFloat(*v)
	}
	return fmtFloat, optFmt
}

// gradeText colors text by the grade band of rating when colors are enabled.
func gradeText(cfg *contract.Config, text string, rating float64) string {
	if !cfg.UseColors {
		return text
	}
	return contract.ColorizeByGrade(text, rating)
}

// gradeLabel returns the grade band label of rating, colored when colors are enabled.
func gradeLabel(cfg *contract.Config, rating float64) string {
	if !cfg.UseColors {
		return contract.GetPlainLabel(rating)
	}
	return contract.GetColorLabel(rating)
}

// adjustmentText highlights non-zero adjustments.
func adjustmentText(cfg *contract.Config, text string, v *float64) string {
	if !cfg.UseColors || v == nil || *v == 0 {
		return text
	}
	return contract.AdjustmentColor.Sprint(text)
}

// headerText highlights section headers.
func headerText(cfg *contract.Config, text string) string {
	if !cfg.UseColors {
		return text
	}
	return contract.HeaderColor.Sprint(text)
}
