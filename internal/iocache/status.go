package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/kaimin86/credit-rating-deploy/schema"
)

const statusTimeLayout = "2006-01-02 15:04:05"

// PrintCacheStatus prints snapshot cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format(statusTimeLayout))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintLedgerStatus prints override ledger status information.
func PrintLedgerStatus(w io.Writer, status schema.LedgerStatus) {
	_, _ = fmt.Fprintf(w, "Ledger Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Partitions: %d\n", status.Partitions)
	_, _ = fmt.Fprintf(w, "Total Rows: %d\n", status.TotalRows)
	if !status.LastWrite.IsZero() {
		_, _ = fmt.Fprintf(w, "Last Write: %s\n", status.LastWrite.Format(statusTimeLayout))
	}
	if len(status.TableSizes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d bytes\n", table, status.TableSizes[table])
	}
}
