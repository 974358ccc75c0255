package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/spf13/cobra"
)

// overridesCmd groups the analyst override commands.
var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Read and edit analyst overrides in the ledger",
	Long: `Read and edit the analyst overrides stored in the override ledger.

Each country has its own partition of rows tagged by year. Only factors that are not
rolled up, and the variables of rolled-up factors, accept adjustments. A partition must
be provisioned before overrides can be saved to it.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  get       - Show the overrides of a country and year
  set       - Merge key=value[:comment] assignments into a year
  clear     - Remove every override of a year
  import    - Save every year of a ledger CSV or Parquet file
  export    - Write a partition, or the whole ledger, to a file
  provision - Create empty partitions

Examples:
  sovrate overrides provision Japan Chile
  sovrate overrides set Chile --year 2024 wealth_factor=0.5:copper gov_eff=-1
  sovrate overrides get Chile --year 2024`,
}

var overridesGetCmd = &cobra.Command{
	Use:   "get <country>",
	Short: "Show the stored overrides of a country and year",
	Long: `Show the overrides stored for a country and year (latest year by default).

Adjustments that cannot be read as numbers are shown as 0 and listed as malformed.

Examples:
  sovrate overrides get Japan
  sovrate overrides get Japan --year 2023 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot read overrides", core.ExecuteOverridesGet)
	},
}

var overridesSetCmd = &cobra.Command{
	Use:   "set <country> <key=value[:comment]>...",
	Short: "Merge adjustments into the overrides of a year",
	Long: `Merge key=value[:comment] assignments into the stored overrides of a year and save.

Keys that are already stored are replaced. An assignment without a comment keeps the
stored comment. Zero adjustments without a comment are dropped on save.

Examples:
  sovrate overrides set Chile --year 2024 wealth_factor=0.5
  sovrate overrides set Chile --year 2024 "gov_eff=-1:weak courts"`,
	Args:    cobra.MinimumNArgs(2),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteOverridesSet(rootCtx, cfg, storeManager, args[1:]); err != nil {
			contract.LogFatal("Cannot save overrides", err)
		}
	},
}

var overridesClearCmd = &cobra.Command{
	Use:   "clear <country>",
	Short: "Remove every override of a country and year",
	Long: `Remove every override of a year. Rows of other years are kept.

Examples:
  sovrate overrides clear Chile --year 2024`,
	Args:    cobra.ExactArgs(1),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot clear overrides", core.ExecuteOverridesClear)
	},
}

var overridesImportCmd = &cobra.Command{
	Use:   "import <country> <file>",
	Short: "Save every year of a ledger CSV or Parquet file",
	Long: `Read a file in the ledger layout (year, short_name, Adjustment, Analyst Comment) and
replace the stored rows of every year it contains. A .parquet file is read as a ledger
export and filtered to the country.

Rows with unreadable adjustments abort the import.

Examples:
  sovrate overrides import Japan japan.csv
  sovrate overrides import Japan ledger.parquet`,
	Args:    cobra.ExactArgs(2),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteOverridesImport(rootCtx, cfg, storeManager, args[1]); err != nil {
			contract.LogFatal("Cannot import overrides", err)
		}
	},
}

var overridesExportCmd = &cobra.Command{
	Use:   "export [country]",
	Short: "Write a partition, or every partition, in the ledger layout",
	Long: `Write the partition of a country in the ledger layout, to --output-file or stdout.
Without a country every partition is written to --output-file with a country column.
A .parquet output file selects Parquet.

Examples:
  sovrate overrides export Japan > japan.csv
  sovrate overrides export --output-file ledger.parquet`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot export overrides", core.ExecuteOverridesExport)
	},
}

var overridesProvisionCmd = &cobra.Command{
	Use:   "provision [country]...",
	Short: "Create empty override partitions",
	Long: `Create an empty partition per country, or for every country of the static tables
when none are given. Existing partitions are left untouched.

Examples:
  sovrate overrides provision
  sovrate overrides provision Japan Chile`,
	PreRunE: plainSetup,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteProvision(rootCtx, cfg, storeManager, args); err != nil {
			contract.LogFatal("Cannot provision partitions", err)
		}
	},
}
