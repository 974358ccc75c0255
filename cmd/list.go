package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/spf13/cobra"
)

// listCmd rates every sovereign for one year.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Rate every sovereign for one year, best final rating first.",
	Long: `Rate every country with a Z-score row for the year.

Each line shows the public rating, the model rating, the adjustment total and the final
rating, with its distance to the lower edge of the notch drawn as a dot line.

The list is cached in the snapshot store and recomputed when the static tables or the
override ledger change, or after --cache-ttl.

Examples:
  # Latest year in the tables
  sovrate list

  # A given year, as CSV
  sovrate list --year 2023 --output csv --output-file ratings-2023.csv`,
	Args:    cobra.NoArgs,
	PreRunE: plainSetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot build rating list", core.ExecuteRatingList)
	},
}
