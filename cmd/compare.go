package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/spf13/cobra"
)

// peersCmd compares sovereigns inside a rating bucket.
var peersCmd = &cobra.Command{
	Use:   "peers <bucket>",
	Short: "Compare factor notches of sovereigns publicly rated inside a bucket.",
	Long: `Compare the model with the public rating for every sovereign whose rounded public
rating falls inside a bucket.

Buckets: AAA, AA, A, BBB, BB, B, "CCC to C", D, ALL, IG (investment grade), HY (high yield).

Examples:
  sovrate peers A
  sovrate peers IG --year 2023 --output csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: plainSetup,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecutePeers(rootCtx, cfg, storeManager, args[0]); err != nil {
			contract.LogFatal("Cannot compare peers", err)
		}
	},
}

// historyCmd compares model and public ratings over time.
var historyCmd = &cobra.Command{
	Use:   "history <country>",
	Short: "Compare the model and public rating of a sovereign for every year.",
	Long: `Show, for each year of the tables, the public rating, the model rating and the gap
between them.

Examples:
  sovrate history Japan
  sovrate history Chile --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot build history", core.ExecuteHistory)
	},
}
