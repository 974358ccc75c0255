package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/spf13/cobra"
)

// rateCmd rates one sovereign.
var rateCmd = &cobra.Command{
	Use:   "rate <country>",
	Short: "Show the model, adjustment and final rating of one sovereign.",
	Long: `Rate one sovereign for one year.

The factor model turns each Z-score into notches, adds the constant and yields the
model rating. Analyst overrides stored in the ledger are layered on top: variables
roll up into their parent factor, and the sum of factor adjustments moves the model
rating to the final rating, clamped to the 22-notch scale.

A missing override partition rates with no adjustments. An unreachable ledger rates
the model alone and says so.

Examples:
  # Rate Japan for the latest year in the tables
  sovrate rate Japan

  # Rate a given year
  sovrate rate Chile --year 2023

  # Try a hypothetical adjustment without saving it
  sovrate rate Chile --what-if wealth_factor=0.5 --what-if gov_eff=-1

  # Export the factor table
  sovrate rate Japan --output csv --output-file japan.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: countrySetup,
	Run: func(cmd *cobra.Command, _ []string) {
		assignments, _ := cmd.Flags().GetStringArray("what-if")
		whatIf, err := parseWhatIf(assignments)
		if err != nil {
			contract.LogFatal("Cannot rate", err)
		}
		cfg.WhatIf = whatIf
		execute("Cannot rate", core.ExecuteRate)
	},
}

// constituentsCmd shows the variables behind a rating.
var constituentsCmd = &cobra.Command{
	Use:   "constituents <country>",
	Short: "Show every factor and constituent variable with raw values and adjustments.",
	Long: `Show the constituent table of a rating.

Rolled-up factors (default history, governance, fiscal performance and FX reserves)
are listed with the variables they sum, together with raw values, Z-scores, analyst
adjustments and comments.

Examples:
  sovrate constituents Japan
  sovrate constituents Chile --year 2023 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: countrySetup,
	Run: func(_ *cobra.Command, _ []string) {
		execute("Cannot show constituents", core.ExecuteConstituents)
	},
}
