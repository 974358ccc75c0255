package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kaimin86/credit-rating-deploy/internal/httpapi"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP JSON API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ratings and overrides as a JSON API over HTTP",
	Long: `Start an HTTP server exposing the rating engine.

Routes:
  GET  /health
  GET  /api/v1/ratings?year=
  GET  /api/v1/ratings/:country?year=&what_if=key=value
  GET  /api/v1/constituents/:country?year=
  GET  /api/v1/overrides/:country/:year
  PUT  /api/v1/overrides/:country/:year
  POST /api/v1/partitions/:country
  GET  /api/v1/peers/:bucket?year=
  GET  /api/v1/history/:country
  POST /api/v1/reload

Each client IP is limited to --rate-limit requests per second under /api/v1, with bursts
of up to --rate-burst. Requests over the limit get 429 Too Many Requests.

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  sovrate serve --listen :9090
  sovrate serve --rate-limit 5 --rate-burst 10
  SOVRATE_LEDGER_BACKEND=postgresql SOVRATE_LEDGER_DB_CONNECT="host=... dbname=..." sovrate serve`,
	Args:    cobra.NoArgs,
	PreRunE: plainSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return httpapi.Serve(ctx, cfg, storeManager)
	},
}
