// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"log/slog"

	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the rating MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, provider *core.EngineProvider, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Sovereign Rating Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:  baseCfg,
		provider: provider,
		mgr:      mgr,
	}

	// --- 1. Tool: get_rating ---
	s.AddTool(mcp.NewTool("get_rating",
		mcp.WithDescription("Rate one sovereign: model rating, analyst adjustments and final letter rating."),
		mcp.WithString("country", mcp.Description("Country name as it appears in the static tables."), mcp.Required()),
		mcp.WithNumber("year", mcp.Description("Rating year. Defaults to the latest year available for the country.")),
		mcp.WithObject("what_if", mcp.Description("Hypothetical adjustments by factor or variable key, applied to this request only.")),
	), h.handleGetRating)

	// --- 2. Tool: get_constituents ---
	s.AddTool(mcp.NewTool("get_constituents",
		mcp.WithDescription("Show the constituent table of a rating, with the variables behind each rolled-up factor."),
		mcp.WithString("country", mcp.Description("Country name."), mcp.Required()),
		mcp.WithNumber("year", mcp.Description("Rating year. Defaults to the latest year.")),
	), h.handleGetConstituents)

	// --- 3. Tool: get_rating_list ---
	s.AddTool(mcp.NewTool("get_rating_list",
		mcp.WithDescription("Rate every sovereign for one year, best final rating first."),
		mcp.WithNumber("year", mcp.Description("Rating year. Defaults to the latest year in the tables.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of countries returned.")),
	), h.handleGetRatingList)

	// --- 4. Tool: get_overrides ---
	s.AddTool(mcp.NewTool("get_overrides",
		mcp.WithDescription("Read the analyst overrides stored for a country and year."),
		mcp.WithString("country", mcp.Description("Country name."), mcp.Required()),
		mcp.WithNumber("year", mcp.Description("Override year. Defaults to the latest year.")),
	), h.handleGetOverrides)

	// --- 5. Tool: save_overrides ---
	s.AddTool(mcp.NewTool("save_overrides",
		mcp.WithDescription("Replace the analyst overrides of a country and year. Only editable factors and variables are accepted."),
		mcp.WithString("country", mcp.Description("Country name."), mcp.Required()),
		mcp.WithNumber("year", mcp.Description("Override year."), mcp.Required()),
		mcp.WithArray("records",
			mcp.Description("Override records with short_key, adjustment and an optional comment."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"short_key":  map[string]any{"type": "string"},
					"adjustment": map[string]any{"type": "number"},
					"comment":    map[string]any{"type": "string"},
				},
				"required": []string{"short_key"},
			}),
			mcp.Required(),
		),
	), h.handleSaveOverrides)

	// --- 6. Tool: get_peers ---
	s.AddTool(mcp.NewTool("get_peers",
		mcp.WithDescription("Compare factor notches of the sovereigns publicly rated inside a rating bucket."),
		mcp.WithString("bucket", mcp.Description("Rating bucket."), mcp.Required(),
			mcp.Enum("AAA", "AA", "A", "BBB", "BB", "B", "CCC to C", "D", "ALL", "IG", "HY")),
		mcp.WithNumber("year", mcp.Description("Rating year. Defaults to the latest year in the tables.")),
	), h.handleGetPeers)

	// --- 7. Tool: get_history ---
	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Compare the model rating with the public rating for every year of a country."),
		mcp.WithString("country", mcp.Description("Country name."), mcp.Required()),
	), h.handleGetHistory)

	return s
}

// StartMCPServer starts the rating MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	static := staticdata.NewCache(baseCfg.DataDir, slog.Default())
	if err := static.Init(); err != nil {
		return err
	}
	provider := core.NewEngineProvider(static, mgr.GetLedger(), slog.Default())
	s := NewMCPServer(baseCfg, provider, mgr)
	return server.ServeStdio(s)
}
