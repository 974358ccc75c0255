package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	provider *core.EngineProvider
	mgr      contract.StoreManager
}

// ratingResponse is a rating without its constituent table.
type ratingResponse struct {
	*schema.RatingResult
	ConstituentTable []schema.TableRow `json:"constituent_table,omitempty"`
}

type constituentsResponse struct {
	Country string            `json:"country"`
	Year    int               `json:"year"`
	Rows    []schema.TableRow `json:"rows"`
}

type peersResponse struct {
	Year   int                `json:"year"`
	Bucket string             `json:"bucket"`
	Peers  []schema.PeerEntry `json:"peers"`
}

type overridesResponse struct {
	Country string `json:"country"`
	Year    int    `json:"year"`
	core.LoadResult
}

type saveRequest struct {
	Records []schema.OverrideRecord `json:"records"`
}

func (h *toolHandler) handleGetRating(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.Country = request.GetString("country", "")
	cfg.Year = request.GetInt("year", cfg.Year)
	whatIf, err := whatIfArgument(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid what_if: %v", err)), nil
	}

	e, err := h.provider.Engine()
	if err != nil {
		return toolError("rating", err), nil
	}
	result, err := e.Simulate(ctx, cfg.Country, cfg.Year, whatIf)
	if err != nil {
		return toolError("rating", err), nil
	}
	return jsonResult(ratingResponse{RatingResult: result})
}

func (h *toolHandler) handleGetConstituents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country := request.GetString("country", "")
	year := request.GetInt("year", h.baseCfg.Year)

	e, err := h.provider.Engine()
	if err != nil {
		return toolError("rating", err), nil
	}
	result, err := e.Rate(ctx, country, year)
	if err != nil {
		return toolError("rating", err), nil
	}
	return jsonResult(constituentsResponse{Country: result.Country, Year: result.Year, Rows: result.ConstituentTable})
}

func (h *toolHandler) handleGetRatingList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := h.provider.Engine()
	if err != nil {
		return toolError("rating list", err), nil
	}
	year := request.GetInt("year", h.baseCfg.Year)
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return toolError("rating list", schema.ErrNoData), nil
		}
		year = latest
	}

	var store contract.CacheStore
	if h.mgr != nil {
		store = h.mgr.GetSnapshotStore()
	}
	entries, err := e.CachedRatingList(ctx, year, store, h.baseCfg.CacheTTL)
	if err != nil {
		return toolError("rating list", err), nil
	}
	if l := request.GetInt("limit", 0); l > 0 && l < len(entries) {
		entries = entries[:l]
	}
	return jsonResult(entries)
}

func (h *toolHandler) handleGetOverrides(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country := request.GetString("country", "")
	e, err := h.provider.Engine()
	if err != nil {
		return toolError("overrides", err), nil
	}
	year, err := e.ResolveYear(country, request.GetInt("year", h.baseCfg.Year))
	if err != nil {
		return toolError("overrides", err), nil
	}
	res, err := e.Overrides(ctx, country, year)
	if err != nil {
		return toolError("overrides", err), nil
	}
	return jsonResult(overridesResponse{Country: country, Year: year, LoadResult: res})
}

func (h *toolHandler) handleSaveOverrides(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country, err := request.RequireString("country")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	year, err := request.RequireInt("year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var body saveRequest
	if err := request.BindArguments(&body); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid records: %v", err)), nil
	}

	e, err := h.provider.Engine()
	if err != nil {
		return toolError("save", err), nil
	}
	saved, err := e.SaveOverrides(ctx, country, year, body.Records)
	if err != nil {
		return toolError("save", err), nil
	}
	return jsonResult(overridesResponse{
		Country:    country,
		Year:       year,
		LoadResult: core.LoadResult{Records: saved, Status: schema.OverridesLoaded},
	})
}

func (h *toolHandler) handleGetPeers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket := request.GetString("bucket", "")
	e, err := h.provider.Engine()
	if err != nil {
		return toolError("peers", err), nil
	}
	year := request.GetInt("year", h.baseCfg.Year)
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return toolError("peers", schema.ErrNoData), nil
		}
		year = latest
	}
	peers, err := e.Peers(ctx, year, bucket)
	if err != nil {
		return toolError("peers", err), nil
	}
	return jsonResult(peersResponse{Year: year, Bucket: bucket, Peers: peers})
}

func (h *toolHandler) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	country := request.GetString("country", "")
	e, err := h.provider.Engine()
	if err != nil {
		return toolError("history", err), nil
	}
	points, err := e.History(ctx, country)
	if err != nil {
		return toolError("history", err), nil
	}
	return jsonResult(points)
}

// whatIfArgument reads the optional what_if object. Numbers arrive as float64 from JSON.
func whatIfArgument(request mcp.CallToolRequest) (map[string]float64, error) {
	raw, ok := request.GetArguments()["what_if"]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object of key to number")
	}
	out := make(map[string]float64, len(obj))
	for k, v := range obj {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("adjustment for %q is not a number", k)
		}
		out[k] = f
	}
	return out, nil
}

// toolError turns an engine error into a tool-level error result, naming its class.
func toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case schema.IsTransportError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s failed, override ledger unavailable: %v", op, err))
	case schema.IsConfigurationError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s failed, static tables are inconsistent: %v", op, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
