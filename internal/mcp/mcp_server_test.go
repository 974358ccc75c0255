package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
	mcp_internal "github.com/kaimin86/credit-rating-deploy/internal/mcp"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDataDir writes tables where model_rating = 10 + wealth Z-score.
func writeDataDir(t *testing.T) string {
	t.Helper()
	keys := schema.DefaultCatalog().FactorKeys()

	var z strings.Builder
	z.WriteString("country,year,rating," + strings.Join(keys, ",") + "\n")
	for _, row := range []struct {
		country string
		year    int
		rating  string
		wealth  float64
	}{
		{"Japan", 2023, "17", 7},
		{"Japan", 2024, "18", 8},
		{"Chile", 2024, "16.6", 4.25},
	} {
		cells := []string{row.country, fmt.Sprint(row.year), row.rating}
		for _, k := range keys {
			v := 0.0
			if k == "wealth_factor" {
				v = row.wealth
			}
			cells = append(cells, fmt.Sprint(v))
		}
		z.WriteString(strings.Join(cells, ",") + "\n")
	}

	var c strings.Builder
	c.WriteString("short_name,coefficient\nconst,10\n")
	for _, k := range keys {
		coef := 0
		if k == "wealth_factor" {
			coef = 1
		}
		fmt.Fprintf(&c, "%s,%d\n", k, coef)
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zscores.csv"), []byte(z.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coefficients.csv"), []byte(c.String()), 0o644))
	return dir
}

func newTestServer(t *testing.T) (*server.MCPServer, *iocache.MemoryPartitionStore) {
	t.Helper()
	dir := writeDataDir(t)
	ledger := iocache.NewMemoryPartitionStore()
	_, err := ledger.Provision(context.Background(), "Japan")
	require.NoError(t, err)

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetSnapshotStore").Return(nil)

	static := staticdata.NewCache(dir, nil)
	provider := core.NewEngineProvider(static, ledger, nil)
	cfg := &contract.Config{DataDir: dir, CacheTTL: time.Hour}
	return mcp_internal.NewMCPServer(cfg, provider, mgr), ledger
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)
	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServer_Tools(t *testing.T) {
	s, _ := newTestServer(t)
	for _, name := range []string{
		"get_rating", "get_constituents", "get_rating_list",
		"get_overrides", "save_overrides", "get_peers", "get_history",
	} {
		assert.NotNil(t, s.GetTool(name), name)
	}
}

func TestMCPServerHandlers_Rating(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("latest year", func(t *testing.T) {
		res := call(t, s, "get_rating", map[string]any{"country": "Japan"})
		require.False(t, res.IsError, text(res))
		var r schema.RatingResult
		require.NoError(t, json.Unmarshal([]byte(text(res)), &r))
		assert.Equal(t, 2024, r.Year)
		assert.Equal(t, 18.0, r.FinalRating)
		assert.Equal(t, "A+", r.FinalLetter)
		assert.Equal(t, schema.OverridesLoaded, r.Overrides)
		assert.Empty(t, r.ConstituentTable)
		assert.NotEmpty(t, r.FactorTable)
	})

	t.Run("what if", func(t *testing.T) {
		res := call(t, s, "get_rating", map[string]any{
			"country": "Japan",
			"year":    2023.0,
			"what_if": map[string]any{"wealth_factor": 1.0},
		})
		require.False(t, res.IsError, text(res))
		var r schema.RatingResult
		require.NoError(t, json.Unmarshal([]byte(text(res)), &r))
		assert.Equal(t, 18.0, r.FinalRating)
	})

	t.Run("what if not a number", func(t *testing.T) {
		res := call(t, s, "get_rating", map[string]any{
			"country": "Japan",
			"what_if": map[string]any{"wealth_factor": "high"},
		})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "invalid what_if")
	})

	t.Run("unknown country", func(t *testing.T) {
		res := call(t, s, "get_rating", map[string]any{"country": "Atlantis"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "no static data")
	})

	t.Run("constituents", func(t *testing.T) {
		res := call(t, s, "get_constituents", map[string]any{"country": "Chile"})
		require.False(t, res.IsError, text(res))
		assert.Contains(t, text(res), "gov_eff")
		assert.Contains(t, text(res), `"year": 2024`)
	})
}

func TestMCPServerHandlers_Lists(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s, "get_rating_list", map[string]any{})
	require.False(t, res.IsError, text(res))
	var entries []schema.RatingListEntry
	require.NoError(t, json.Unmarshal([]byte(text(res)), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Japan", entries[0].Country)
	assert.Equal(t, schema.OverridesNoPartition, entries[1].Overrides)

	res = call(t, s, "get_rating_list", map[string]any{"limit": 1.0})
	require.NoError(t, json.Unmarshal([]byte(text(res)), &entries))
	assert.Len(t, entries, 1)

	res = call(t, s, "get_peers", map[string]any{"bucket": "A"})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "Chile")

	res = call(t, s, "get_peers", map[string]any{"bucket": "ZZ"})
	assert.True(t, res.IsError)

	res = call(t, s, "get_history", map[string]any{"country": "Japan"})
	require.False(t, res.IsError, text(res))
	var points []schema.HistoryPoint
	require.NoError(t, json.Unmarshal([]byte(text(res)), &points))
	require.Len(t, points, 2)
	assert.Equal(t, 2023, points[0].Year)
}

func TestMCPServerHandlers_Overrides(t *testing.T) {
	s, ledger := newTestServer(t)

	res := call(t, s, "save_overrides", map[string]any{
		"country": "Japan",
		"year":    2024.0,
		"records": []any{
			map[string]any{"short_key": "gov_eff", "adjustment": -1.0, "comment": "elections"},
		},
	})
	require.False(t, res.IsError, text(res))

	rows, err := ledger.ReadRows(context.Background(), schema.PartitionHandle{Country: "Japan"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "gov_eff", rows[0].ShortName)

	res = call(t, s, "get_overrides", map[string]any{"country": "Japan"})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "elections")

	res = call(t, s, "get_rating", map[string]any{"country": "Japan"})
	var r schema.RatingResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &r))
	assert.Equal(t, 17.0, r.FinalRating)

	t.Run("not editable", func(t *testing.T) {
		res := call(t, s, "save_overrides", map[string]any{
			"country": "Japan",
			"year":    2024.0,
			"records": []any{map[string]any{"short_key": "governance_factor", "adjustment": 1.0}},
		})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "not editable")
	})

	t.Run("missing year", func(t *testing.T) {
		res := call(t, s, "save_overrides", map[string]any{"country": "Japan", "records": []any{}})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "year")
	})

	t.Run("no partition", func(t *testing.T) {
		res := call(t, s, "save_overrides", map[string]any{
			"country": "Chile",
			"year":    2024.0,
			"records": []any{map[string]any{"short_key": "wealth_factor", "adjustment": 1.0}},
		})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "partition not found")
	})
}
