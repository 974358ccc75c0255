package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{
		"wealth_factor", "size_factor", "growth_factor",
		"inflation_factor", "default_factor", "governance_factor",
		"fiscalperf_factor", "govdebt_factor",
		"extperf_factor", "reservebuffer_factor", "reservestatus_factor",
	}, c.FactorKeys())

	rules := c.Rules()
	assert.Len(t, rules, 4)
	assert.ElementsMatch(t, []string{"default_hist", "default_decay"}, rules["default_factor"])
	assert.ElementsMatch(t, []string{"voice_acct", "pol_stab", "gov_eff", "reg_qual", "rule_law", "cont_corrupt"}, rules["governance_factor"])
	assert.ElementsMatch(t, []string{"fb_avg", "gov_rev_gdp", "ir_rev"}, rules["fiscalperf_factor"])
	assert.ElementsMatch(t, []string{"reserve_gdp", "import_cover"}, rules["reservebuffer_factor"])

	parent, ok := c.ParentOf("pol_stab")
	require.True(t, ok)
	assert.Equal(t, "governance_factor", parent)

	v, ok := c.Variable("import_cover")
	require.True(t, ok)
	assert.Equal(t, "reservebuffer_factor", v.Parent)
	assert.Equal(t, "import_cover", v.RawKey)
}

func TestCatalogEditability(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		key      string
		editable bool
	}{
		{"wealth_factor", true},
		{"default_hist", true},
		{"cont_corrupt", true},
		{"default_factor", false},
		{"governance_factor", false},
		{"fiscalperf_factor", false},
		{"reservebuffer_factor", false},
		{ConstKey, false},
		{PredictedRatingKey, false},
		{FinalRatingKey, false},
		{"eco_header", false},
		{"not_a_key", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			e := c.Editability(tt.key)
			assert.Equal(t, tt.editable, e.Adjustment)
			assert.Equal(t, tt.editable, e.Comment)
		})
	}
}

func TestNewCatalogRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CatalogSpec)
		reason string
	}{
		{
			name: "overlapping child",
			mutate: func(s *CatalogSpec) {
				s.Rollups[1].Children = append(s.Rollups[1].Children, "default_hist")
			},
			reason: "claimed by both",
		},
		{
			name: "orphaned variable",
			mutate: func(s *CatalogSpec) {
				s.Variables = append(s.Variables, VariableDefinition{Key: "stray", Name: "Stray"})
			},
			reason: "not a child of any rollup",
		},
		{
			name: "dangling child",
			mutate: func(s *CatalogSpec) {
				s.Rollups[0].Children = append(s.Rollups[0].Children, "missing")
			},
			reason: "not a catalogued variable",
		},
		{
			name: "parent is not a factor",
			mutate: func(s *CatalogSpec) {
				s.Rollups[0].Parent = "nope"
			},
			reason: "not a factor",
		},
		{
			name: "duplicate factor key",
			mutate: func(s *CatalogSpec) {
				s.Factors = append(s.Factors, s.Factors[0])
			},
			reason: "duplicates",
		},
		{
			name: "sentinel key",
			mutate: func(s *CatalogSpec) {
				s.Factors[0].Key = ConstKey
			},
			reason: "reserved key",
		},
		{
			name: "unknown pillar",
			mutate: func(s *CatalogSpec) {
				s.Factors[0].Pillar = "moon"
			},
			reason: "unknown pillar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultCatalogSpec()
			tt.mutate(&spec)
			_, err := NewCatalog(spec)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestDefaultRatingScaleIsTotal(t *testing.T) {
	scale := DefaultRatingScale()
	require.Len(t, scale, MaxNotch)
	for i, e := range scale {
		assert.Equal(t, i+1, e.Notch)
		assert.NotEmpty(t, e.Letter)
	}
	assert.Equal(t, "AAA", scale[MaxNotch-1].Letter)
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Table: "coefficients", Country: "Japan", Year: 2024, Key: "size_factor", Reason: "missing coefficient"}
	assert.Equal(t, "configuration error in coefficients for Japan/2024 [size_factor]: missing coefficient", err.Error())
}
