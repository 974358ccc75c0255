package schema

// Pillar keys of the built-in catalog.
const (
	EconomyPillar      = "economy"
	InstitutionsPillar = "institutions"
	FiscalPillar       = "fiscal"
	ExternalPillar     = "external"
)

// DefaultCatalogSpec returns the built-in sovereign model catalog:
// 11 factors over 4 pillars, 4 of which roll up 13 constituent variables.
func DefaultCatalogSpec() CatalogSpec {
	return CatalogSpec{
		Pillars: []Pillar{
			{Key: EconomyPillar, HeaderKey: "eco_header", Title: "REAL ECONOMY PILLAR (25%)"},
			{Key: InstitutionsPillar, HeaderKey: "insti_header", Title: "MONETARY & INSTITUTIONS PILLAR (44%)"},
			{Key: FiscalPillar, HeaderKey: "fiscal_header", Title: "FISCAL PILLAR (17%)"},
			{Key: ExternalPillar, HeaderKey: "ext_header", Title: "EXTERNAL PILLAR (14%)"},
		},
		Factors: []FactorDefinition{
			{Key: "wealth_factor", Name: "Wealth", Pillar: EconomyPillar, Position: 1, Weight: "5%", RawKey: "ngdp_pc", Description: "Nominal GDP per capita (US$)"},
			{Key: "size_factor", Name: "Size", Pillar: EconomyPillar, Position: 2, Weight: "18%", RawKey: "ngdp", Description: "Nominal GDP (bil US$)"},
			{Key: "growth_factor", Name: "Growth", Pillar: EconomyPillar, Position: 3, Weight: "2%", RawKey: "growth_avg", Description: "Avg 10Yr GDP Growth t-5 to t+4 (%)"},

			{Key: "inflation_factor", Name: "Inflation", Pillar: InstitutionsPillar, Position: 1, Weight: "3%", RawKey: "inf_avg", Description: "Average 10Yr Inflation t-5 to t+4 (%)"},
			{Key: "default_factor", Name: "Default History", Pillar: InstitutionsPillar, Position: 2, Weight: "9%"},
			{Key: "governance_factor", Name: "Governance", Pillar: InstitutionsPillar, Position: 3, Weight: "32%"},

			{Key: "fiscalperf_factor", Name: "Fiscal Performance", Pillar: FiscalPillar, Position: 1, Weight: "7%"},
			{Key: "govdebt_factor", Name: "Government Debt", Pillar: FiscalPillar, Position: 2, Weight: "10%", RawKey: "gov_debt_gdp", Description: "Government Debt (% of GDP)"},

			{Key: "extperf_factor", Name: "External Performance", Pillar: ExternalPillar, Position: 1, Weight: "5%", RawKey: "cab_avg", Description: "Avg 10Yr Current Account Balance t-5 to t+4 (% of GDP)"},
			{Key: "reservebuffer_factor", Name: "FX Reserves", Pillar: ExternalPillar, Position: 2, Weight: "4%"},
			{Key: "reservestatus_factor", Name: "Reserve Currency Status", Pillar: ExternalPillar, Position: 3, Weight: "5%", RawKey: "reserve_fx", Description: "Reserve Currency Status (1 = Yes, 0 = No)"},
		},
		Variables: []VariableDefinition{
			{Key: "default_hist", Name: "Default History", Description: "Default History Dummy (1=Yes, 0=No)"},
			{Key: "default_decay", Name: "Default Decay", Description: "Default Decay (1 at incidence)"},
			{Key: "voice_acct", Name: "Voice & Accountability", Description: "Voice & Accountability (Z-score)"},
			{Key: "pol_stab", Name: "Political Stability", Description: "Political Stability (Z-score)"},
			{Key: "gov_eff", Name: "Government Effectiveness", Description: "Government Effectiveness (Z-score)"},
			{Key: "reg_qual", Name: "Regulatory Quality", Description: "Regulatory Quality (Z-score)"},
			{Key: "rule_law", Name: "Rule of Law", Description: "Rule of Law (Z-score)"},
			{Key: "cont_corrupt", Name: "Control of Corruption", Description: "Control of Corruption (Z-score)"},
			{Key: "fb_avg", Name: "Fiscal Balance", Description: "Avg 10Yr Fiscal Balance t-5 to t+4 (% of GDP)"},
			{Key: "gov_rev_gdp", Name: "Government Revenue", Description: "Government Revenue (% of GDP)"},
			{Key: "ir_rev", Name: "Interest Payment", Description: "Interest Payment (% of Revenue)"},
			{Key: "reserve_gdp", Name: "FX Reserves to GDP", Description: "FX Reserves (% of GDP)"},
			{Key: "import_cover", Name: "Import Cover", Description: "FX Reserves (months of imports)"},
		},
		Rollups: []RollupRule{
			{Parent: "default_factor", Children: []string{"default_hist", "default_decay"}},
			{Parent: "governance_factor", Children: []string{"voice_acct", "pol_stab", "gov_eff", "reg_qual", "rule_law", "cont_corrupt"}},
			{Parent: "fiscalperf_factor", Children: []string{"fb_avg", "gov_rev_gdp", "ir_rev"}},
			{Parent: "reservebuffer_factor", Children: []string{"reserve_gdp", "import_cover"}},
		},
	}
}

// DefaultCatalog returns the validated built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCatalogSpec())
	if err != nil {
		panic(err) // the built-in table is static
	}
	return c
}

// DefaultRatingScale returns the 22-notch letter scale, 1 = D through 22 = AAA.
func DefaultRatingScale() []RatingScaleEntry {
	letters := []string{
		"D", "C", "CC", "CCC-", "CCC", "CCC+",
		"B-", "B", "B+", "BB-", "BB", "BB+",
		"BBB-", "BBB", "BBB+", "A-", "A", "A+",
		"AA-", "AA", "AA+", "AAA",
	}
	out := make([]RatingScaleEntry, len(letters))
	for i, l := range letters {
		out[i] = RatingScaleEntry{Notch: i + 1, Letter: l}
	}
	return out
}

// RatingBuckets returns the peer buckets over rounded public ratings, in display order.
func RatingBuckets() []RatingBucket {
	return []RatingBucket{
		{Name: "AAA", Low: 22, High: 22},
		{Name: "AA", Low: 19, High: 21},
		{Name: "A", Low: 16, High: 18},
		{Name: "BBB", Low: 13, High: 15},
		{Name: "BB", Low: 10, High: 12},
		{Name: "B", Low: 7, High: 9},
		{Name: "CCC to C", Low: 2, High: 6},
		{Name: "D", Low: 0, High: 1},
		{Name: "ALL", Low: 0, High: 22},
		{Name: "IG", Low: 13, High: 22},
		{Name: "HY", Low: 1, High: 12},
	}
}
