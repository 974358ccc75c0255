package schema

import (
	"fmt"
	"slices"
	"sort"
)

// Pillar groups factors under a section header.
type Pillar struct {
	Key       string `yaml:"key" json:"key"`
	HeaderKey string `yaml:"header_key" json:"header_key"`
	Title     string `yaml:"title" json:"title"`
}

// FactorDefinition describes one of the model factors.
// Independent factors carry the raw variable they are standardized from.
type FactorDefinition struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	Pillar      string `yaml:"pillar" json:"pillar"`
	Position    int    `yaml:"position" json:"position"`
	Weight      string `yaml:"weight,omitempty" json:"weight,omitempty"`
	RawKey      string `yaml:"raw_key,omitempty" json:"raw_key,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// VariableDefinition describes a constituent variable that rolls up into a parent factor.
type VariableDefinition struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Parent      string `yaml:"parent,omitempty" json:"parent,omitempty"`
	RawKey      string `yaml:"raw_key,omitempty" json:"raw_key,omitempty"`
}

// RollupRule maps a parent factor to the fixed set of children whose adjustments it sums.
type RollupRule struct {
	Parent   string   `yaml:"parent" json:"parent"`
	Children []string `yaml:"children" json:"children"`
}

// CatalogSpec is the declarative form of a catalog, as written in catalog.yaml.
type CatalogSpec struct {
	Pillars   []Pillar             `yaml:"pillars"`
	Factors   []FactorDefinition   `yaml:"factors"`
	Variables []VariableDefinition `yaml:"variables"`
	Rollups   []RollupRule         `yaml:"rollups"`
}

// Editability says which columns of a row an analyst may change.
type Editability struct {
	Adjustment bool `json:"adjustment"`
	Comment    bool `json:"comment"`
}

// Catalog is the validated, indexed factor/variable schema. It is immutable once built.
type Catalog struct {
	spec       CatalogSpec
	factorKeys []string // canonical order
	factors    map[string]FactorDefinition
	variables  map[string]VariableDefinition
	pillars    map[string]Pillar
	rules      map[string][]string
	parentOf   map[string]string
}

// NewCatalog validates spec and builds its indexes.
// Duplicate keys, dangling references, and overlapping or orphaned rollup children
// are rejected with a ConfigurationError.
func NewCatalog(spec CatalogSpec) (*Catalog, error) {
	c := &Catalog{
		spec:      spec,
		factors:   make(map[string]FactorDefinition, len(spec.Factors)),
		variables: make(map[string]VariableDefinition, len(spec.Variables)),
		pillars:   make(map[string]Pillar, len(spec.Pillars)),
		rules:     make(map[string][]string, len(spec.Rollups)),
		parentOf:  make(map[string]string),
	}
	fail := func(key, format string, args ...any) error {
		return &ConfigurationError{Table: "catalog", Key: key, Reason: fmt.Sprintf(format, args...)}
	}

	if len(spec.Pillars) == 0 || len(spec.Factors) == 0 {
		return nil, fail("", "catalog needs at least one pillar and one factor")
	}

	seen := make(map[string]string)
	claim := func(key, what string) error {
		if key == "" {
			return fail(key, "%s with empty key", what)
		}
		if IsSentinelKey(key) {
			return fail(key, "%s uses reserved key", what)
		}
		if prev, ok := seen[key]; ok {
			return fail(key, "%s duplicates %s", what, prev)
		}
		seen[key] = what
		return nil
	}

	pillarOrder := make(map[string]int, len(spec.Pillars))
	for i, p := range spec.Pillars {
		if err := claim(p.Key, "pillar"); err != nil {
			return nil, err
		}
		if err := claim(p.HeaderKey, "pillar header"); err != nil {
			return nil, err
		}
		pillarOrder[p.Key] = i
		c.pillars[p.Key] = p
	}

	for _, f := range spec.Factors {
		if err := claim(f.Key, "factor"); err != nil {
			return nil, err
		}
		if _, ok := c.pillars[f.Pillar]; !ok {
			return nil, fail(f.Key, "factor references unknown pillar %q", f.Pillar)
		}
		c.factors[f.Key] = f
	}

	for _, v := range spec.Variables {
		if err := claim(v.Key, "variable"); err != nil {
			return nil, err
		}
		if v.RawKey == "" {
			v.RawKey = v.Key
		}
		c.variables[v.Key] = v
	}

	for _, r := range spec.Rollups {
		if _, ok := c.factors[r.Parent]; !ok {
			return nil, fail(r.Parent, "rollup parent is not a factor")
		}
		if _, dup := c.rules[r.Parent]; dup {
			return nil, fail(r.Parent, "rollup parent declared twice")
		}
		if c.factors[r.Parent].RawKey != "" {
			return nil, fail(r.Parent, "rollup parent cannot also carry raw variable %q", c.factors[r.Parent].RawKey)
		}
		if len(r.Children) == 0 {
			return nil, fail(r.Parent, "rollup has no children")
		}
		for _, child := range r.Children {
			v, ok := c.variables[child]
			if !ok {
				return nil, fail(child, "rollup child of %s is not a catalogued variable", r.Parent)
			}
			if other, ok := c.parentOf[child]; ok {
				return nil, fail(child, "variable claimed by both %s and %s", other, r.Parent)
			}
			if v.Parent != "" && v.Parent != r.Parent {
				return nil, fail(child, "variable declares parent %s but rollup assigns %s", v.Parent, r.Parent)
			}
			v.Parent = r.Parent
			c.variables[child] = v
			c.parentOf[child] = r.Parent
		}
		c.rules[r.Parent] = slices.Clone(r.Children)
	}

	for _, v := range spec.Variables {
		if _, ok := c.parentOf[v.Key]; !ok {
			return nil, fail(v.Key, "variable is not a child of any rollup")
		}
	}

	ordered := slices.Clone(spec.Factors)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := pillarOrder[ordered[i].Pillar], pillarOrder[ordered[j].Pillar]
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Position < ordered[j].Position
	})
	for _, f := range ordered {
		c.factorKeys = append(c.factorKeys, f.Key)
	}

	return c, nil
}

// Spec returns the declarative form the catalog was built from.
func (c *Catalog) Spec() CatalogSpec { return c.spec }

// FactorKeys returns the factor keys in canonical order: pillar order, then position.
func (c *Catalog) FactorKeys() []string { return slices.Clone(c.factorKeys) }

// Pillars returns the pillars in display order.
func (c *Catalog) Pillars() []Pillar { return slices.Clone(c.spec.Pillars) }

// FactorsIn returns the factors of one pillar in canonical order.
func (c *Catalog) FactorsIn(pillar string) []FactorDefinition {
	var out []FactorDefinition
	for _, k := range c.factorKeys {
		if f := c.factors[k]; f.Pillar == pillar {
			out = append(out, f)
		}
	}
	return out
}

// Factor looks up a factor definition.
func (c *Catalog) Factor(key string) (FactorDefinition, bool) {
	f, ok := c.factors[key]
	return f, ok
}

// Variable looks up a leaf variable definition.
func (c *Catalog) Variable(key string) (VariableDefinition, bool) {
	v, ok := c.variables[key]
	return v, ok
}

// Rules returns a copy of the rollup rule table.
func (c *Catalog) Rules() map[string][]string {
	out := make(map[string][]string, len(c.rules))
	for p, ch := range c.rules {
		out[p] = slices.Clone(ch)
	}
	return out
}

// Children returns the rollup children of parent in declared order.
func (c *Catalog) Children(parent string) []string { return slices.Clone(c.rules[parent]) }

// IsRollupParent reports whether key is a factor whose adjustment is derived.
func (c *Catalog) IsRollupParent(key string) bool {
	_, ok := c.rules[key]
	return ok
}

// ParentOf returns the rollup parent of a leaf variable.
func (c *Catalog) ParentOf(key string) (string, bool) {
	p, ok := c.parentOf[key]
	return p, ok
}

// Known reports whether key is a catalogued factor or variable.
func (c *Catalog) Known(key string) bool {
	if _, ok := c.factors[key]; ok {
		return true
	}
	_, ok := c.variables[key]
	return ok
}

// Editability returns the editable columns for a row key.
// Headers, sentinels and rollup parents are read-only; independent factors and leaf
// variables accept an adjustment and a comment.
func (c *Catalog) Editability(key string) Editability {
	if IsSentinelKey(key) || c.IsRollupParent(key) {
		return Editability{}
	}
	if c.Known(key) {
		return Editability{Adjustment: true, Comment: true}
	}
	return Editability{}
}
