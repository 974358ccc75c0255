package core

import "github.com/kaimin86/credit-rating-deploy/schema"

// tableInput carries everything the table builders read.
type tableInput struct {
	catalog     *schema.Catalog
	model       ModelOutput
	zscores     schema.Observation
	raw         schema.Observation
	adjustments map[string]float64
	comments    map[string]string
	modelLetter string
	finalLetter string
	total       float64
	final       float64
}

func ptr(v float64) *float64 { return &v }

// buildFactorTable lays out the 11-factor view as an ordered node list:
// constant, then each pillar header followed by its factors, then the final section
// with the predicted and final rating summaries.
func buildFactorTable(in tableInput) []schema.TableRow {
	notches := make(map[string]schema.FactorNotch, len(in.model.Notches))
	for _, n := range in.model.Notches {
		notches[n.Key] = n
	}

	rows := []schema.TableRow{{
		Kind:        schema.ConstNode,
		Key:         schema.ConstKey,
		Name:        schema.ConstName,
		Coefficient: ptr(in.model.Constant),
		ZScore:      ptr(1),
		Notch:       ptr(in.model.Constant),
		Editable:    in.catalog.Editability(schema.ConstKey),
	}}

	for _, p := range in.catalog.Pillars() {
		rows = append(rows, headerRow(p.HeaderKey, p.Title))
		for _, f := range in.catalog.FactorsIn(p.Key) {
			n := notches[f.Key]
			rows = append(rows, schema.TableRow{
				Kind:        factorKind(in.catalog, f.Key),
				Key:         f.Key,
				Name:        f.Name,
				Weight:      f.Weight,
				Coefficient: ptr(n.Coefficient),
				ZScore:      ptr(n.ZScore),
				Notch:       ptr(n.Notch),
				Adjustment:  ptr(in.adjustments[f.Key]),
				Comment:     in.comments[f.Key],
				Editable:    in.catalog.Editability(f.Key),
			})
		}
	}

	rows = append(rows,
		headerRow(schema.FinalHeaderKey, schema.FinalHeaderTitle),
		schema.TableRow{
			Kind:       schema.SummaryNode,
			Key:        schema.PredictedRatingKey,
			Name:       schema.PredictedRatingName,
			Notch:      ptr(in.model.ModelRating),
			Adjustment: ptr(in.total),
			Letter:     in.modelLetter,
		},
		schema.TableRow{
			Kind:   schema.SummaryNode,
			Key:    schema.FinalRatingKey,
			Name:   schema.FinalRatingName,
			Notch:  ptr(in.final),
			Letter: in.finalLetter,
		},
	)
	return rows
}

// buildConstituentTable lays out the constituent view: each pillar header, then each
// factor followed by the leaf variables that roll up into it. Independent factors carry
// their raw variable; leaves carry their own adjustments and rollup parents the sums.
func buildConstituentTable(in tableInput) []schema.TableRow {
	var rows []schema.TableRow
	for _, p := range in.catalog.Pillars() {
		rows = append(rows, headerRow(p.HeaderKey, p.Title))
		for _, f := range in.catalog.FactorsIn(p.Key) {
			row := schema.TableRow{
				Kind:        factorKind(in.catalog, f.Key),
				Key:         f.Key,
				Name:        f.Name,
				Description: f.Description,
				Weight:      f.Weight,
				ZScore:      lookup(in.zscores, f.Key),
				Adjustment:  ptr(in.adjustments[f.Key]),
				Comment:     in.comments[f.Key],
				Editable:    in.catalog.Editability(f.Key),
			}
			if f.RawKey != "" {
				row.RawValue = lookup(in.raw, f.RawKey)
			}
			rows = append(rows, row)

			for _, child := range in.catalog.Children(f.Key) {
				v, _ := in.catalog.Variable(child)
				rows = append(rows, schema.TableRow{
					Kind:        schema.LeafNode,
					Key:         v.Key,
					Name:        v.Name,
					Description: v.Description,
					RawValue:    lookup(in.raw, v.RawKey),
					ZScore:      lookup(in.zscores, v.Key),
					Adjustment:  ptr(in.adjustments[v.Key]),
					Comment:     in.comments[v.Key],
					Editable:    in.catalog.Editability(v.Key),
				})
			}
		}
	}
	return rows
}

func headerRow(key, title string) schema.TableRow {
	return schema.TableRow{Kind: schema.HeaderNode, Key: key, Name: title}
}

func factorKind(c *schema.Catalog, key string) schema.NodeKind {
	if c.IsRollupParent(key) {
		return schema.RollupNode
	}
	return schema.FactorNode
}

func lookup(o schema.Observation, key string) *float64 {
	if v, ok := o.Value(key); ok {
		return &v
	}
	return nil
}
