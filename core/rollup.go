package core

import "github.com/kaimin86/credit-rating-deploy/schema"

// Rollup sums child adjustments into their parent keys. Every parent in rules gets an
// entry, 0 when none of its children are present. Children are added in declared order.
// When records repeat a key the last one counts.
func Rollup(records []schema.OverrideRecord, rules map[string][]string) map[string]float64 {
	byKey := make(map[string]float64, len(records))
	for _, r := range records {
		byKey[r.ShortKey] = r.Adjustment
	}
	out := make(map[string]float64, len(rules))
	for parent, children := range rules {
		var sum float64
		for _, child := range children {
			sum += byKey[child]
		}
		out[parent] = sum
	}
	return out
}
