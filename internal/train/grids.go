package train

import (
	"sort"

	"github.com/paveg/incomeclf/internal/model"
)

// Grid maps hyperparameter names to the values searched for one family.
// Criterion values are encoded numerically (model.CriterionGini/Entropy).
type Grid map[string][]float64

// grids holds the per-family search spaces, carried over from the source
// system's tuning configuration reduced to the parameters the Go estimators
// expose.
var grids = map[model.Family]Grid{
	model.FamilyLogistic: {
		"C": {0.01, 0.1, 1, 10},
	},
	model.FamilyTree: {
		"criterion":         {model.CriterionGini, model.CriterionEntropy},
		"max_depth":         {3, 4, 5, 6},
		"min_samples_split": {2, 3, 4, 5},
		"min_samples_leaf":  {1, 2, 3},
	},
	model.FamilySVC: {
		"C": {0.1, 1, 10},
	},
	model.FamilyForest: {
		"n_estimators":      {20, 50, 100},
		"max_depth":         {5, 8, 10},
		"min_samples_split": {2, 5, 10},
	},
	model.FamilyGBT: {
		"learning_rate":     {0.1, 0.2},
		"n_estimators":      {50, 100},
		"max_depth":         {3},
	},
}

// GridFor returns the search space of a family.
func GridFor(f model.Family) Grid { return grids[f] }

// Enumerate expands a grid into every parameter assignment. Keys are walked
// in sorted order so enumeration is deterministic across runs.
func (g Grid) Enumerate() []model.Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []model.Params{{}}
	for _, k := range keys {
		next := make([]model.Params, 0, len(out)*len(g[k]))
		for _, base := range out {
			for _, v := range g[k] {
				p := base.Clone()
				p[k] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}
