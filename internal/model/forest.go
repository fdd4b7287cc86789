package model

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest bags seeded CART trees over bootstrap samples with sqrt
// feature subsampling at each split.
type RandomForest struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64

	Trees       []*DecisionTree
	NumFeatures int
	Importance  []float64
}

// NewRandomForest builds an unfitted forest from a grid parameter assignment.
func NewRandomForest(p Params, seed int64) *RandomForest {
	f := &RandomForest{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
	if v, ok := p["n_estimators"]; ok {
		f.NumTrees = int(v)
	}
	if v, ok := p["max_depth"]; ok {
		f.MaxDepth = int(v)
	}
	if v, ok := p["min_samples_split"]; ok {
		f.MinSamplesSplit = int(v)
	}
	return f
}

// Family implements Classifier.
func (f *RandomForest) Family() Family { return FamilyForest }

// Fit implements Classifier.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	n, p, err := checkMatrix(X, y)
	if err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	f.NumFeatures = p
	maxFeatures := int(math.Ceil(math.Sqrt(float64(p))))

	rnd := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*DecisionTree, 0, f.NumTrees)
	f.Importance = make([]float64, p)

	for k := 0; k < f.NumTrees; k++ {
		// Bootstrap sample with replacement. A member tree may see a single
		// class; such trees degrade to constant leaves via the plain fit
		// below rather than failing the whole forest.
		sampleX := make([][]float64, n)
		sampleY := make([]int, n)
		for i := 0; i < n; i++ {
			r := rnd.Intn(n)
			sampleX[i] = X[r]
			sampleY[i] = y[r]
		}
		tree := NewDecisionTree(Params{
			"max_depth":         float64(f.MaxDepth),
			"min_samples_split": float64(f.MinSamplesSplit),
			"max_features":      float64(maxFeatures),
		}, rnd.Int63())
		if err := tree.fitAllowSingleClass(sampleX, sampleY); err != nil {
			return fmt.Errorf("forest: member %d: %w", k, err)
		}
		f.Trees = append(f.Trees, tree)
		for j, imp := range tree.Importance {
			f.Importance[j] += imp
		}
	}
	f.Importance = normalize(f.Importance)
	return nil
}

// fitAllowSingleClass trains a member tree, tolerating bootstrap samples
// that collapsed to one class.
func (t *DecisionTree) fitAllowSingleClass(X [][]float64, y []int) error {
	pos := 0
	for _, lab := range y {
		pos += lab
	}
	if pos == 0 || pos == len(y) {
		t.NumFeatures = len(X[0])
		t.Importance = make([]float64, t.NumFeatures)
		t.Root = &TreeNode{Leaf: true, N: len(y), Proba: float64(pos) / float64(len(y))}
		return nil
	}
	return t.Fit(X, y)
}

// PredictProba implements Classifier: the mean positive-class probability
// across member trees.
func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0.5
	}
	total := 0.0
	for _, t := range f.Trees {
		total += t.PredictProba(x)
	}
	return total / float64(len(f.Trees))
}

// FeatureImportances implements Classifier.
func (f *RandomForest) FeatureImportances() []float64 { return f.Importance }
