package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Criterion values accepted by the decision tree grid. The grid encodes the
// criterion as a float: 0 = gini, 1 = entropy.
const (
	CriterionGini    = 0
	CriterionEntropy = 1
)

// DecisionTree is a CART-style binary classifier. Exported fields are
// hyperparameters and fitted state; both are gob-encoded into the artifact.
type DecisionTree struct {
	MaxDepth        int   // 0 => no explicit limit
	MinSamplesSplit int   // minimum samples to attempt a split
	MinSamplesLeaf  int   // minimum samples required in each leaf
	Criterion       int   // CriterionGini or CriterionEntropy
	MaxFeatures     int   // 0 => all features; >0 => random subset per split
	Seed            int64 // seed for feature subsampling
	Balanced        bool  // balanced class weighting

	Root        *TreeNode
	NumFeatures int
	Importance  []float64
}

// TreeNode is one node of a fitted tree. Left holds rows with value <=
// Threshold.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Proba     float64 // positive-class probability at a leaf
	N         int
}

// NewDecisionTree builds an unfitted tree from a grid parameter assignment.
func NewDecisionTree(p Params, seed int64) *DecisionTree {
	t := &DecisionTree{
		MaxDepth:        6,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
		Seed:            seed,
		Balanced:        true,
	}
	if v, ok := p["max_depth"]; ok {
		t.MaxDepth = int(v)
	}
	if v, ok := p["min_samples_split"]; ok {
		t.MinSamplesSplit = int(v)
	}
	if v, ok := p["min_samples_leaf"]; ok {
		t.MinSamplesLeaf = int(v)
	}
	if v, ok := p["criterion"]; ok {
		t.Criterion = int(v)
	}
	if v, ok := p["max_features"]; ok {
		t.MaxFeatures = int(v)
	}
	return t
}

// Family implements Classifier.
func (t *DecisionTree) Family() Family { return FamilyTree }

// Fit implements Classifier.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	n, p, err := checkMatrix(X, y)
	if err != nil {
		return fmt.Errorf("dtree: %w", err)
	}
	t.NumFeatures = p
	t.Importance = make([]float64, p)

	w := make([]float64, n)
	if t.Balanced {
		w = balancedWeights(y)
	} else {
		for i := range w {
			w[i] = 1.0
		}
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rnd := rand.New(rand.NewSource(t.Seed))
	t.Root = t.build(X, y, w, idx, 0, rnd)
	t.Importance = normalize(t.Importance)
	return nil
}

// weightedCounts sums sample weights per class over idx.
func weightedCounts(y []int, w []float64, idx []int) (neg, pos float64) {
	for _, i := range idx {
		if y[i] == 1 {
			pos += w[i]
		} else {
			neg += w[i]
		}
	}
	return neg, pos
}

func (t *DecisionTree) impurity(neg, pos float64) float64 {
	total := neg + pos
	if total == 0 {
		return 0
	}
	pNeg := neg / total
	pPos := pos / total
	if t.Criterion == CriterionEntropy {
		h := 0.0
		if pNeg > 0 {
			h -= pNeg * math.Log2(pNeg)
		}
		if pPos > 0 {
			h -= pPos * math.Log2(pPos)
		}
		return h
	}
	return 1.0 - pNeg*pNeg - pPos*pPos
}

type treeSplit struct {
	gain      float64
	feature   int
	threshold float64
	left      []int
	right     []int
}

func (t *DecisionTree) build(X [][]float64, y []int, w []float64, idx []int, depth int, rnd *rand.Rand) *TreeNode {
	neg, pos := weightedCounts(y, w, idx)
	node := &TreeNode{N: len(idx), Proba: leafProba(neg, pos)}

	if neg == 0 || pos == 0 ||
		len(idx) < t.MinSamplesSplit ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		node.Leaf = true
		return node
	}

	best := t.bestSplit(X, y, w, idx, rnd)
	if best.feature < 0 {
		node.Leaf = true
		return node
	}

	parentImp := t.impurity(neg, pos)
	lNeg, lPos := weightedCounts(y, w, best.left)
	rNeg, rPos := weightedCounts(y, w, best.right)
	total := neg + pos
	weighted := (lNeg+lPos)/total*t.impurity(lNeg, lPos) + (rNeg+rPos)/total*t.impurity(rNeg, rPos)
	// Importance accumulates impurity decrease weighted by node size.
	t.Importance[best.feature] += total * (parentImp - weighted)

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = t.build(X, y, w, best.left, depth+1, rnd)
	node.Right = t.build(X, y, w, best.right, depth+1, rnd)
	return node
}

func (t *DecisionTree) bestSplit(X [][]float64, y []int, w []float64, idx []int, rnd *rand.Rand) treeSplit {
	p := t.NumFeatures
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		rnd.Shuffle(p, func(i, j int) { features[i], features[j] = features[j], features[i] })
		features = features[:t.MaxFeatures]
		sort.Ints(features) // stable scan order regardless of shuffle
	}

	neg, pos := weightedCounts(y, w, idx)
	parentImp := t.impurity(neg, pos)
	total := neg + pos

	best := treeSplit{gain: 0, feature: -1}
	type pair struct {
		v float64
		i int
	}
	buf := make([]pair, 0, len(idx))
	for _, f := range features {
		buf = buf[:0]
		for _, i := range idx {
			buf = append(buf, pair{X[i][f], i})
		}
		sort.Slice(buf, func(a, b int) bool { return buf[a].v < buf[b].v })

		// Scan thresholds between distinct adjacent values, keeping running
		// weighted class sums on the left side.
		var lNeg, lPos float64
		leftN := 0
		for s := 0; s < len(buf)-1; s++ {
			i := buf[s].i
			if y[i] == 1 {
				lPos += w[i]
			} else {
				lNeg += w[i]
			}
			leftN++
			if buf[s].v == buf[s+1].v {
				continue
			}
			if leftN < t.MinSamplesLeaf || len(buf)-leftN < t.MinSamplesLeaf {
				continue
			}
			rNeg := neg - lNeg
			rPos := pos - lPos
			weighted := (lNeg+lPos)/total*t.impurity(lNeg, lPos) + (rNeg+rPos)/total*t.impurity(rNeg, rPos)
			gain := parentImp - weighted
			if gain > best.gain {
				best.gain = gain
				best.feature = f
				best.threshold = (buf[s].v + buf[s+1].v) / 2.0
			}
		}
	}

	if best.feature < 0 {
		return best
	}
	for _, i := range idx {
		if X[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best
}

func leafProba(neg, pos float64) float64 {
	total := neg + pos
	if total == 0 {
		return 0.5
	}
	return pos / total
}

// PredictProba implements Classifier.
func (t *DecisionTree) PredictProba(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0.5
	}
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Proba
}

// FeatureImportances implements Classifier.
func (t *DecisionTree) FeatureImportances() []float64 { return t.Importance }
