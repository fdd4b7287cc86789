package model

import (
	"fmt"
	"math"
	"sort"
)

// GradientBoosting boosts shallow regression trees on the logistic loss.
// Each stage fits the current gradient (label minus predicted probability)
// and leaves take a Newton step.
type GradientBoosting struct {
	NumTrees  int
	LearnRate float64
	MaxDepth  int
	MinLeaf   int
	Seed      int64

	InitScore   float64 // log-odds of the training positive rate
	Trees       []*RegNode
	NumFeatures int
	Importance  []float64
}

// RegNode is one node of a boosted regression tree.
type RegNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *RegNode
	Right     *RegNode
	Value     float64
}

// NewGradientBoosting builds an unfitted model from a grid parameter
// assignment.
func NewGradientBoosting(p Params, seed int64) *GradientBoosting {
	m := &GradientBoosting{
		NumTrees:  100,
		LearnRate: 0.1,
		MaxDepth:  3,
		MinLeaf:   1,
		Seed:      seed,
	}
	if v, ok := p["n_estimators"]; ok {
		m.NumTrees = int(v)
	}
	if v, ok := p["learning_rate"]; ok {
		m.LearnRate = v
	}
	if v, ok := p["max_depth"]; ok {
		m.MaxDepth = int(v)
	}
	return m
}

// Family implements Classifier.
func (m *GradientBoosting) Family() Family { return FamilyGBT }

// Fit implements Classifier.
func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	n, p, err := checkMatrix(X, y)
	if err != nil {
		return fmt.Errorf("gbt: %w", err)
	}
	m.NumFeatures = p
	m.Importance = make([]float64, p)

	pos := 0
	for _, lab := range y {
		pos += lab
	}
	rate := float64(pos) / float64(n)
	m.InitScore = math.Log(rate / (1 - rate))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.InitScore
	}
	residual := make([]float64, n)
	hessian := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	m.Trees = make([]*RegNode, 0, m.NumTrees)
	for k := 0; k < m.NumTrees; k++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(scores[i])
			residual[i] = float64(y[i]) - prob
			hessian[i] = math.Max(prob*(1-prob), 1e-12)
		}
		root := m.buildReg(X, residual, hessian, idx, 0)
		m.Trees = append(m.Trees, root)
		for i := 0; i < n; i++ {
			scores[i] += m.LearnRate * predictReg(root, X[i])
			if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
				return fmt.Errorf("gbt: scores diverged at stage %d", k)
			}
		}
	}
	m.Importance = normalize(m.Importance)
	return nil
}

// buildReg grows one regression tree on the gradient/hessian pair.
func (m *GradientBoosting) buildReg(X [][]float64, g, h []float64, idx []int, depth int) *RegNode {
	var sumG, sumH float64
	for _, i := range idx {
		sumG += g[i]
		sumH += h[i]
	}
	node := &RegNode{Value: sumG / sumH}
	if depth >= m.MaxDepth || len(idx) < 2*m.MinLeaf {
		node.Leaf = true
		return node
	}

	best := m.bestRegSplit(X, g, h, idx, sumG, sumH)
	if best.feature < 0 {
		node.Leaf = true
		return node
	}
	m.Importance[best.feature] += best.gain

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = m.buildReg(X, g, h, best.left, depth+1)
	node.Right = m.buildReg(X, g, h, best.right, depth+1)
	return node
}

type regSplit struct {
	gain      float64
	feature   int
	threshold float64
	left      []int
	right     []int
}

func (m *GradientBoosting) bestRegSplit(X [][]float64, g, h []float64, idx []int, sumG, sumH float64) regSplit {
	parentScore := sumG * sumG / sumH
	best := regSplit{gain: 1e-12, feature: -1}

	type pair struct {
		v float64
		i int
	}
	buf := make([]pair, 0, len(idx))
	for f := 0; f < m.NumFeatures; f++ {
		buf = buf[:0]
		for _, i := range idx {
			buf = append(buf, pair{X[i][f], i})
		}
		sort.Slice(buf, func(a, b int) bool { return buf[a].v < buf[b].v })

		var lG, lH float64
		for s := 0; s < len(buf)-1; s++ {
			i := buf[s].i
			lG += g[i]
			lH += h[i]
			if buf[s].v == buf[s+1].v {
				continue
			}
			if s+1 < m.MinLeaf || len(buf)-s-1 < m.MinLeaf {
				continue
			}
			rG := sumG - lG
			rH := sumH - lH
			gain := lG*lG/lH + rG*rG/rH - parentScore
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

func predictReg(node *RegNode, x []float64) float64 {
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// PredictProba implements Classifier.
func (m *GradientBoosting) PredictProba(x []float64) float64 {
	score := m.InitScore
	for _, tree := range m.Trees {
		score += m.LearnRate * predictReg(tree, x)
	}
	return sigmoid(score)
}

// FeatureImportances implements Classifier.
func (m *GradientBoosting) FeatureImportances() []float64 { return m.Importance }
