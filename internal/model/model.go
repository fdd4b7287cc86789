// Package model implements the binary classifier families the selector
// competes against each other: logistic regression, CART decision tree,
// linear SVC, random forest, and gradient-boosted trees.
//
// Each family implements the Classifier interface and is selected at runtime
// by its Family tag. All concrete types are gob-registered so a trained
// estimator can travel inside the champion artifact.
package model

import (
	"encoding/gob"
	"fmt"
	"math"
)

// Family enumerates the classifier families. The declaration order doubles
// as the tie-break priority of the selector: earlier families are considered
// simpler and win ties.
type Family int

const (
	FamilyLogistic Family = iota
	FamilyTree
	FamilySVC
	FamilyForest
	FamilyGBT
)

// Families returns all families in tie-break priority order.
func Families() []Family {
	return []Family{FamilyLogistic, FamilyTree, FamilySVC, FamilyForest, FamilyGBT}
}

// String returns the reporting name of the family.
func (f Family) String() string {
	switch f {
	case FamilyLogistic:
		return "Logistic Regression"
	case FamilyTree:
		return "Decision Tree"
	case FamilySVC:
		return "Support Vector Machine"
	case FamilyForest:
		return "Random Forest"
	case FamilyGBT:
		return "Gradient Boosting"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Classifier is the common contract of every family. Implementations are not
// safe for concurrent Fit, but PredictProba and FeatureImportances are
// read-only after Fit and safe to call from concurrent goroutines.
type Classifier interface {
	// Fit trains on the transformed matrix X (n x p) and binary labels y.
	Fit(X [][]float64, y []int) error
	// PredictProba returns the probability of the positive class for one
	// transformed vector.
	PredictProba(x []float64) float64
	// FeatureImportances returns the normalized global importance vector
	// aligned to the fit-time column order.
	FeatureImportances() []float64
	// Family returns the enumerated family tag.
	Family() Family
}

// Params is one hyperparameter assignment from a family's grid.
type Params map[string]float64

// Clone copies a parameter assignment.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// New constructs an unfitted classifier of the given family with the given
// hyperparameters. Stochastic families are seeded for reproducibility.
func New(f Family, p Params, seed int64) (Classifier, error) {
	switch f {
	case FamilyLogistic:
		return NewLogistic(p), nil
	case FamilyTree:
		return NewDecisionTree(p, seed), nil
	case FamilySVC:
		return NewLinearSVC(p, seed), nil
	case FamilyForest:
		return NewRandomForest(p, seed), nil
	case FamilyGBT:
		return NewGradientBoosting(p, seed), nil
	default:
		return nil, fmt.Errorf("unknown model family %d", int(f))
	}
}

// RegisterGob registers every concrete classifier type with gob so
// interface-valued estimators round-trip through the artifact encoder.
func RegisterGob() {
	gob.Register(&Logistic{})
	gob.Register(&DecisionTree{})
	gob.Register(&LinearSVC{})
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
}

// sigmoid is the logistic squashing shared by several families.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// normalize scales a non-negative vector to sum to one. A zero vector is
// returned unchanged.
func normalize(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return v
	}
	for i := range v {
		v[i] /= total
	}
	return v
}

// checkMatrix validates the shape of a training matrix.
func checkMatrix(X [][]float64, y []int) (n, p int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, fmt.Errorf("empty training matrix")
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("X has %d rows, y has %d", n, len(y))
	}
	p = len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, 0, fmt.Errorf("row %d has %d features, want %d", i, len(X[i]), p)
		}
	}
	pos := 0
	for _, lab := range y {
		if lab != 0 && lab != 1 {
			return 0, 0, fmt.Errorf("label %d is not binary", lab)
		}
		if lab == 1 {
			pos++
		}
	}
	if pos == 0 || pos == n {
		return 0, 0, fmt.Errorf("training labels contain a single class")
	}
	return n, p, nil
}

// balancedWeights returns per-sample weights that equalize the total weight
// of both classes, as the source system's balanced class weighting does.
func balancedWeights(y []int) []float64 {
	n := len(y)
	pos := 0
	for _, lab := range y {
		pos += lab
	}
	neg := n - pos
	wPos := float64(n) / (2.0 * float64(pos))
	wNeg := float64(n) / (2.0 * float64(neg))
	out := make([]float64, n)
	for i, lab := range y {
		if lab == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out
}
