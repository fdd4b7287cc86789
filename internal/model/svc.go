package model

import (
	"fmt"
	"math"
	"math/rand"
)

// LinearSVC is a linear support-vector classifier trained with Pegasos-style
// stochastic subgradient descent on the hinge loss.
//
// The family has no native probability output; Confidence comes from a
// Platt-style sigmoid fitted on the training margins after the weights
// converge. That proxy is a calibration heuristic, not a true posterior.
type LinearSVC struct {
	C      float64
	Epochs int
	Seed   int64

	Weights    []float64
	Bias       float64
	// Platt calibration parameters: p = sigmoid(PlattA*margin + PlattB)
	PlattA     float64
	PlattB     float64
	Importance []float64
}

// NewLinearSVC builds an unfitted model from a grid parameter assignment.
func NewLinearSVC(p Params, seed int64) *LinearSVC {
	m := &LinearSVC{
		C:      1.0,
		Epochs: 50,
		Seed:   seed,
	}
	if v, ok := p["C"]; ok {
		m.C = v
	}
	if v, ok := p["epochs"]; ok {
		m.Epochs = int(v)
	}
	return m
}

// Family implements Classifier.
func (m *LinearSVC) Family() Family { return FamilySVC }

// Fit implements Classifier.
func (m *LinearSVC) Fit(X [][]float64, y []int) error {
	n, p, err := checkMatrix(X, y)
	if err != nil {
		return fmt.Errorf("svc: %w", err)
	}
	// Pegasos regularization parameter.
	lambda := 1.0 / (m.C * float64(n))

	w := make([]float64, p)
	bias := 0.0
	rnd := rand.New(rand.NewSource(m.Seed))
	order := rnd.Perm(n)

	step := 0
	for epoch := 0; epoch < m.Epochs; epoch++ {
		rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			step++
			eta := 1.0 / (lambda * float64(step))
			yi := float64(2*y[i] - 1) // {-1, +1}
			margin := bias
			for j := range w {
				margin += w[j] * X[i][j]
			}
			if yi*margin < 1 {
				for j := range w {
					w[j] = (1-eta*lambda)*w[j] + eta*yi*X[i][j]
				}
				bias += eta * yi
			} else {
				for j := range w {
					w[j] *= 1 - eta*lambda
				}
			}
		}
	}
	for _, wj := range w {
		if math.IsNaN(wj) || math.IsInf(wj, 0) {
			return fmt.Errorf("svc: weights diverged")
		}
	}
	m.Weights = w
	m.Bias = bias

	if err := m.fitPlatt(X, y); err != nil {
		return fmt.Errorf("svc: %w", err)
	}

	imp := make([]float64, p)
	for j, wj := range w {
		imp[j] = math.Abs(wj)
	}
	m.Importance = normalize(imp)
	return nil
}

// fitPlatt fits the sigmoid that maps decision margins to probabilities by
// gradient descent on the logistic loss over training margins.
func (m *LinearSVC) fitPlatt(X [][]float64, y []int) error {
	n := len(X)
	margins := make([]float64, n)
	for i := range X {
		margins[i] = m.decision(X[i])
	}
	a, b := 1.0, 0.0
	lr := 0.01
	for iter := 0; iter < 300; iter++ {
		gradA, gradB := 0.0, 0.0
		for i := 0; i < n; i++ {
			prob := sigmoid(a*margins[i] + b)
			diff := prob - float64(y[i])
			gradA += diff * margins[i]
			gradB += diff
		}
		a -= lr * gradA / float64(n)
		b -= lr * gradB / float64(n)
		if math.IsNaN(a) || math.IsNaN(b) {
			return fmt.Errorf("platt calibration diverged")
		}
	}
	m.PlattA = a
	m.PlattB = b
	return nil
}

func (m *LinearSVC) decision(x []float64) float64 {
	z := m.Bias
	for j, wj := range m.Weights {
		z += wj * x[j]
	}
	return z
}

// PredictProba implements Classifier via the fitted Platt proxy.
func (m *LinearSVC) PredictProba(x []float64) float64 {
	return sigmoid(m.PlattA*m.decision(x) + m.PlattB)
}

// FeatureImportances implements Classifier.
func (m *LinearSVC) FeatureImportances() []float64 { return m.Importance }
