package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Logistic is an L2-regularized logistic regression trained by full-batch
// gradient descent with balanced class weighting.
type Logistic struct {
	C         float64 // inverse regularization strength
	MaxIter   int
	LearnRate float64
	Tol       float64

	Weights    []float64
	Bias       float64
	Importance []float64
}

// NewLogistic builds an unfitted model from a grid parameter assignment.
func NewLogistic(p Params) *Logistic {
	m := &Logistic{
		C:         1.0,
		MaxIter:   500,
		LearnRate: 0.1,
		Tol:       1e-6,
	}
	if v, ok := p["C"]; ok {
		m.C = v
	}
	if v, ok := p["max_iter"]; ok {
		m.MaxIter = int(v)
	}
	return m
}

// Family implements Classifier.
func (m *Logistic) Family() Family { return FamilyLogistic }

// Fit implements Classifier.
func (m *Logistic) Fit(X [][]float64, y []int) error {
	n, p, err := checkMatrix(X, y)
	if err != nil {
		return fmt.Errorf("logistic: %w", err)
	}
	w := balancedWeights(y)
	lambda := 1.0 / (m.C * float64(n))

	weights := mat.NewVecDense(p, nil)
	grad := mat.NewVecDense(p, nil)
	bias := 0.0
	prevLoss := math.Inf(1)

	for iter := 0; iter < m.MaxIter; iter++ {
		grad.Zero()
		gradBias := 0.0
		loss := 0.0
		for i := 0; i < n; i++ {
			xi := mat.NewVecDense(p, X[i])
			z := mat.Dot(weights, xi) + bias
			prob := sigmoid(z)
			diff := w[i] * (prob - float64(y[i]))
			grad.AddScaledVec(grad, diff, xi)
			gradBias += diff
			if y[i] == 1 {
				loss -= w[i] * math.Log(math.Max(prob, 1e-15))
			} else {
				loss -= w[i] * math.Log(math.Max(1-prob, 1e-15))
			}
		}
		grad.ScaleVec(1.0/float64(n), grad)
		grad.AddScaledVec(grad, lambda, weights)
		gradBias /= float64(n)

		weights.AddScaledVec(weights, -m.LearnRate, grad)
		bias -= m.LearnRate * gradBias

		loss = loss/float64(n) + 0.5*lambda*mat.Dot(weights, weights)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return fmt.Errorf("logistic: diverged at iteration %d", iter)
		}
		if math.Abs(prevLoss-loss) < m.Tol {
			break
		}
		prevLoss = loss
	}

	m.Weights = make([]float64, p)
	copy(m.Weights, weights.RawVector().Data)
	m.Bias = bias

	// Coefficient magnitudes, normalized, stand in for intrinsic importance
	// on this linear family.
	imp := make([]float64, p)
	for j, wj := range m.Weights {
		imp[j] = math.Abs(wj)
	}
	m.Importance = normalize(imp)
	return nil
}

// PredictProba implements Classifier.
func (m *Logistic) PredictProba(x []float64) float64 {
	z := m.Bias
	for j, wj := range m.Weights {
		z += wj * x[j]
	}
	return sigmoid(z)
}

// FeatureImportances implements Classifier.
func (m *Logistic) FeatureImportances() []float64 { return m.Importance }
