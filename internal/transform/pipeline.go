// Package transform implements the fitted preprocessing pipeline: Tukey IQR
// outlier capping, median imputation and standard scaling for numeric
// features, and stable dense code maps for categorical features.
//
// The pipeline is fit once on training data and then applied through one
// shared code path at training-evaluation time and at inference time, so the
// numeric space a model was trained in is reproduced exactly for every later
// prediction.
package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/frame"
	"github.com/paveg/incomeclf/internal/schema"
)

// tukeyFactor is the whisker multiplier of Tukey's outlier fences.
const tukeyFactor = 1.5

// NumericStats holds the fitted parameters of one numeric column.
type NumericStats struct {
	Lower  float64 // Capping floor: Q1 - 1.5*IQR
	Upper  float64 // Capping ceiling: Q3 + 1.5*IQR
	Median float64 // Imputation value for missing entries, from capped data
	Mean   float64 // Scaling center, from capped data
	Std    float64 // Scaling spread, from capped data (>= minStd)
}

// minStd guards constant columns against division by zero.
const minStd = 1e-12

// Pipeline is the fitted, serializable transformation. All fields are
// exported for gob encoding inside the champion artifact; they must never be
// mutated after Fit.
type Pipeline struct {
	SchemaVersion string
	FeatureOrder  []string                // Output column order, fixed at fit time
	Kinds         []schema.Kind           // Kind per feature, aligned to FeatureOrder
	Numeric       map[string]NumericStats // Fitted stats per numeric feature
	Codes         map[string]map[int]int  // Raw category code -> dense index
}

// Fit learns capping bounds, imputation medians, scaling parameters and
// categorical code maps from the training dataset. The dataset's column
// order must match the schema declaration order.
func Fit(ds *frame.Dataset, s *schema.Schema) (*Pipeline, error) {
	if ds.Len() == 0 {
		return nil, errors.NewIngestionError("Fit", "cannot fit on an empty dataset", nil)
	}
	p := &Pipeline{
		SchemaVersion: s.Version,
		FeatureOrder:  s.FeatureNames(),
		Kinds:         make([]schema.Kind, s.NumFeatures()),
		Numeric:       make(map[string]NumericStats),
		Codes:         make(map[string]map[int]int),
	}
	for i, f := range s.Features {
		p.Kinds[i] = f.Kind
		col, ok := ds.Column(f.Name)
		if !ok {
			return nil, errors.NewSchemaError("Fit", f.Name, "feature column missing from dataset")
		}
		switch f.Kind {
		case schema.Numeric:
			p.Numeric[f.Name] = fitNumeric(col.Values())
		case schema.Categorical:
			p.Codes[f.Name] = fitCodes(col.Values(), s.SortedCodes(f.Name))
		}
	}
	return p, nil
}

// fitNumeric computes the Tukey fences from the raw column, then the
// imputation median and scaling parameters from the capped values.
func fitNumeric(values []float64) NumericStats {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	sort.Float64s(finite)

	q1 := quantile(finite, 0.25)
	q3 := quantile(finite, 0.75)
	iqr := q3 - q1
	st := NumericStats{
		Lower: q1 - tukeyFactor*iqr,
		Upper: q3 + tukeyFactor*iqr,
	}

	capped := make([]float64, len(finite))
	for i, v := range finite {
		capped[i] = clamp(v, st.Lower, st.Upper)
	}
	// capped is still sorted: clamping is monotone.
	st.Median = quantile(capped, 0.5)
	st.Mean = stat.Mean(capped, nil)
	st.Std = stat.StdDev(capped, nil)
	if math.IsNaN(st.Std) || st.Std < minStd {
		st.Std = 1.0
	}
	return st
}

// quantile interpolates linearly between order statistics, matching the
// interpolation the source dataset tooling uses. sorted must be ascending.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// fitCodes builds the stable dense code map for one categorical column: the
// union of schema-declared codes and codes observed in training, sorted
// ascending. Sorting makes repeated fits on the same data deterministic.
func fitCodes(values []float64, declared []int) map[int]int {
	seen := make(map[int]bool, len(declared))
	for _, c := range declared {
		seen[c] = true
	}
	for _, v := range values {
		if !math.IsNaN(v) {
			seen[int(v)] = true
		}
	}
	raw := make([]int, 0, len(seen))
	for c := range seen {
		raw = append(raw, c)
	}
	sort.Ints(raw)
	codes := make(map[int]int, len(raw))
	for dense, c := range raw {
		codes[c] = dense
	}
	return codes
}

// UnseenCode returns the reserved dense code that inference-time categories
// absent from the fit-time map collapse to.
func (p *Pipeline) UnseenCode(feature string) int {
	return len(p.Codes[feature])
}

// NumFeatures returns the width of transformed vectors.
func (p *Pipeline) NumFeatures() int { return len(p.FeatureOrder) }

// transformValue pushes one raw value through the fitted steps for the
// feature at position i. This is the single code path shared by dataset
// transformation and per-record inference.
func (p *Pipeline) transformValue(i int, v float64) float64 {
	name := p.FeatureOrder[i]
	switch p.Kinds[i] {
	case schema.Numeric:
		st := p.Numeric[name]
		if math.IsNaN(v) {
			v = st.Median
		} else {
			v = clamp(v, st.Lower, st.Upper)
		}
		return (v - st.Mean) / st.Std
	case schema.Categorical:
		codes := p.Codes[name]
		dense, ok := codes[int(v)]
		if !ok {
			return float64(len(codes)) // reserved unseen code
		}
		return float64(dense)
	}
	return v
}

// TransformRow transforms one raw row already in FeatureOrder.
func (p *Pipeline) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(p.FeatureOrder) {
		return nil, errors.NewSchemaError("TransformRow", "",
			fmt.Sprintf("row has %d features, pipeline expects %d", len(row), len(p.FeatureOrder)))
	}
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = p.transformValue(i, v)
	}
	return out, nil
}

// TransformRecord transforms one named raw record into a vector in
// FeatureOrder. A missing required feature is a SchemaError, never silently
// defaulted.
func (p *Pipeline) TransformRecord(record map[string]float64) ([]float64, error) {
	out := make([]float64, len(p.FeatureOrder))
	for i, name := range p.FeatureOrder {
		v, ok := record[name]
		if !ok {
			return nil, errors.NewSchemaError("TransformRecord", name, "required feature missing")
		}
		out[i] = p.transformValue(i, v)
	}
	return out, nil
}

// TransformDataset transforms every row of a dataset whose columns are in
// FeatureOrder, returning the numeric matrix the trainers consume.
func (p *Pipeline) TransformDataset(ds *frame.Dataset) ([][]float64, error) {
	names := ds.ColumnNames()
	if len(names) != len(p.FeatureOrder) {
		return nil, errors.NewSchemaError("TransformDataset", "",
			fmt.Sprintf("dataset has %d columns, pipeline expects %d", len(names), len(p.FeatureOrder)))
	}
	for i, name := range names {
		if name != p.FeatureOrder[i] {
			return nil, errors.NewSchemaError("TransformDataset", name,
				fmt.Sprintf("column order mismatch at position %d, expected %s", i, p.FeatureOrder[i]))
		}
	}
	out := make([][]float64, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row, err := p.TransformRow(ds.Row(i))
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}
