// Package testutil provides shared fixtures for the pipeline tests:
// deterministic synthetic census datasets with a known decision boundary,
// and the documented example record.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/paveg/incomeclf/internal/frame"
	"github.com/paveg/incomeclf/internal/schema"
)

// BoundaryEducation is the synthetic decision boundary: rows with
// education_num >= BoundaryEducation are labeled positive.
const BoundaryEducation = 10

// censusRow is one synthetic record in schema declaration order.
func censusRow(rnd *rand.Rand) map[string]float64 {
	return map[string]float64{
		"age":            float64(20 + rnd.Intn(50)),
		"workclass":      float64(rnd.Intn(8)),
		"education_num":  float64(1 + rnd.Intn(16)),
		"marital_status": float64(rnd.Intn(7)),
		"occupation":     float64(rnd.Intn(14)),
		"relationship":   float64(rnd.Intn(6)),
		"race":           float64(rnd.Intn(5)),
		"sex":            float64(rnd.Intn(2)),
		"capital_gain":   float64(rnd.Intn(3) * 2500),
		"capital_loss":   float64(rnd.Intn(2) * 500),
		"hours_per_week": float64(20 + rnd.Intn(41)),
		"native_country": float64(rnd.Intn(41)),
	}
}

// CensusRecords generates n deterministic synthetic records labeled by the
// education boundary.
func CensusRecords(n int) ([]map[string]float64, []int) {
	rnd := rand.New(rand.NewSource(7))
	records := make([]map[string]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		rec := censusRow(rnd)
		records[i] = rec
		if rec["education_num"] >= BoundaryEducation {
			labels[i] = 1
		}
	}
	return records, labels
}

// CensusDataset assembles the synthetic records into a frame.Dataset in
// schema declaration order.
func CensusDataset(tb testing.TB, n int, mem memory.Allocator) *frame.Dataset {
	tb.Helper()
	s := schema.Default()
	records, labels := CensusRecords(n)

	cols := make([]*frame.Column, 0, s.NumFeatures())
	for _, name := range s.FeatureNames() {
		vals := make([]float64, n)
		for i, rec := range records {
			vals[i] = rec[name]
		}
		cols = append(cols, frame.NewColumn(name, vals, mem))
	}
	ds, err := frame.NewDataset(cols, labels)
	require.NoError(tb, err)
	return ds
}

// CensusCSV renders the synthetic records as CSV text with a header row, in
// schema declaration order plus the target column.
func CensusCSV(n int) string {
	s := schema.Default()
	records, labels := CensusRecords(n)

	var b strings.Builder
	b.WriteString(strings.Join(s.FeatureNames(), ","))
	b.WriteString("," + s.Target + "\n")
	for i, rec := range records {
		for j, name := range s.FeatureNames() {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%g", rec[name])
		}
		fmt.Fprintf(&b, ",%d\n", labels[i])
	}
	return b.String()
}

// ExampleRecord returns the documented example input: a 35-year-old private
// sector professional working 40 hours with a 5000 capital gain. Its
// education_num of 13 puts it on the positive side of the synthetic
// boundary.
func ExampleRecord() map[string]float64 {
	return map[string]float64{
		"age":            35,
		"workclass":      3,
		"education_num":  13,
		"marital_status": 2,
		"occupation":     9,
		"relationship":   0,
		"race":           4,
		"sex":            1,
		"capital_gain":   5000,
		"capital_loss":   0,
		"hours_per_week": 40,
		"native_country": 38,
	}
}

// SeparableMatrix builds a small two-feature linearly separable matrix for
// direct model tests: positive rows cluster around (2, 2), negative rows
// around (-2, -2).
func SeparableMatrix(n int) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(11))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		center := -2.0
		if i%2 == 0 {
			center = 2.0
			y[i] = 1
		}
		X[i] = []float64{
			center + rnd.NormFloat64()*0.5,
			center + rnd.NormFloat64()*0.5,
		}
	}
	return X, y
}
