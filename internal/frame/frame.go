// Package frame provides the columnar data structures the pipeline trains
// on, backed by Apache Arrow arrays.
//
// It is deliberately narrow: ordered float64 columns plus a binary label
// vector. The trainers consume a row-major matrix view; the columnar form
// exists so ingestion and transform fitting can work per column without
// copying the whole table.
package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is a named float64 column stored as an Arrow array.
type Column struct {
	name string
	arr  *array.Float64
}

// NewColumn builds a column from values using the given allocator.
func NewColumn(name string, values []float64, mem memory.Allocator) *Column {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	builder := array.NewFloat64Builder(mem)
	defer builder.Release()
	builder.AppendValues(values, nil)
	return &Column{name: name, arr: builder.NewFloat64Array()}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Len returns the number of rows.
func (c *Column) Len() int { return c.arr.Len() }

// Value returns the value at row i.
func (c *Column) Value(i int) float64 { return c.arr.Value(i) }

// Values copies the column out as a plain slice.
func (c *Column) Values() []float64 {
	out := make([]float64, c.arr.Len())
	copy(out, c.arr.Float64Values())
	return out
}

// Release releases the underlying Arrow array.
func (c *Column) Release() {
	if c.arr != nil {
		c.arr.Release()
		c.arr = nil
	}
}

// Dataset is an ordered collection of equally sized columns plus the binary
// target labels. Column order matches the feature schema's declaration order.
type Dataset struct {
	columns []*Column
	byName  map[string]int
	labels  []int
}

// NewDataset assembles a dataset. All columns and the label vector must have
// the same length.
func NewDataset(columns []*Column, labels []int) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset requires at least one column")
	}
	n := columns[0].Len()
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Len() != n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name(), c.Len(), n)
		}
		if _, dup := byName[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name())
		}
		byName[c.Name()] = i
	}
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("labels have %d rows, want %d", len(labels), n)
	}
	return &Dataset{columns: columns, byName: byName, labels: labels}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.columns[0].Len() }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.columns) }

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Labels returns the binary target labels, or nil for an unlabeled dataset.
func (d *Dataset) Labels() []int { return d.labels }

// Row copies row i into a vector in column order.
func (d *Dataset) Row(i int) []float64 {
	out := make([]float64, len(d.columns))
	for j, c := range d.columns {
		out[j] = c.Value(i)
	}
	return out
}

// Matrix copies the dataset into a row-major matrix in column order. The
// trainers own the copy; the Arrow arrays stay immutable.
func (d *Dataset) Matrix() [][]float64 {
	n := d.Len()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = d.Row(i)
	}
	return out
}

// Select returns a new dataset containing only the rows in idx, in order.
// Labels follow when present.
func (d *Dataset) Select(idx []int, mem memory.Allocator) (*Dataset, error) {
	cols := make([]*Column, len(d.columns))
	for j, c := range d.columns {
		vals := make([]float64, len(idx))
		for i, r := range idx {
			vals[i] = c.Value(r)
		}
		cols[j] = NewColumn(c.Name(), vals, mem)
	}
	var labels []int
	if d.labels != nil {
		labels = make([]int, len(idx))
		for i, r := range idx {
			labels[i] = d.labels[r]
		}
	}
	return NewDataset(cols, labels)
}

// Release releases every column.
func (d *Dataset) Release() {
	for _, c := range d.columns {
		c.Release()
	}
}
