// Package ingest loads the raw census dataset and validates it against the
// feature schema.
//
// Ingestion has no side effects beyond reading: it produces an in-memory
// Dataset or fails with an ingestion error naming the offending detail.
package ingest

import (
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/frame"
	"github.com/paveg/incomeclf/internal/logging"
	"github.com/paveg/incomeclf/internal/schema"
)

// Load reads a CSV dataset from path and returns it as a Dataset whose
// column order follows the schema declaration order.
//
// Every declared feature column and the target column must be present;
// unknown extra columns are dropped with a warning. Rows are never silently
// dropped.
func Load(path string, s *schema.Schema, mem memory.Allocator) (*frame.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIngestionError("Load", "cannot open dataset", err)
	}
	defer f.Close()
	ds, err := Read(f, s, mem)
	if err != nil {
		return nil, err
	}
	logging.L().Info("dataset ingested",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", ds.Width()))
	return ds, nil
}

// Read parses CSV data from r against the schema. Exposed separately from
// Load for testability.
func Read(r io.Reader, s *schema.Schema, mem memory.Allocator) (*frame.Dataset, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.NewIngestionError("Read", "reading CSV", err)
	}
	if len(records) == 0 {
		return nil, errors.ErrEmptyDataset
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		return nil, errors.ErrEmptyDataset
	}

	// Map declared columns to file positions; unknown columns are dropped
	// with a warning, missing declared columns are a hard error.
	position := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if !s.HasFeature(name) && name != s.Target {
			logging.L().Warn("dropping unknown column", zap.String("column", name))
			continue
		}
		position[name] = i
	}
	for _, name := range s.FeatureNames() {
		if _, ok := position[name]; !ok {
			return nil, &errors.PipelineError{
				Kind:    errors.KindIngestion,
				Op:      "Read",
				Column:  name,
				Message: "declared feature column missing from dataset",
			}
		}
	}
	targetPos, hasTarget := position[s.Target]
	if !hasTarget {
		return nil, &errors.PipelineError{
			Kind:    errors.KindIngestion,
			Op:      "Read",
			Column:  s.Target,
			Message: "target column missing from dataset",
		}
	}

	n := len(dataRows)
	columns := make([]*frame.Column, 0, s.NumFeatures())
	for _, name := range s.FeatureNames() {
		pos := position[name]
		vals := make([]float64, n)
		for i, row := range dataRows {
			if pos >= len(row) {
				return nil, &errors.PipelineError{
					Kind:    errors.KindIngestion,
					Op:      "Read",
					Column:  name,
					Message: "row " + strconv.Itoa(i+1) + " is short",
				}
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[pos]), 64)
			if err != nil {
				return nil, &errors.PipelineError{
					Kind:    errors.KindIngestion,
					Op:      "Read",
					Column:  name,
					Message: "non-numeric value in row " + strconv.Itoa(i+1),
					Cause:   err,
				}
			}
			vals[i] = v
		}
		columns = append(columns, frame.NewColumn(name, vals, mem))
	}

	labels := make([]int, n)
	for i, row := range dataRows {
		lab, err := parseLabel(row[targetPos])
		if err != nil {
			return nil, &errors.PipelineError{
				Kind:    errors.KindIngestion,
				Op:      "Read",
				Column:  s.Target,
				Message: "row " + strconv.Itoa(i+1) + ": " + err.Error(),
			}
		}
		labels[i] = lab
	}

	ds, err := frame.NewDataset(columns, labels)
	if err != nil {
		return nil, errors.NewIngestionError("Read", "assembling dataset", err)
	}
	return ds, nil
}

// parseLabel accepts either the numeric encoding (0/1) or the raw income
// strings of the source dataset.
func parseLabel(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	switch v {
	case "0", "<=50K", "<=50K.", schema.LabelBelow:
		return 0, nil
	case "1", ">50K", ">50K.":
		return 1, nil
	}
	return 0, errInvalidLabel(v)
}

type errInvalidLabel string

func (e errInvalidLabel) Error() string {
	return "invalid target label " + strconv.Quote(string(e))
}

// Split partitions a dataset into train and test subsets using a seeded
// shuffle. The split is deterministic for a fixed seed.
func Split(ds *frame.Dataset, testFraction float64, seed int64, mem memory.Allocator) (train, test *frame.Dataset, err error) {
	n := ds.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(float64(n) * testFraction)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	test, err = ds.Select(idx[:nTest], mem)
	if err != nil {
		return nil, nil, errors.NewIngestionError("Split", "building test split", err)
	}
	train, err = ds.Select(idx[nTest:], mem)
	if err != nil {
		test.Release()
		return nil, nil, errors.NewIngestionError("Split", "building train split", err)
	}
	logging.L().Info("dataset split",
		zap.Int("train_rows", train.Len()),
		zap.Int("test_rows", test.Len()),
		zap.Int64("seed", seed))
	return train, test, nil
}
