package ingest_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/ingest"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/testutil"
)

func TestRead(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := schema.Default()

	t.Run("parses a synthetic census CSV", func(t *testing.T) {
		ds, err := ingest.Read(strings.NewReader(testutil.CensusCSV(40)), s, mem)
		require.NoError(t, err)
		defer ds.Release()

		assert.Equal(t, 40, ds.Len())
		assert.Equal(t, s.NumFeatures(), ds.Width())
		assert.Equal(t, s.FeatureNames(), ds.ColumnNames())
		assert.Len(t, ds.Labels(), 40)
	})

	t.Run("column order follows schema, not file", func(t *testing.T) {
		csv := "income,education_num,age,workclass,marital_status,occupation,relationship,race,sex,capital_gain,capital_loss,hours_per_week,native_country\n" +
			"1,13,35,3,2,9,0,4,1,5000,0,40,38\n"
		ds, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.NoError(t, err)
		defer ds.Release()

		assert.Equal(t, s.FeatureNames(), ds.ColumnNames())
		age, ok := ds.Column("age")
		require.True(t, ok)
		assert.Equal(t, 35.0, age.Value(0))
		assert.Equal(t, []int{1}, ds.Labels())
	})

	t.Run("unknown columns are dropped", func(t *testing.T) {
		lines := strings.SplitN(testutil.CensusCSV(5), "\n", 2)
		csv := lines[0] + ",fnlwgt\n"
		for _, row := range strings.Split(strings.TrimSuffix(lines[1], "\n"), "\n") {
			csv += row + ",12345\n"
		}
		ds, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.NoError(t, err)
		defer ds.Release()

		assert.Equal(t, s.NumFeatures(), ds.Width())
		_, ok := ds.Column("fnlwgt")
		assert.False(t, ok)
	})

	t.Run("missing feature column fails", func(t *testing.T) {
		csv := "age,income\n35,1\n"
		_, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindIngestion))
	})

	t.Run("missing target column fails", func(t *testing.T) {
		lines := strings.SplitN(testutil.CensusCSV(3), "\n", 2)
		header := strings.TrimSuffix(lines[0], ",income")
		rows := ""
		for _, row := range strings.Split(strings.TrimSuffix(lines[1], "\n"), "\n") {
			rows += row[:strings.LastIndex(row, ",")] + "\n"
		}
		_, err := ingest.Read(strings.NewReader(header+"\n"+rows), s, mem)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindIngestion))
	})

	t.Run("non-numeric cell fails with the column named", func(t *testing.T) {
		csv := strings.SplitN(testutil.CensusCSV(1), "\n", 2)[0] + "\n" +
			"oops,3,13,2,9,0,4,1,5000,0,40,38,1\n"
		_, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindIngestion))
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := ingest.Read(strings.NewReader(""), s, mem)
		assert.ErrorIs(t, err, errors.ErrEmptyDataset)

		header := strings.SplitN(testutil.CensusCSV(1), "\n", 2)[0]
		_, err = ingest.Read(strings.NewReader(header+"\n"), s, mem)
		assert.ErrorIs(t, err, errors.ErrEmptyDataset)
	})

	t.Run("accepts raw income strings as labels", func(t *testing.T) {
		csv := strings.SplitN(testutil.CensusCSV(1), "\n", 2)[0] + "\n" +
			"35,3,13,2,9,0,4,1,5000,0,40,38,>50K\n" +
			"22,3,9,4,7,3,4,0,0,0,20,38,<=50K\n"
		ds, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.NoError(t, err)
		defer ds.Release()
		assert.Equal(t, []int{1, 0}, ds.Labels())
	})

	t.Run("invalid label fails", func(t *testing.T) {
		csv := strings.SplitN(testutil.CensusCSV(1), "\n", 2)[0] + "\n" +
			"35,3,13,2,9,0,4,1,5000,0,40,38,maybe\n"
		_, err := ingest.Read(strings.NewReader(csv), s, mem)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindIngestion))
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := ingest.Load("does/not/exist.csv", schema.Default(), memory.NewGoAllocator())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIngestion))
}

func TestSplit(t *testing.T) {
	mem := memory.NewGoAllocator()
	ds := testutil.CensusDataset(t, 100, mem)
	defer ds.Release()

	train, test, err := ingest.Split(ds, 0.30, 42, mem)
	require.NoError(t, err)
	defer train.Release()
	defer test.Release()

	assert.Equal(t, 30, test.Len())
	assert.Equal(t, 70, train.Len())

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		train2, test2, err := ingest.Split(ds, 0.30, 42, mem)
		require.NoError(t, err)
		defer train2.Release()
		defer test2.Release()

		assert.Equal(t, train.Matrix(), train2.Matrix())
		assert.Equal(t, test.Labels(), test2.Labels())
	})

	t.Run("different seeds give different splits", func(t *testing.T) {
		_, test3, err := ingest.Split(ds, 0.30, 43, mem)
		require.NoError(t, err)
		defer test3.Release()
		assert.NotEqual(t, test.Matrix(), test3.Matrix())
	})

	t.Run("both sides stay non-empty at extreme fractions", func(t *testing.T) {
		small := testutil.CensusDataset(t, 5, mem)
		defer small.Release()

		tr, te, err := ingest.Split(small, 0.01, 1, mem)
		require.NoError(t, err)
		defer tr.Release()
		defer te.Release()
		assert.Equal(t, 1, te.Len())
		assert.Equal(t, 4, tr.Len())

		tr2, te2, err := ingest.Split(small, 0.99, 1, mem)
		require.NoError(t, err)
		defer tr2.Release()
		defer te2.Release()
		assert.Equal(t, 4, te2.Len())
		assert.Equal(t, 1, tr2.Len())
	})
}
