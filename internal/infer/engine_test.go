package infer_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/incomeclf/internal/artifact"
	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/infer"
	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/testutil"
	"github.com/paveg/incomeclf/internal/transform"
)

// saveChampion trains a logistic champion on synthetic data and persists it
// under dir, returning the artifact path.
func saveChampion(t *testing.T, dir string, s *schema.Schema) string {
	t.Helper()
	mem := memory.NewGoAllocator()
	ds := testutil.CensusDataset(t, 150, mem)
	defer ds.Release()

	pipeline, err := transform.Fit(ds, s)
	require.NoError(t, err)
	X, err := pipeline.TransformDataset(ds)
	require.NoError(t, err)

	est := model.NewLogistic(model.Params{"C": 1.0})
	require.NoError(t, est.Fit(X, ds.Labels()))

	champ := &artifact.Champion{
		SchemaVersion: s.Version,
		FeatureOrder:  pipeline.FeatureOrder,
		Pipeline:      pipeline,
		Estimator:     est,
		FamilyName:    model.FamilyLogistic.String(),
		Accuracy:      0.9,
		Importance:    est.FeatureImportances(),
		CreatedAt:     time.Now().UTC(),
	}
	path := filepath.Join(dir, "champion.bin")
	require.NoError(t, artifact.Save(champ, path))
	return path
}

func TestEngineLifecycle(t *testing.T) {
	s := schema.Default()
	path := saveChampion(t, t.TempDir(), s)
	eng := infer.NewEngine(path, s)

	t.Run("predict before load fails", func(t *testing.T) {
		assert.False(t, eng.Ready())
		_, err := eng.Predict(testutil.ExampleRecord())
		assert.ErrorIs(t, err, errors.ErrNotLoaded)
	})

	t.Run("load moves to ready", func(t *testing.T) {
		require.NoError(t, eng.Load())
		assert.True(t, eng.Ready())
	})

	t.Run("load is idempotent", func(t *testing.T) {
		require.NoError(t, eng.Load())
		assert.True(t, eng.Ready())
	})

	t.Run("missing artifact fails to load", func(t *testing.T) {
		broken := infer.NewEngine(filepath.Join(t.TempDir(), "absent.bin"), s)
		err := broken.Load()
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindArtifact))
		assert.False(t, broken.Ready())
	})
}

func TestEngineSchemaVersionMismatch(t *testing.T) {
	s := schema.Default()
	path := saveChampion(t, t.TempDir(), s)

	serving, err := schema.New("census-v2", s.Target, s.Features)
	require.NoError(t, err)

	eng := infer.NewEngine(path, serving)
	err = eng.Load()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArtifact))
	assert.False(t, eng.Ready())
}

func TestPredict(t *testing.T) {
	s := schema.Default()
	path := saveChampion(t, t.TempDir(), s)
	eng := infer.NewEngine(path, s)
	require.NoError(t, eng.Load())

	t.Run("example record scores positive", func(t *testing.T) {
		// education_num=13 is past the synthetic training boundary.
		res, err := eng.Predict(testutil.ExampleRecord())
		require.NoError(t, err)

		assert.Equal(t, schema.LabelAbove, res.Label)
		assert.Equal(t, 1, res.Prediction)
		assert.GreaterOrEqual(t, res.Confidence, 0.5)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	})

	t.Run("label and prediction agree with the threshold", func(t *testing.T) {
		rec := testutil.ExampleRecord()
		rec["education_num"] = 2
		res, err := eng.Predict(rec)
		require.NoError(t, err)
		if res.Confidence >= 0.5 {
			assert.Equal(t, 1, res.Prediction)
			assert.Equal(t, schema.LabelAbove, res.Label)
		} else {
			assert.Equal(t, 0, res.Prediction)
			assert.Equal(t, schema.LabelBelow, res.Label)
		}
	})

	t.Run("repeated predictions are identical", func(t *testing.T) {
		a, err := eng.Predict(testutil.ExampleRecord())
		require.NoError(t, err)
		b, err := eng.Predict(testutil.ExampleRecord())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("missing feature is a schema error", func(t *testing.T) {
		rec := testutil.ExampleRecord()
		delete(rec, "age")
		_, err := eng.Predict(rec)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindSchema))
	})

	t.Run("out-of-range value is a validation error", func(t *testing.T) {
		rec := testutil.ExampleRecord()
		rec["age"] = -3
		_, err := eng.Predict(rec)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindValidation))
	})
}

func TestRankedImportance(t *testing.T) {
	s := schema.Default()
	path := saveChampion(t, t.TempDir(), s)
	eng := infer.NewEngine(path, s)
	require.NoError(t, eng.Load())

	res, err := eng.Predict(testutil.ExampleRecord())
	require.NoError(t, err)

	t.Run("truncated to the default top-N", func(t *testing.T) {
		assert.Len(t, res.Importance, infer.DefaultTopN)
	})

	t.Run("sorted by descending weight", func(t *testing.T) {
		for i := 1; i < len(res.Importance); i++ {
			assert.GreaterOrEqual(t, res.Importance[i-1].Weight, res.Importance[i].Weight)
		}
	})

	t.Run("names come from the schema", func(t *testing.T) {
		for _, fw := range res.Importance {
			assert.True(t, s.HasFeature(fw.Name), "unknown feature %q in importance list", fw.Name)
			assert.GreaterOrEqual(t, fw.Weight, 0.0)
		}
	})

	t.Run("top-N override", func(t *testing.T) {
		eng2 := infer.NewEngine(path, s)
		eng2.SetTopN(3)
		require.NoError(t, eng2.Load())
		res, err := eng2.Predict(testutil.ExampleRecord())
		require.NoError(t, err)
		assert.Len(t, res.Importance, 3)
	})
}

func TestReload(t *testing.T) {
	s := schema.Default()
	dir := t.TempDir()
	path := saveChampion(t, dir, s)
	eng := infer.NewEngine(path, s)
	require.NoError(t, eng.Load())

	before, err := eng.Predict(testutil.ExampleRecord())
	require.NoError(t, err)

	// Overwrite the artifact with a differently trained champion and reload.
	mem := memory.NewGoAllocator()
	ds := testutil.CensusDataset(t, 150, mem)
	defer ds.Release()
	pipeline, err := transform.Fit(ds, s)
	require.NoError(t, err)
	X, err := pipeline.TransformDataset(ds)
	require.NoError(t, err)
	tree := model.NewDecisionTree(model.Params{"max_depth": 4}, 7)
	require.NoError(t, tree.Fit(X, ds.Labels()))
	champ := &artifact.Champion{
		SchemaVersion: s.Version,
		FeatureOrder:  pipeline.FeatureOrder,
		Pipeline:      pipeline,
		Estimator:     tree,
		FamilyName:    model.FamilyTree.String(),
		Accuracy:      0.85,
		Importance:    tree.FeatureImportances(),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, artifact.Save(champ, path))
	require.NoError(t, eng.Reload())

	after, err := eng.Predict(testutil.ExampleRecord())
	require.NoError(t, err)
	assert.NotEqual(t, before.Confidence, after.Confidence,
		"reload must swap in the retrained champion")
}

func TestConcurrentPredictions(t *testing.T) {
	s := schema.Default()
	path := saveChampion(t, t.TempDir(), s)
	eng := infer.NewEngine(path, s)
	require.NoError(t, eng.Load())

	want, err := eng.Predict(testutil.ExampleRecord())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Predict(testutil.ExampleRecord())
			assert.NoError(t, err)
			assert.Equal(t, want, res)
		}()
	}
	wg.Wait()
}
