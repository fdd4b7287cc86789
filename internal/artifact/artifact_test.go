package artifact_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/incomeclf/internal/artifact"
	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/testutil"
	"github.com/paveg/incomeclf/internal/transform"
)

// trainedChampion fits a small pipeline and logistic estimator on synthetic
// census data.
func trainedChampion(t *testing.T) *artifact.Champion {
	t.Helper()
	mem := memory.NewGoAllocator()
	s := schema.Default()
	ds := testutil.CensusDataset(t, 120, mem)
	defer ds.Release()

	pipeline, err := transform.Fit(ds, s)
	require.NoError(t, err)
	X, err := pipeline.TransformDataset(ds)
	require.NoError(t, err)

	est := model.NewLogistic(model.Params{"C": 1.0})
	require.NoError(t, est.Fit(X, ds.Labels()))

	return &artifact.Champion{
		SchemaVersion: s.Version,
		FeatureOrder:  pipeline.FeatureOrder,
		Pipeline:      pipeline,
		Estimator:     est,
		FamilyName:    model.FamilyLogistic.String(),
		Accuracy:      0.87,
		Importance:    est.FeatureImportances(),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	champ := trainedChampion(t)

	data, err := artifact.Encode(champ)
	require.NoError(t, err)

	got, err := artifact.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, champ.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, champ.FeatureOrder, got.FeatureOrder)
	assert.Equal(t, champ.FamilyName, got.FamilyName)
	assert.Equal(t, champ.Accuracy, got.Accuracy)
	assert.Equal(t, champ.Importance, got.Importance)

	t.Run("restored estimator predicts bit-identically", func(t *testing.T) {
		vec, err := champ.Pipeline.TransformRecord(testutil.ExampleRecord())
		require.NoError(t, err)
		vec2, err := got.Pipeline.TransformRecord(testutil.ExampleRecord())
		require.NoError(t, err)
		assert.Equal(t, vec, vec2)
		assert.Equal(t, champ.Estimator.PredictProba(vec), got.Estimator.PredictProba(vec2))
	})
}

func TestDecodeRejectsCorruption(t *testing.T) {
	champ := trainedChampion(t)
	data, err := artifact.Encode(champ)
	require.NoError(t, err)

	t.Run("flipped payload byte fails the checksum", func(t *testing.T) {
		bad := make([]byte, len(data))
		copy(bad, data)
		bad[len(bad)/2] ^= 0xFF
		_, err := artifact.Decode(bad)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindArtifact))
		assert.Contains(t, err.Error(), "checksum")
	})

	t.Run("wrong magic", func(t *testing.T) {
		bad := make([]byte, len(data))
		copy(bad, data)
		bad[0] = 'X'
		_, err := artifact.Decode(bad)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindArtifact))
	})

	t.Run("unsupported format version", func(t *testing.T) {
		bad := make([]byte, len(data))
		copy(bad, data)
		bad[4] = 0xFE
		_, err := artifact.Decode(bad)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindArtifact))
	})

	t.Run("truncated input", func(t *testing.T) {
		_, err := artifact.Decode(data[:8])
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindArtifact))
	})
}

func TestSaveLoad(t *testing.T) {
	champ := trainedChampion(t)
	path := filepath.Join(t.TempDir(), "nested", "champion.bin")

	require.NoError(t, artifact.Save(champ, path))

	got, err := artifact.Load(path)
	require.NoError(t, err)
	assert.Equal(t, champ.FamilyName, got.FamilyName)

	t.Run("no temp files are left behind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "champion.bin", entries[0].Name())
	})

	t.Run("save replaces an existing artifact wholesale", func(t *testing.T) {
		champ2 := trainedChampion(t)
		champ2.FamilyName = model.FamilyTree.String()
		require.NoError(t, artifact.Save(champ2, path))

		got, err := artifact.Load(path)
		require.NoError(t, err)
		assert.Equal(t, model.FamilyTree.String(), got.FamilyName)
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := artifact.Load(filepath.Join(t.TempDir(), "absent.bin"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArtifact))
}
