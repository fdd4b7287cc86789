package train

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/incomeclf/internal/artifact"
	"github.com/paveg/incomeclf/internal/config"
	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/parallel"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/testutil"
)

func TestGridEnumerate(t *testing.T) {
	t.Run("expands the full cross product", func(t *testing.T) {
		g := Grid{"a": {1, 2}, "b": {10, 20, 30}}
		params := g.Enumerate()
		require.Len(t, params, 6)

		seen := make(map[string]bool)
		for _, p := range params {
			seen[fmt.Sprintf("%g/%g", p["a"], p["b"])] = true
		}
		assert.Len(t, seen, 6, "every assignment must be distinct")
	})

	t.Run("enumeration order is deterministic", func(t *testing.T) {
		g := GridFor(model.FamilyTree)
		assert.Equal(t, g.Enumerate(), g.Enumerate())
	})

	t.Run("family grid sizes", func(t *testing.T) {
		assert.Len(t, GridFor(model.FamilyLogistic).Enumerate(), 4)
		assert.Len(t, GridFor(model.FamilyTree).Enumerate(), 2*4*4*3)
		assert.Len(t, GridFor(model.FamilySVC).Enumerate(), 3)
		assert.Len(t, GridFor(model.FamilyForest).Enumerate(), 27)
		assert.Len(t, GridFor(model.FamilyGBT).Enumerate(), 4)
	})
}

func TestFoldAssignment(t *testing.T) {
	folds := foldAssignment(100, 5, 42)
	require.Len(t, folds, 5)

	t.Run("folds partition the rows", func(t *testing.T) {
		seen := make(map[int]bool)
		for _, fold := range folds {
			assert.Equal(t, 20, len(fold))
			for _, i := range fold {
				assert.False(t, seen[i], "row %d assigned twice", i)
				seen[i] = true
			}
		}
		assert.Len(t, seen, 100)
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		assert.Equal(t, folds, foldAssignment(100, 5, 42))
		assert.NotEqual(t, folds, foldAssignment(100, 5, 43))
	})

	t.Run("uneven division spreads the remainder", func(t *testing.T) {
		uneven := foldAssignment(10, 3, 1)
		sizes := []int{len(uneven[0]), len(uneven[1]), len(uneven[2])}
		assert.ElementsMatch(t, []int{4, 3, 3}, sizes)
	})
}

func TestSplitFold(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 1, 0, 1}
	folds := [][]int{{0, 2}, {1, 3}}

	trainX, trainY, valX, valY := splitFold(X, y, folds, 1)
	assert.Equal(t, [][]float64{{0}, {2}}, trainX)
	assert.Equal(t, []int{0, 0}, trainY)
	assert.Equal(t, [][]float64{{1}, {3}}, valX)
	assert.Equal(t, []int{1, 1}, valY)
}

func TestSelectChampion(t *testing.T) {
	t.Run("highest accuracy wins", func(t *testing.T) {
		champ, ok := selectChampion([]FamilyResult{
			{Family: model.FamilyLogistic, CVAccuracy: 0.80},
			{Family: model.FamilyForest, CVAccuracy: 0.85},
		})
		require.True(t, ok)
		assert.Equal(t, model.FamilyForest, champ.Family)
	})

	t.Run("ties break toward the simpler family", func(t *testing.T) {
		champ, ok := selectChampion([]FamilyResult{
			{Family: model.FamilyLogistic, CVAccuracy: 0.85},
			{Family: model.FamilyForest, CVAccuracy: 0.85},
		})
		require.True(t, ok)
		assert.Equal(t, model.FamilyLogistic, champ.Family)
	})

	t.Run("sub-tolerance improvements count as ties", func(t *testing.T) {
		champ, ok := selectChampion([]FamilyResult{
			{Family: model.FamilyTree, CVAccuracy: 0.85},
			{Family: model.FamilyGBT, CVAccuracy: 0.85 + 1e-12},
		})
		require.True(t, ok)
		assert.Equal(t, model.FamilyTree, champ.Family)
	})

	t.Run("excluded families are skipped", func(t *testing.T) {
		champ, ok := selectChampion([]FamilyResult{
			{Family: model.FamilyLogistic, CVAccuracy: 0.99, Err: fmt.Errorf("diverged")},
			{Family: model.FamilyTree, CVAccuracy: 0.70},
		})
		require.True(t, ok)
		assert.Equal(t, model.FamilyTree, champ.Family)
	})

	t.Run("no surviving family", func(t *testing.T) {
		_, ok := selectChampion([]FamilyResult{
			{Family: model.FamilyLogistic, Err: fmt.Errorf("diverged")},
		})
		assert.False(t, ok)
	})
}

func TestAccuracy(t *testing.T) {
	X, y := testutil.SeparableMatrix(100)
	clf := model.NewLogistic(nil)
	require.NoError(t, clf.Fit(X, y))

	acc := accuracy(clf, X, y)
	assert.GreaterOrEqual(t, acc, 0.95)
	assert.LessOrEqual(t, acc, 1.0)
	assert.Zero(t, accuracy(clf, nil, nil))
}

func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full grid search is slow")
	}

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "census.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(testutil.CensusCSV(150)), 0o600))

	cfg := config.Config{
		DataPath:     dataPath,
		ArtifactPath: filepath.Join(dir, "champion.bin"),
		TestFraction: 0.30,
		CVFolds:      3,
		Seed:         42,
	}
	require.NoError(t, cfg.Validate())

	s := schema.Default()
	mem := memory.NewGoAllocator()

	report, err := Run(cfg, s, mem)
	require.NoError(t, err)

	t.Run("every family is reported", func(t *testing.T) {
		require.Len(t, report.Results, len(model.Families()))
		for i, f := range model.Families() {
			assert.Equal(t, f, report.Results[i].Family)
		}
	})

	t.Run("champion accuracy reflects the synthetic boundary", func(t *testing.T) {
		// Labels depend on education_num alone, so a well-tuned champion
		// should land well above chance.
		assert.Greater(t, report.ChampionScore, 0.8)
		assert.Greater(t, report.TestAccuracy, 0.7)
	})

	t.Run("artifact loads and describes the champion", func(t *testing.T) {
		champ, err := artifact.Load(cfg.ArtifactPath)
		require.NoError(t, err)
		assert.Equal(t, s.Version, champ.SchemaVersion)
		assert.Equal(t, s.FeatureNames(), champ.FeatureOrder)
		assert.Equal(t, report.Champion.String(), champ.FamilyName)
		assert.NotNil(t, champ.Estimator)
		assert.Len(t, champ.Importance, s.NumFeatures())
	})

	t.Run("selection is deterministic across runs", func(t *testing.T) {
		cfg2 := cfg
		cfg2.ArtifactPath = filepath.Join(dir, "champion2.bin")
		report2, err := Run(cfg2, s, mem)
		require.NoError(t, err)
		assert.Equal(t, report.Champion, report2.Champion)
		assert.InDelta(t, report.ChampionScore, report2.ChampionScore, 1e-12)
	})

	t.Run("report renders the comparison table", func(t *testing.T) {
		out := report.String()
		assert.Contains(t, out, "Model Comparison Report")
		assert.Contains(t, out, "<- BEST")
		assert.Contains(t, out, report.Champion.String())
	})
}

func TestCrossValidateDiscardsFailingCandidates(t *testing.T) {
	// Two rows per fold cannot sustain a two-class training split for every
	// fold on adversarial labels; the family search must survive candidate
	// failures rather than abort.
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 0, 1, 1}
	folds := [][]int{{0, 1}, {2, 3}}

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()
	accs, errs := crossValidate(pool, model.FamilyLogistic, []model.Params{{"C": 1}}, X, y, folds, 1)
	require.Len(t, accs, 1)
	// Holding out fold 0 leaves only positives to train on: the candidate
	// fails at least one fold and is discarded.
	assert.Equal(t, -1.0, accs[0])
	assert.Error(t, errs[0])
}
