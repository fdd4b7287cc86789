// Package train runs the cross-validated grid search over the classifier
// families, selects the champion, and persists the artifact.
//
// Training is a single batch job, temporally separate from serving. The
// fold×candidate evaluations run concurrently on a worker pool; everything
// else is sequential and deterministic for a fixed seed.
package train

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/paveg/incomeclf/internal/artifact"
	"github.com/paveg/incomeclf/internal/config"
	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/ingest"
	"github.com/paveg/incomeclf/internal/logging"
	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/parallel"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/transform"
)

// accuracyTolerance bounds what counts as a tie during selection. Ties break
// toward the simpler family (model.Families order).
const accuracyTolerance = 1e-9

// FamilyResult is the outcome of one family's grid search.
type FamilyResult struct {
	Family     model.Family
	BestParams model.Params
	CVAccuracy float64 // mean k-fold accuracy of the best candidate
	Err        error   // non-nil when the family was excluded
}

// Report summarizes a training run for the operator.
type Report struct {
	Results       []FamilyResult
	Champion      model.Family
	ChampionScore float64
	TestAccuracy  float64 // held-out accuracy of the refit champion
	ArtifactPath  string
	Duration      time.Duration
}

// String renders the comparison table the training CLI prints.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model Comparison Report:\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 48))
	sorted := make([]FamilyResult, len(r.Results))
	copy(sorted, r.Results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CVAccuracy > sorted[j].CVAccuracy
	})
	for _, res := range sorted {
		if res.Err != nil {
			fmt.Fprintf(&b, "  %-26s excluded (%v)\n", res.Family, res.Err)
			continue
		}
		marker := ""
		if res.Family == r.Champion {
			marker = " <- BEST"
		}
		fmt.Fprintf(&b, "  %-26s %.4f%s\n", res.Family, res.CVAccuracy, marker)
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 48))
	fmt.Fprintf(&b, "  Champion:      %s\n", r.Champion)
	fmt.Fprintf(&b, "  CV accuracy:   %.4f\n", r.ChampionScore)
	fmt.Fprintf(&b, "  Test accuracy: %.4f\n", r.TestAccuracy)
	fmt.Fprintf(&b, "  Artifact:      %s\n", r.ArtifactPath)
	return b.String()
}

// Run executes the full training pipeline: ingest, split, fit transform,
// grid search every family, select the champion, refit it on the full
// training split, and persist the artifact atomically.
func Run(cfg config.Config, s *schema.Schema, mem memory.Allocator) (*Report, error) {
	start := time.Now()
	log := logging.L()

	raw, err := ingest.Load(cfg.DataPath, s, mem)
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	trainSet, testSet, err := ingest.Split(raw, cfg.TestFraction, cfg.Seed, mem)
	if err != nil {
		return nil, err
	}
	defer trainSet.Release()
	defer testSet.Release()

	pipeline, err := transform.Fit(trainSet, s)
	if err != nil {
		return nil, err
	}
	trainX, err := pipeline.TransformDataset(trainSet)
	if err != nil {
		return nil, err
	}
	testX, err := pipeline.TransformDataset(testSet)
	if err != nil {
		return nil, err
	}
	trainY := trainSet.Labels()
	testY := testSet.Labels()

	pool := parallel.NewWorkerPool(cfg.Workers())
	defer pool.Close()
	folds := foldAssignment(len(trainX), cfg.CVFolds, cfg.Seed)

	results := make([]FamilyResult, 0, len(model.Families()))
	for _, family := range model.Families() {
		res := searchFamily(pool, family, trainX, trainY, folds, cfg.Seed)
		if res.Err != nil {
			log.Error("model family excluded from selection",
				zap.Stringer("family", family),
				zap.Error(res.Err))
		} else {
			log.Info("family grid search complete",
				zap.Stringer("family", family),
				zap.Float64("cv_accuracy", res.CVAccuracy))
		}
		results = append(results, res)
	}

	champion, ok := selectChampion(results)
	if !ok {
		return nil, errors.ErrAllFamiliesFailed
	}

	// Refit the winning candidate on the full training split.
	estimator, err := model.New(champion.Family, champion.BestParams, cfg.Seed)
	if err != nil {
		return nil, errors.NewTrainingError("Refit", champion.Family.String(), err)
	}
	if err := estimator.Fit(trainX, trainY); err != nil {
		return nil, errors.NewTrainingError("Refit", champion.Family.String(), err)
	}
	testAcc := accuracy(estimator, testX, testY)

	champ := &artifact.Champion{
		SchemaVersion: s.Version,
		FeatureOrder:  pipeline.FeatureOrder,
		Pipeline:      pipeline,
		Estimator:     estimator,
		FamilyName:    champion.Family.String(),
		Accuracy:      champion.CVAccuracy,
		Importance:    estimator.FeatureImportances(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := artifact.Save(champ, cfg.ArtifactPath); err != nil {
		return nil, err
	}
	log.Info("champion persisted",
		zap.Stringer("family", champion.Family),
		zap.Float64("cv_accuracy", champion.CVAccuracy),
		zap.Float64("test_accuracy", testAcc),
		zap.String("path", cfg.ArtifactPath))

	return &Report{
		Results:       results,
		Champion:      champion.Family,
		ChampionScore: champion.CVAccuracy,
		TestAccuracy:  testAcc,
		ArtifactPath:  cfg.ArtifactPath,
		Duration:      time.Since(start),
	}, nil
}

// searchFamily cross-validates a family's whole grid and keeps its best
// candidate. A family where no candidate completes every fold is excluded
// with a training error rather than aborting the run.
func searchFamily(
	pool *parallel.WorkerPool,
	family model.Family,
	X [][]float64,
	y []int,
	folds [][]int,
	seed int64,
) FamilyResult {
	candidates := GridFor(family).Enumerate()
	accs, errs := crossValidate(pool, family, candidates, X, y, folds, seed)

	best := -1
	for c, acc := range accs {
		if acc < 0 {
			continue
		}
		if best < 0 || acc > accs[best] {
			best = c
		}
	}
	if best < 0 {
		var cause error
		for _, err := range errs {
			if err != nil {
				cause = err
				break
			}
		}
		return FamilyResult{
			Family: family,
			Err:    errors.NewTrainingError("GridSearch", family.String(), cause),
		}
	}
	return FamilyResult{
		Family:     family,
		BestParams: candidates[best],
		CVAccuracy: accs[best],
	}
}

// selectChampion picks the family with the single highest cross-validated
// accuracy. Results arrive in model.Families order (simplest first), and a
// challenger must beat the incumbent by more than the tolerance, so ties
// resolve deterministically toward the simpler family.
func selectChampion(results []FamilyResult) (FamilyResult, bool) {
	var champion FamilyResult
	found := false
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if !found || res.CVAccuracy > champion.CVAccuracy+accuracyTolerance {
			champion = res
			found = true
		}
	}
	return champion, found
}
