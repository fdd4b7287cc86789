package train

import (
	"math/rand"

	"github.com/paveg/incomeclf/internal/model"
	"github.com/paveg/incomeclf/internal/parallel"
)

// foldAssignment partitions n rows into k contiguous folds over a seeded
// shuffle. Deterministic for a fixed seed.
func foldAssignment(n, k int, seed int64) [][]int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	folds := make([][]int, k)
	for i, row := range order {
		f := i % k
		folds[f] = append(folds[f], row)
	}
	return folds
}

// accuracy scores hard 0.5-threshold predictions against labels.
func accuracy(clf model.Classifier, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, x := range X {
		pred := 0
		if clf.PredictProba(x) >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// cvTask is one fold×candidate evaluation.
type cvTask struct {
	candidate int
	fold      int
}

// cvOutcome carries one task's accuracy or failure.
type cvOutcome struct {
	candidate int
	acc       float64
	err       error
}

// crossValidate scores every candidate of a family by k-fold accuracy,
// fanning the fold×candidate evaluations out on the pool. Each evaluation
// trains an independent estimator copy; nothing is shared between tasks.
// A candidate with any failed fold is discarded (its error is kept for
// reporting).
func crossValidate(
	pool *parallel.WorkerPool,
	family model.Family,
	candidates []model.Params,
	X [][]float64,
	y []int,
	folds [][]int,
	seed int64,
) (accs []float64, errs []error) {
	tasks := make([]cvTask, 0, len(candidates)*len(folds))
	for c := range candidates {
		for f := range folds {
			tasks = append(tasks, cvTask{candidate: c, fold: f})
		}
	}

	outcomes := parallel.ProcessIndexed(pool, tasks, func(_ int, task cvTask) cvOutcome {
		trainX, trainY, valX, valY := splitFold(X, y, folds, task.fold)
		clf, err := model.New(family, candidates[task.candidate], seed)
		if err != nil {
			return cvOutcome{candidate: task.candidate, err: err}
		}
		if err := clf.Fit(trainX, trainY); err != nil {
			return cvOutcome{candidate: task.candidate, err: err}
		}
		return cvOutcome{candidate: task.candidate, acc: accuracy(clf, valX, valY)}
	})

	sums := make([]float64, len(candidates))
	counts := make([]int, len(candidates))
	errs = make([]error, len(candidates))
	for _, out := range outcomes {
		if out.err != nil {
			if errs[out.candidate] == nil {
				errs[out.candidate] = out.err
			}
			continue
		}
		sums[out.candidate] += out.acc
		counts[out.candidate]++
	}

	accs = make([]float64, len(candidates))
	for c := range candidates {
		if errs[c] != nil || counts[c] != len(folds) {
			accs[c] = -1
			continue
		}
		accs[c] = sums[c] / float64(counts[c])
	}
	return accs, errs
}

// splitFold builds the train/validation matrices for one held-out fold.
func splitFold(X [][]float64, y []int, folds [][]int, held int) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	for f, rows := range folds {
		for _, i := range rows {
			if f == held {
				valX = append(valX, X[i])
				valY = append(valY, y[i])
			} else {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}
	}
	return trainX, trainY, valX, valY
}
