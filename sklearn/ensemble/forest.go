// Package ensemble implements bagged tree ensembles compatible with
// scikit-learn's sklearn.ensemble.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/core/parallel"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/YuminosukeSato/bodyperf/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestClassifier is a bagging ensemble of CART trees. Each tree is
// trained on a bootstrap replica of the training rows and examines a random
// subset of features at every split. Class probabilities are the mean of
// the per-tree leaf distributions.
type RandomForestClassifier struct {
	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int
	maxFeatures     string // "sqrt", "log2", "all" or an integer
	minSamplesSplit int
	minSamplesLeaf  int
	bootstrap       bool
	randomState     int64
	nJobs           int // 0 uses every CPU

	// Fitted state - Public for gob encoding
	State       *model.StateManager
	Estimators  []*tree.DecisionTreeClassifier
	ClassLabels []int
	Importances []float64
}

// Option is a functional option for RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(f *RandomForestClassifier) { f.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(c string) Option {
	return func(f *RandomForestClassifier) { f.criterion = c }
}

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(f *RandomForestClassifier) { f.maxDepth = d }
}

// WithMaxFeatures sets the per-split feature budget: "sqrt", "log2", "all"
// or a positive integer.
func WithMaxFeatures(s string) Option {
	return func(f *RandomForestClassifier) { f.maxFeatures = s }
}

// WithMinSamplesSplit sets min_samples_split of every tree.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestClassifier) { f.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf of every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForestClassifier) { f.minSamplesLeaf = n }
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees all rows.
func WithBootstrap(b bool) Option {
	return func(f *RandomForestClassifier) { f.bootstrap = b }
}

// WithRandomState sets the base seed. Tree i derives its own stream from
// the base seed and i.
func WithRandomState(seed int64) Option {
	return func(f *RandomForestClassifier) { f.randomState = seed }
}

// WithNJobs sets how many trees are fitted concurrently.
func WithNJobs(n int) Option {
	return func(f *RandomForestClassifier) { f.nJobs = n }
}

// NewRandomForestClassifier creates a forest with scikit-learn defaults.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	f := &RandomForestClassifier{
		State:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxFeatures:     "sqrt",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ResolveMaxFeatures turns a max_features setting into a feature count for
// nFeatures columns.
func ResolveMaxFeatures(setting string, nFeatures int) (int, error) {
	switch setting {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nFeatures)))), nil
	case "log2":
		return max(1, int(math.Log2(float64(nFeatures)))), nil
	case "", "all", "none":
		return nFeatures, nil
	}
	k, err := strconv.Atoi(setting)
	if err != nil || k < 1 || k > nFeatures {
		return 0, errors.NewValidationError("max_features",
			fmt.Sprintf("must be 'sqrt', 'log2', 'all' or an integer in [1, %d]", nFeatures), setting)
	}
	return k, nil
}

// Fit trains the forest on X (n×p) and integer class labels y (n×1).
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("RandomForestClassifier.Fit",
			fmt.Sprintf("y must be a column vector, got shape (%d, %d)", yRows, yCols))
	}
	if f.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.nEstimators)
	}
	mtry, err := ResolveMaxFeatures(f.maxFeatures, nFeatures)
	if err != nil {
		return err
	}

	classes, codes, err := tree.EncodeTargets(y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
	logger.Debug("Fitting forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.RandomSeedKey, f.randomState,
		"n_estimators", f.nEstimators,
		"max_features", mtry,
	)
	start := time.Now()

	f.State.Reset()
	ds := tree.NewDataset(X)
	estimators := make([]*tree.DecisionTreeClassifier, f.nEstimators)
	errs := make([]error, f.nEstimators)

	parallel.ParallelizeN(f.nEstimators, f.nJobs, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			estimators[i], errs[i] = f.fitTree(i, ds, codes, classes, mtry)
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "fitting tree %d", i)
		}
	}

	f.Estimators = estimators
	f.ClassLabels = classes
	f.Importances = meanImportances(estimators, nFeatures)
	f.State.MarkFitted(nFeatures, nSamples, len(classes))

	logger.Debug("Forest fitted",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitTree trains tree i. Its bootstrap draw and split seed depend only on
// randomState and i, so results do not depend on worker scheduling.
func (f *RandomForestClassifier) fitTree(i int, ds *tree.Dataset, y []int, classes []int, mtry int) (est *tree.DecisionTreeClassifier, err error) {
	defer errors.Recover(&err, "RandomForestClassifier.fitTree")

	rnd := rand.New(rand.NewSource(f.randomState + int64(i)))
	n, _ := ds.Dims()

	samples := make([]int, n)
	if f.bootstrap {
		for j := range samples {
			samples[j] = rnd.Intn(n)
		}
	} else {
		for j := range samples {
			samples[j] = j
		}
	}

	est = tree.NewDecisionTreeClassifier(
		tree.WithCriterion(f.criterion),
		tree.WithMaxDepth(f.maxDepth),
		tree.WithMinSamplesSplit(f.minSamplesSplit),
		tree.WithMinSamplesLeaf(f.minSamplesLeaf),
		tree.WithMaxFeatures(mtry),
		tree.WithRandomState(rnd.Int63()),
	)
	if err := est.FitDataset(ds, y, classes, samples); err != nil {
		return nil, err
	}
	return est, nil
}

func meanImportances(estimators []*tree.DecisionTreeClassifier, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, est := range estimators {
		for j, v := range est.Importances {
			out[j] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// PredictProba returns the mean of the per-tree class distributions
// (n × n_classes) in Classes() order.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.State.CheckInput("RandomForestClassifier", "PredictProba", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	k := len(f.ClassLabels)
	out := mat.NewDense(r, k, nil)
	scale := 1 / float64(len(f.Estimators))

	parallel.ParallelizeN(r, f.nJobs, func(lo, hi int) {
		row := make([]float64, c)
		acc := make([]float64, k)
		for i := lo; i < hi; i++ {
			mat.Row(row, i, X)
			for j := range acc {
				acc[j] = 0
			}
			for _, est := range f.Estimators {
				for j, p := range est.PredictProbaRow(row) {
					acc[j] += p
				}
			}
			for j := range acc {
				out.Set(i, j, acc[j]*scale)
			}
		}
	})
	return out, nil
}

// Predict returns the class with the highest mean probability for each row
// as an n×1 matrix. Ties go to the smaller class label.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, k := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(f.ClassLabels[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on the given data. It returns 0 if
// prediction fails.
func (f *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := f.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := y.Dims()
	if r == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}

// IsFitted reports whether the forest has been fitted.
func (f *RandomForestClassifier) IsFitted() bool {
	return f.State.IsFitted()
}

// Classes returns the class labels seen during fitting.
func (f *RandomForestClassifier) Classes() []int {
	return append([]int(nil), f.ClassLabels...)
}

// GetFeatureImportances returns the mean impurity decrease per feature,
// normalized to sum to 1.
func (f *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

// GetParams returns the hyperparameters.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.nEstimators,
		"criterion":         f.criterion,
		"max_depth":         f.maxDepth,
		"max_features":      f.maxFeatures,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"bootstrap":         f.bootstrap,
		"random_state":      f.randomState,
		"n_jobs":            f.nJobs,
	}
}

// String returns a short description of the forest.
func (f *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, criterion=%s, max_features=%s, random_state=%d)",
		f.nEstimators, f.criterion, f.maxFeatures, f.randomState)
}

var (
	_ model.Classifier      = (*RandomForestClassifier)(nil)
	_ model.ParameterGetter = (*RandomForestClassifier)(nil)
)
