// Package pipeline turns the cleaned body-performance table into a trained
// classifier and serves single-record predictions from it.
//
// Train runs the fixed preprocessing chain: gender label encoding, seeded
// 80/20 split, StandardScaler fitted on the train partition only, and a
// seeded random forest. Session memoizes the table and the trained
// artifacts for the lifetime of the process.
package pipeline

import (
	"time"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/model_selection"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/YuminosukeSato/bodyperf/preprocessing"
	"github.com/YuminosukeSato/bodyperf/sklearn/ensemble"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Options are the training hyperparameters.
type Options struct {
	TestSize    float64 `mapstructure:"test_size" yaml:"test_size"`
	RandomState int64   `mapstructure:"random_state" yaml:"random_state"`
	NEstimators int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	Criterion   string  `mapstructure:"criterion" yaml:"criterion"`
	MaxFeatures string  `mapstructure:"max_features" yaml:"max_features"`
	MaxDepth    int     `mapstructure:"max_depth" yaml:"max_depth"`
	Bootstrap   bool    `mapstructure:"bootstrap" yaml:"bootstrap"`
	NJobs       int     `mapstructure:"n_jobs" yaml:"n_jobs"`
}

// DefaultOptions returns the settings the demo has always trained with.
func DefaultOptions() Options {
	return Options{
		TestSize:    0.2,
		RandomState: 42,
		NEstimators: 100,
		Criterion:   "gini",
		MaxFeatures: "sqrt",
		Bootstrap:   true,
	}
}

// Validate checks the options before any work is done.
func (o Options) Validate() error {
	switch {
	case o.TestSize <= 0 || o.TestSize >= 1:
		return errors.NewValidationError("test_size", "must be in (0, 1)", o.TestSize)
	case o.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", o.NEstimators)
	case o.Criterion != "gini" && o.Criterion != "entropy":
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", o.Criterion)
	case o.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", o.MaxDepth)
	}
	_, err := ensemble.ResolveMaxFeatures(o.MaxFeatures, len(dataset.FeatureNames))
	return err
}

// Artifacts is everything one training run produces. Exported fields so the
// whole bundle can be written with model.SaveModel.
type Artifacts struct {
	ID          string
	TrainedAt   time.Time
	DatasetHash string
	Options     Options

	Model         *ensemble.RandomForestClassifier
	Scaler        *preprocessing.StandardScaler
	GenderEncoder *preprocessing.LabelEncoder
	LabelEncoder  *preprocessing.LabelEncoder

	// Scaled partitions and their string labels.
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain []string
	YTest  []string

	Classes []string
}

// Train fits the preprocessing chain and the forest on frame.
func Train(frame *dataset.Frame, opts Options) (art *Artifacts, err error) {
	defer errors.Recover(&err, "pipeline.Train")

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(frame.Records) == 0 {
		return nil, errors.NewModelError("pipeline.Train", "empty data", errors.ErrEmptyData)
	}

	id := uuid.NewString()
	logger := log.GetLoggerWithName("pipeline").With(log.EstimatorIDKey, id)
	start := time.Now()

	// 語彙は固定: Female=0, Male=1（データに片方しかなくても同じ）
	genderEnc := preprocessing.NewLabelEncoder()
	if err := genderEnc.Fit(Genders); err != nil {
		return nil, errors.Wrap(err, "fit gender encoder")
	}

	n := len(frame.Records)
	X := mat.NewDense(n, len(dataset.FeatureNames), nil)
	for i, rec := range frame.Records {
		row, err := rec.Features(genderEnc)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		X.SetRow(i, row)
	}
	y := frame.Labels()

	labelEnc := preprocessing.NewLabelEncoder()
	if err := labelEnc.Fit(y); err != nil {
		return nil, errors.Wrap(err, "fit label encoder")
	}

	split, err := model_selection.TrainTestSplit(X, y, opts.TestSize, opts.RandomState)
	if err != nil {
		return nil, err
	}
	logger.Info("Split dataset",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, n,
		"train", len(split.YTrain),
		"test", len(split.YTest),
		log.RandomSeedKey, opts.RandomState,
	)

	scaler := preprocessing.NewStandardScalerDefault()
	xTrain, err := scaler.FitTransform(split.XTrain)
	if err != nil {
		return nil, errors.Wrap(err, "scale train partition")
	}
	xTest, err := scaler.Transform(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "scale test partition")
	}

	codes, err := labelEnc.Transform(split.YTrain)
	if err != nil {
		return nil, err
	}
	yTrain := mat.NewDense(len(codes), 1, nil)
	for i, c := range codes {
		yTrain.Set(i, 0, float64(c))
	}

	forest := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(opts.NEstimators),
		ensemble.WithCriterion(opts.Criterion),
		ensemble.WithMaxFeatures(opts.MaxFeatures),
		ensemble.WithMaxDepth(opts.MaxDepth),
		ensemble.WithBootstrap(opts.Bootstrap),
		ensemble.WithRandomState(opts.RandomState),
		ensemble.WithNJobs(opts.NJobs),
	)
	if err := forest.Fit(xTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "fit random forest")
	}

	art = &Artifacts{
		ID:            id,
		TrainedAt:     time.Now(),
		Options:       opts,
		Model:         forest,
		Scaler:        scaler,
		GenderEncoder: genderEnc,
		LabelEncoder:  labelEnc,
		XTrain:        mat.DenseCopyOf(xTrain),
		XTest:         mat.DenseCopyOf(xTest),
		YTrain:        split.YTrain,
		YTest:         split.YTest,
		Classes:       labelEnc.Classes(),
	}

	logger.Info("Model trained",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.FeaturesKey, len(dataset.FeatureNames),
		log.ClassesKey, len(art.Classes),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return art, nil
}
