package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func writeDataset(t *testing.T, n int, seed int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), dataset.DefaultPath)
	require.NoError(t, dataset.WriteCSV(path, dataset.RawHeader, dataset.Synthetic(n, seed), true))
	return path
}

func loadFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	tbl, err := dataset.Load(writeDataset(t, n, 42))
	require.NoError(t, err)
	frame, err := dataset.Clean(tbl)
	require.NoError(t, err)
	return frame
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.NEstimators = 10
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 0.2, opts.TestSize)
	assert.Equal(t, int64(42), opts.RandomState)
	assert.Equal(t, 100, opts.NEstimators)
	assert.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"test size zero", func(o *Options) { o.TestSize = 0 }},
		{"test size one", func(o *Options) { o.TestSize = 1 }},
		{"no trees", func(o *Options) { o.NEstimators = 0 }},
		{"bad criterion", func(o *Options) { o.Criterion = "mse" }},
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }},
		{"bad max features", func(o *Options) { o.MaxFeatures = "most" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			var ve *errors.ValidationError
			assert.True(t, errors.As(opts.Validate(), &ve))
		})
	}
}

func TestTrain_Partitions(t *testing.T) {
	frame := loadFrame(t, 300)

	art, err := Train(frame, fastOptions())
	require.NoError(t, err)

	trainRows, cols := art.XTrain.Dims()
	testRows, _ := art.XTest.Dims()
	assert.Equal(t, 11, cols)
	assert.Equal(t, 240, trainRows)
	assert.Equal(t, 60, testRows)
	assert.Len(t, art.YTrain, 240)
	assert.Len(t, art.YTest, 60)
	assert.NotEmpty(t, art.ID)
	assert.Equal(t, []string{"Female", "Male"}, art.GenderEncoder.Classes())
	assert.Subset(t, []string{"A", "B", "C", "D"}, art.Classes)
}

func TestTrain_ScaledTrainPartition(t *testing.T) {
	art, err := Train(loadFrame(t, 300), fastOptions())
	require.NoError(t, err)

	_, cols := art.XTrain.Dims()
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, art.XTrain)
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-9, "feature %d mean", j)
		assert.InDelta(t, 1, std, 1e-9, "feature %d std", j)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	frame := loadFrame(t, 300)

	a, err := Train(frame, fastOptions())
	require.NoError(t, err)
	b, err := Train(frame, fastOptions())
	require.NoError(t, err)

	assert.Equal(t, a.YTest, b.YTest)
	assert.True(t, mat.Equal(a.XTest, b.XTest))

	predA, err := a.PredictLabels()
	require.NoError(t, err)
	predB, err := b.PredictLabels()
	require.NoError(t, err)
	assert.Equal(t, predA, predB)

	la, err := a.Predict(DefaultInput())
	require.NoError(t, err)
	lb, err := b.Predict(DefaultInput())
	require.NoError(t, err)
	assert.Equal(t, la, lb)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestTrain_EmptyFrame(t *testing.T) {
	_, err := Train(&dataset.Frame{Columns: dataset.Columns}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestGenderEncoding_Consistent(t *testing.T) {
	art, err := Train(loadFrame(t, 200), fastOptions())
	require.NoError(t, err)

	in := DefaultInput()
	in.Gender = "Male"
	x, err := art.features(in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x[1])

	in.Gender = "Female"
	x, err = art.features(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, x[1])
}

func TestGenderEncoding_SingleGenderData(t *testing.T) {
	rows := dataset.Synthetic(120, 5)
	for _, r := range rows {
		r[1] = "M"
	}
	path := filepath.Join(t.TempDir(), dataset.DefaultPath)
	require.NoError(t, dataset.WriteCSV(path, dataset.RawHeader, rows, false))
	tbl, err := dataset.Load(path)
	require.NoError(t, err)
	frame, err := dataset.Clean(tbl)
	require.NoError(t, err)

	art, err := Train(frame, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Female", "Male"}, art.GenderEncoder.Classes())

	in := DefaultInput()
	x, err := art.features(in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x[1])

	in.Gender = "Female"
	x, err = art.features(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, x[1])
	_, err = art.Predict(in)
	assert.NoError(t, err)
}

func TestPredict_DefaultInput(t *testing.T) {
	art, err := Train(loadFrame(t, 300), DefaultOptions())
	require.NoError(t, err)

	label, err := art.Predict(DefaultInput())
	require.NoError(t, err)
	assert.Contains(t, art.Classes, label)

	probs, err := art.PredictProba(DefaultInput())
	require.NoError(t, err)
	sum := 0.0
	best, bestP := "", -1.0
	for l, p := range probs {
		sum += p
		if p > bestP || (p == bestP && l < best) {
			best, bestP = l, p
		}
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.Equal(t, label, best)
}

func TestInput_Validate(t *testing.T) {
	assert.NoError(t, DefaultInput().Validate())

	tests := []struct {
		name  string
		field string
		edit  func(*Input)
	}{
		{"age too high", "age", func(in *Input) { in.Age = 101 }},
		{"height too low", "height_cm", func(in *Input) { in.HeightCm = 99.9 }},
		{"sit and bend too low", "sit_and_bend_forward_cm", func(in *Input) { in.SitAndBendForwardCm = -51 }},
		{"broad jump too high", "broad_jump_cm", func(in *Input) { in.BroadJumpCm = 301 }},
		{"unknown gender", "gender", func(in *Input) { in.Gender = "M" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultInput()
			tt.edit(&in)
			err := in.Validate()
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.ParamName)
		})
	}

	edge := DefaultInput()
	edge.SitAndBendForwardCm = -50
	edge.Age = 0
	assert.NoError(t, edge.Validate(), "bounds are inclusive")
}

func TestEvaluate(t *testing.T) {
	art, err := Train(loadFrame(t, 300), fastOptions())
	require.NoError(t, err)

	ev, err := art.Evaluate()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ev.Accuracy, 0.0)
	assert.LessOrEqual(t, ev.Accuracy, 1.0)
	assert.Equal(t, len(art.YTest), ev.Report.Total)
	assert.Contains(t, ev.Text, "weighted avg")
	assert.Len(t, ev.ConfusionMatrix, len(ev.Labels))

	total := 0.0
	for _, row := range ev.ConfusionMatrix {
		for _, v := range row {
			total += v
		}
	}
	assert.Equal(t, float64(len(art.YTest)), total)
}

func TestArtifacts_GobRoundTrip(t *testing.T) {
	art, err := Train(loadFrame(t, 200), fastOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(art, &buf))

	loaded := &Artifacts{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	want, err := art.Predict(DefaultInput())
	require.NoError(t, err)
	got, err := loaded.Predict(DefaultInput())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, art.ID, loaded.ID)
}

func TestSession_MissingDatasetIsFatal(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), dataset.DefaultPath), fastOptions())

	_, err := s.Data(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, err = s.Artifacts(context.Background())
	assert.True(t, errors.IsFatal(err))
}

func TestSession_CachesAndRefreshes(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	prev := log.GetLogger()
	log.SetLogger(logger)
	defer log.SetLogger(prev)

	path := writeDataset(t, 200, 1)
	s := NewSession(path, fastOptions())
	ctx := context.Background()

	t1, err := s.Data(ctx)
	require.NoError(t, err)
	t2, err := s.Data(ctx)
	require.NoError(t, err)
	assert.Same(t, t1, t2)

	a1, err := s.Artifacts(ctx)
	require.NoError(t, err)
	a2, err := s.Artifacts(ctx)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.NotEmpty(t, a1.DatasetHash)

	assert.True(t, logger.ContainsField(log.CacheKey, log.CacheHit))
	assert.True(t, logger.ContainsMessage("Model cached"))

	changed, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, dataset.WriteCSV(path, dataset.RawHeader, dataset.Synthetic(220, 2), false))
	changed, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	a3, err := s.Artifacts(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a1.ID, a3.ID)
	assert.NotEqual(t, a1.DatasetHash, a3.DatasetHash)

	s.Invalidate()
	a4, err := s.Artifacts(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a3.ID, a4.ID)
}

func TestSession_ConcurrentArtifacts(t *testing.T) {
	s := NewSession(writeDataset(t, 150, 3), fastOptions())

	const n = 8
	results := make(chan *Artifacts, n)
	for i := 0; i < n; i++ {
		go func() {
			art, err := s.Artifacts(context.Background())
			if err != nil {
				results <- nil
				return
			}
			results <- art
		}()
	}

	first := <-results
	require.NotNil(t, first)
	for i := 1; i < n; i++ {
		assert.Same(t, first, <-results)
	}
}

func TestSession_CanceledContext(t *testing.T) {
	s := NewSession(writeDataset(t, 50, 4), fastOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Artifacts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
