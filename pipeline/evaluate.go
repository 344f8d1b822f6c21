package pipeline

import (
	"github.com/YuminosukeSato/bodyperf/metrics"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
)

// Evaluation is the held-out performance of a training run.
type Evaluation struct {
	Accuracy float64         `json:"accuracy"`
	Report   *metrics.Report `json:"report"`
	Text     string          `json:"text"`

	// ConfusionMatrix rows are true labels, columns predicted, both in Labels order.
	Labels          []string    `json:"labels"`
	ConfusionMatrix [][]float64 `json:"confusion_matrix"`
}

// PredictLabels classifies every row of the scaled test partition.
func (a *Artifacts) PredictLabels() ([]string, error) {
	pred, err := a.Model.Predict(a.XTest)
	if err != nil {
		return nil, err
	}
	r, _ := pred.Dims()
	codes := make([]int, r)
	for i := range codes {
		codes[i] = int(pred.At(i, 0))
	}
	return a.LabelEncoder.InverseTransform(codes)
}

// Evaluate scores the model on the test partition.
func (a *Artifacts) Evaluate() (*Evaluation, error) {
	yPred, err := a.PredictLabels()
	if err != nil {
		return nil, errors.Wrap(err, "predict test partition")
	}

	report, err := metrics.ClassificationReport(a.YTest, yPred)
	if err != nil {
		return nil, err
	}
	cm, labels, err := metrics.ConfusionMatrix(a.YTest, yPred, nil)
	if err != nil {
		return nil, err
	}

	rows, _ := cm.Dims()
	cmRows := make([][]float64, rows)
	for i := range cmRows {
		cmRows[i] = cm.RawRowView(i)
	}

	log.GetLoggerWithName("pipeline").Info("Model evaluated",
		log.EstimatorIDKey, a.ID,
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseTesting,
		log.SamplesKey, len(a.YTest),
		log.AccuracyKey, report.Accuracy,
	)

	return &Evaluation{
		Accuracy:        report.Accuracy,
		Report:          report,
		Text:            report.String(),
		Labels:          labels,
		ConfusionMatrix: cmRows,
	}, nil
}
