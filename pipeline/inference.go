package pipeline

import (
	"fmt"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Input is one record entered in the prediction form.
type Input struct {
	Age                 int     `json:"age" form:"age"`
	Gender              string  `json:"gender" form:"gender"`
	HeightCm            float64 `json:"height_cm" form:"height_cm"`
	WeightKg            float64 `json:"weight_kg" form:"weight_kg"`
	BodyFat             float64 `json:"body_fat" form:"body_fat"`
	Diastolic           float64 `json:"diastolic" form:"diastolic"`
	Systolic            float64 `json:"systolic" form:"systolic"`
	GripForce           float64 `json:"grip_force" form:"grip_force"`
	SitAndBendForwardCm float64 `json:"sit_and_bend_forward_cm" form:"sit_and_bend_forward_cm"`
	SitUpsCounts        int     `json:"sit_ups_counts" form:"sit_ups_counts"`
	BroadJumpCm         float64 `json:"broad_jump_cm" form:"broad_jump_cm"`
}

// DefaultInput is the form's initial state.
func DefaultInput() Input {
	return Input{
		Age:                 25,
		Gender:              "Male",
		HeightCm:            170,
		WeightKg:            70,
		BodyFat:             20,
		Diastolic:           80,
		Systolic:            120,
		GripForce:           50,
		SitAndBendForwardCm: 10,
		SitUpsCounts:        30,
		BroadJumpCm:         200,
	}
}

// Bound is the accepted range of one form field.
type Bound struct {
	Field string
	Label string
	Min   float64
	Max   float64
	Step  float64
}

// Bounds lists the numeric form fields in feature order, without gender.
var Bounds = []Bound{
	{"age", "Age", 0, 100, 1},
	{"height_cm", "Height (cm)", 100, 250, 0.1},
	{"weight_kg", "Weight (kg)", 30, 200, 0.1},
	{"body_fat", "Body Fat (%)", 5, 50, 0.1},
	{"diastolic", "Diastolic BP", 50, 150, 0.1},
	{"systolic", "Systolic BP", 90, 200, 0.1},
	{"grip_force", "Grip Force", 0, 100, 0.1},
	{"sit_and_bend_forward_cm", "Sit & Bend Forward (cm)", -50, 50, 0.1},
	{"sit_ups_counts", "Sit Up Counts", 0, 100, 1},
	{"broad_jump_cm", "Broad Jump (cm)", 0, 300, 0.1},
}

// Genders are the accepted gender values.
var Genders = []string{"Male", "Female"}

// Values returns the numeric fields in Bounds order.
func (in Input) Values() []float64 {
	return []float64{
		float64(in.Age),
		in.HeightCm,
		in.WeightKg,
		in.BodyFat,
		in.Diastolic,
		in.Systolic,
		in.GripForce,
		in.SitAndBendForwardCm,
		float64(in.SitUpsCounts),
		in.BroadJumpCm,
	}
}

// Validate enforces the form bounds.
func (in Input) Validate() error {
	if in.Gender != "Male" && in.Gender != "Female" {
		return errors.NewValidationError("gender", "must be 'Male' or 'Female'", in.Gender)
	}
	for i, v := range in.Values() {
		b := Bounds[i]
		if v < b.Min || v > b.Max {
			return errors.NewValidationError(b.Field,
				fmt.Sprintf("must be between %g and %g", b.Min, b.Max), v)
		}
	}
	return nil
}

// features builds the unscaled model row, gender encoded with the training
// encoder (Female=0, Male=1).
func (a *Artifacts) features(in Input) ([]float64, error) {
	codes, err := a.GenderEncoder.Transform([]string{in.Gender})
	if err != nil {
		return nil, errors.Wrap(err, "encode gender")
	}
	return []float64{
		float64(in.Age),
		float64(codes[0]),
		in.HeightCm,
		in.WeightKg,
		in.BodyFat,
		in.Diastolic,
		in.Systolic,
		in.GripForce,
		in.SitAndBendForwardCm,
		float64(in.SitUpsCounts),
		in.BroadJumpCm,
	}, nil
}

func (a *Artifacts) scaledRow(in Input) (*mat.Dense, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	x, err := a.features(in)
	if err != nil {
		return nil, err
	}
	scaled, err := a.Scaler.TransformRow(x)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(1, len(scaled), scaled), nil
}

// Predict classifies one record and returns its performance label.
func (a *Artifacts) Predict(in Input) (label string, err error) {
	defer errors.Recover(&err, "Artifacts.Predict")

	row, err := a.scaledRow(in)
	if err != nil {
		return "", err
	}
	pred, err := a.Model.Predict(row)
	if err != nil {
		return "", err
	}
	labels, err := a.LabelEncoder.InverseTransform([]int{int(pred.At(0, 0))})
	if err != nil {
		return "", err
	}
	return labels[0], nil
}

// PredictProba returns the class probabilities of one record keyed by label.
func (a *Artifacts) PredictProba(in Input) (probs map[string]float64, err error) {
	defer errors.Recover(&err, "Artifacts.PredictProba")

	row, err := a.scaledRow(in)
	if err != nil {
		return nil, err
	}
	proba, err := a.Model.PredictProba(row)
	if err != nil {
		return nil, err
	}
	labels, err := a.LabelEncoder.InverseTransform(a.Model.Classes())
	if err != nil {
		return nil, err
	}
	probs = make(map[string]float64, len(labels))
	for j, l := range labels {
		probs[l] = proba.At(0, j)
	}
	return probs, nil
}
