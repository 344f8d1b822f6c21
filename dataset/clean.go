package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// Columns is the canonical schema after cleanup, in file order.
var Columns = []string{
	"age",
	"gender",
	"height_cm",
	"weight_kg",
	"body_fat",
	"diastolic",
	"systolic",
	"grip_force",
	"sit_and_bend_forward_cm",
	"sit_ups_counts",
	"broad_jump_cm",
	"performance",
}

// FeatureNames are the model inputs: every canonical column but the label.
var FeatureNames = Columns[:len(Columns)-1]

// LabelColumn is the classification target.
const LabelColumn = "performance"

// IndexColumn is the pandas index artifact some exports carry.
const IndexColumn = "Unnamed: 0"

// Record is one cleaned row.
type Record struct {
	Age                 float64 `json:"age"`
	Gender              string  `json:"gender"`
	HeightCm            float64 `json:"height_cm"`
	WeightKg            float64 `json:"weight_kg"`
	BodyFat             float64 `json:"body_fat"`
	Diastolic           float64 `json:"diastolic"`
	Systolic            float64 `json:"systolic"`
	GripForce           float64 `json:"grip_force"`
	SitAndBendForwardCm float64 `json:"sit_and_bend_forward_cm"`
	SitUpsCounts        float64 `json:"sit_ups_counts"`
	BroadJumpCm         float64 `json:"broad_jump_cm"`
	Performance         string  `json:"performance"`
}

// Encoder maps category strings to integer codes.
type Encoder interface {
	Transform(labels []string) ([]int, error)
}

// Features returns the 11 model inputs in FeatureNames order, with gender
// replaced by its code from enc.
func (r Record) Features(enc Encoder) ([]float64, error) {
	codes, err := enc.Transform([]string{r.Gender})
	if err != nil {
		return nil, err
	}
	return []float64{
		r.Age,
		float64(codes[0]),
		r.HeightCm,
		r.WeightKg,
		r.BodyFat,
		r.Diastolic,
		r.Systolic,
		r.GripForce,
		r.SitAndBendForwardCm,
		r.SitUpsCounts,
		r.BroadJumpCm,
	}, nil
}

// Frame is the cleaned table.
type Frame struct {
	Columns []string
	Records []Record
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return len(f.Records), len(f.Columns)
}

// Genders returns the gender column.
func (f *Frame) Genders() []string {
	out := make([]string, len(f.Records))
	for i, r := range f.Records {
		out[i] = r.Gender
	}
	return out
}

// Labels returns the performance column.
func (f *Frame) Labels() []string {
	out := make([]string, len(f.Records))
	for i, r := range f.Records {
		out[i] = r.Performance
	}
	return out
}

// Clean drops the index artifact column if present and renames the rest
// positionally to Columns. Column names in the file are not checked; only
// the count is. A count other than len(Columns) is a *errors.SchemaError.
func Clean(t *Table) (*Frame, error) {
	keep := make([]int, 0, len(t.Header))
	for j, name := range t.Header {
		name = strings.TrimSpace(name)
		if name == IndexColumn || (j == 0 && name == "") {
			continue
		}
		keep = append(keep, j)
	}
	if len(keep) != len(Columns) {
		return nil, errors.NewSchemaError(len(Columns), len(keep), t.Header)
	}

	records := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(keep))
		for k, j := range keep {
			cells[k] = strings.TrimSpace(row[j])
		}
		rec, err := parseRecord(cells)
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, errors.Wrapf(err, "line %d", i+2)
		}
		records[i] = rec
	}

	return &Frame{
		Columns: append([]string(nil), Columns...),
		Records: records,
	}, nil
}

func parseRecord(cells []string) (Record, error) {
	var (
		r   Record
		err error
	)
	num := func(idx int) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(cells[idx], 64)
		if err != nil {
			err = errors.NewValueError("dataset.Clean",
				fmt.Sprintf("column %q: cannot parse %q as a number", Columns[idx], cells[idx]))
		}
		return v
	}

	r.Age = num(0)
	r.Gender = CanonicalGender(cells[1])
	if err == nil && r.Gender != "Male" && r.Gender != "Female" {
		err = errors.NewValueError("dataset.Clean",
			fmt.Sprintf("column %q: unknown gender %q", Columns[1], cells[1]))
	}
	r.HeightCm = num(2)
	r.WeightKg = num(3)
	r.BodyFat = num(4)
	r.Diastolic = num(5)
	r.Systolic = num(6)
	r.GripForce = num(7)
	r.SitAndBendForwardCm = num(8)
	r.SitUpsCounts = num(9)
	r.BroadJumpCm = num(10)
	r.Performance = cells[11]
	return r, err
}

// CanonicalGender maps the spellings found in exports ("M", "male", ...) to
// "Male" or "Female". Other values are returned unchanged.
func CanonicalGender(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return "Male"
	case "f", "female":
		return "Female"
	}
	return s
}
