package dataset

import (
	"encoding/csv"
	"math/rand"
	"os"
	"strconv"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// RawHeader is the header of the published Body_Performance.csv.
var RawHeader = []string{
	"age", "gender", "height_cm", "weight_kg", "body fat_%", "diastolic", "systolic",
	"gripForce", "sit and bend forward_cm", "sit-ups counts", "broad jump_cm", "class",
}

// Synthetic generates n plausible rows in RawHeader order. The class is
// derived from a fitness score with noise, so that the label is learnable.
// Rows are deterministic for a given seed. Used by tests and demos.
func Synthetic(n int, seed int64) [][]string {
	rng := rand.New(rand.NewSource(seed))
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

	rows := make([][]string, n)
	for i := range rows {
		male := rng.Intn(2) == 0
		age := float64(21 + rng.Intn(44))
		gender, height, grip, jump := "F", 160+rng.NormFloat64()*6, 26+rng.NormFloat64()*5, 150+rng.NormFloat64()*20
		if male {
			gender, height, grip, jump = "M", 174+rng.NormFloat64()*6, 43+rng.NormFloat64()*7, 215+rng.NormFloat64()*25
		}
		weight := 0.9*(height-100) + rng.NormFloat64()*8
		bodyFat := 18 + rng.NormFloat64()*5
		if !male {
			bodyFat += 8
		}
		diastolic := 78 + rng.NormFloat64()*10
		systolic := 130 + rng.NormFloat64()*14
		sitBend := 15 + rng.NormFloat64()*8
		sitUps := float64(max(0, int(60-0.6*age+rng.NormFloat64()*8)))

		score := sitUps/10 + sitBend/8 - bodyFat/10 + rng.NormFloat64()*0.7
		class := "D"
		switch {
		case score > 5:
			class = "A"
		case score > 3.5:
			class = "B"
		case score > 2:
			class = "C"
		}

		rows[i] = []string{
			f(age), gender, f(height), f(weight), f(bodyFat), f(diastolic), f(systolic),
			f(grip), f(sitBend), f(sitUps), f(jump), class,
		}
	}
	return rows
}

// WriteCSV writes header and rows to path. With withIndex the file gets a
// leading pandas-style index column.
func WriteCSV(path string, header []string, rows [][]string, withIndex bool) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if withIndex {
		header = append([]string{""}, header...)
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, row := range rows {
		if withIndex {
			row = append([]string{strconv.Itoa(i)}, row...)
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	w.Flush()
	return w.Error()
}
