package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary is one column of DataFrame.describe(): count, mean, sample
// standard deviation, min, quartiles and max over the non-missing values.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Q50    float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// Describe summarizes every numeric column of t.
func Describe(t *Table) []Summary {
	cols := t.NumericColumns()
	out := make([]Summary, 0, len(cols))
	for _, c := range cols {
		out = append(out, describeColumn(c.Name, c.Values))
	}
	return out
}

func describeColumn(name string, values []float64) Summary {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	s := Summary{Column: name, Count: len(x)}
	if len(x) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sort.Float64s(x)
	s.Mean = stat.Mean(x, nil)
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	} else {
		s.Std = math.NaN()
	}
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Q25 = quantileLinear(x, 0.25)
	s.Q50 = quantileLinear(x, 0.50)
	s.Q75 = quantileLinear(x, 0.75)
	return s
}

// quantileLinear is numpy's default "linear" quantile on sorted x:
// position (n-1)p, interpolated between neighbours.
func quantileLinear(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// CorrMatrix is the Pearson correlation matrix of the numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  *mat.SymDense
}

// Rows returns the matrix as nested slices for JSON output.
func (c *CorrMatrix) Rows() [][]float64 {
	n := len(c.Columns)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = c.Values.At(i, j)
		}
	}
	return out
}

// Correlation computes pairwise Pearson correlations over the rows where
// both columns are present, like DataFrame.corr(numeric_only=True).
// A constant column correlates as NaN.
func Correlation(t *Table) *CorrMatrix {
	cols := t.NumericColumns()
	n := len(cols)
	names := make([]string, n)
	for i, c := range cols {
		names[i] = c.Name
	}

	sym := mat.NewSymDense(max(n, 1), nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y := pairwiseComplete(cols[i].Values, cols[j].Values)
			r := math.NaN()
			if len(x) > 1 {
				r = stat.Correlation(x, y, nil)
			}
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			sym.SetSym(i, j, r)
		}
	}
	return &CorrMatrix{Columns: names, Values: sym}
}

func pairwiseComplete(a, b []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}
