// Package model_selection provides dataset splitting utilities.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split holds the two partitions produced by TrainTestSplit.
type Split struct {
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain []string
	YTest  []string

	// TrainIndex and TestIndex are row indices into the original X.
	TrainIndex []int
	TestIndex  []int
}

// ShuffleSplitIndices permutes 0..n-1 with a generator seeded by
// randomState and returns the first ceil(testSize*n) indices as the test
// partition and the rest as the train partition.
func ShuffleSplitIndices(n int, testSize float64, randomState int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, errors.NewValueError("ShuffleSplitIndices",
			fmt.Sprintf("need at least 2 samples, got %d", n))
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(randomState)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	return train, test, nil
}

// TrainTestSplit splits X and y into random train and test subsets.
// The same inputs and randomState always produce the same split.
func TrainTestSplit(X mat.Matrix, y []string, testSize float64, randomState int64) (*Split, error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, errors.NewDimensionError("TrainTestSplit", rows, len(y), 0)
	}

	trainIdx, testIdx, err := ShuffleSplitIndices(rows, testSize, randomState)
	if err != nil {
		return nil, err
	}

	return &Split{
		XTrain:     TakeRows(X, trainIdx),
		XTest:      TakeRows(X, testIdx),
		YTrain:     takeLabels(y, trainIdx),
		YTest:      takeLabels(y, testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}, nil
}

// TakeRows copies the given rows of X into a new dense matrix.
func TakeRows(X mat.Matrix, idx []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

func takeLabels(y []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
