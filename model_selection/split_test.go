package model_selection

import (
	"reflect"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func makeData(n int) (*mat.Dense, []string) {
	X := mat.NewDense(n, 2, nil)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*10))
		y[i] = string(rune('A' + i%4))
	}
	return X, y
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	X, y := makeData(101)

	split, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}

	// ceil(0.2*101) = 21
	if r, _ := split.XTest.Dims(); r != 21 {
		t.Errorf("test rows = %d, want 21", r)
	}
	if r, _ := split.XTrain.Dims(); r != 80 {
		t.Errorf("train rows = %d, want 80", r)
	}
	if len(split.YTrain) != 80 || len(split.YTest) != 21 {
		t.Errorf("label sizes = %d/%d", len(split.YTrain), len(split.YTest))
	}
}

func TestTrainTestSplit_PartitionIsDisjointAndComplete(t *testing.T) {
	X, y := makeData(50)
	split, err := TrainTestSplit(X, y, 0.2, 7)
	if err != nil {
		t.Fatal(err)
	}

	all := append(append([]int(nil), split.TrainIndex...), split.TestIndex...)
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("index %d missing or duplicated", i)
		}
	}

	// rows follow their labels
	for i, r := range split.TestIndex {
		if split.XTest.At(i, 0) != float64(r) || split.YTest[i] != y[r] {
			t.Errorf("test row %d does not match source row %d", i, r)
		}
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := makeData(200)

	a, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.TestIndex, b.TestIndex) || !reflect.DeepEqual(a.TrainIndex, b.TrainIndex) {
		t.Error("same seed should produce the same split")
	}

	c, err := TrainTestSplit(X, y, 0.2, 43)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a.TestIndex, c.TestIndex) {
		t.Error("different seeds should produce different splits")
	}
}

func TestTrainTestSplit_Errors(t *testing.T) {
	X, y := makeData(10)

	if _, err := TrainTestSplit(X, y[:9], 0.2, 1); err == nil {
		t.Error("expected dimension error")
	}
	for _, size := range []float64{0, 1, -0.1, 1.5} {
		if _, err := TrainTestSplit(X, y, size, 1); err == nil {
			t.Errorf("expected error for test_size=%v", size)
		}
	}
	if _, _, err := ShuffleSplitIndices(1, 0.2, 1); err == nil {
		t.Error("expected error for a single sample")
	}
}
