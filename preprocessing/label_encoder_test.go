package preprocessing

import (
	"reflect"
	"testing"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

func TestLabelEncoder_Gender(t *testing.T) {
	enc := NewLabelEncoder()
	codes, err := enc.FitTransform([]string{"M", "F", "F", "M"})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(enc.Classes(), []string{"F", "M"}) {
		t.Errorf("Classes() = %v", enc.Classes())
	}
	if !reflect.DeepEqual(codes, []int{1, 0, 0, 1}) {
		t.Errorf("codes = %v", codes)
	}

	back, err := enc.InverseTransform(codes)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, []string{"M", "F", "F", "M"}) {
		t.Errorf("round trip = %v", back)
	}
}

func TestLabelEncoder_MaleFemaleOrder(t *testing.T) {
	enc := NewLabelEncoder()
	if err := enc.Fit([]string{"Male", "Female"}); err != nil {
		t.Fatal(err)
	}
	codes, err := enc.Transform([]string{"Male", "Female"})
	if err != nil {
		t.Fatal(err)
	}
	if codes[0] != 1 || codes[1] != 0 {
		t.Errorf("Male/Female = %v, want [1 0]", codes)
	}
}

func TestLabelEncoder_Errors(t *testing.T) {
	enc := NewLabelEncoder()
	if _, err := enc.Transform([]string{"A"}); err == nil {
		t.Error("expected error before Fit")
	}
	if err := enc.Fit(nil); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("Fit(nil) = %v, want ErrEmptyData", err)
	}

	if err := enc.Fit([]string{"A", "B", "C", "D"}); err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Transform([]string{"E"}); !errors.Is(err, errors.ErrUnknownLabel) {
		t.Errorf("Transform(E) = %v, want ErrUnknownLabel", err)
	}
	if _, err := enc.InverseTransform([]int{4}); err == nil {
		t.Error("expected out-of-range error")
	}
}
