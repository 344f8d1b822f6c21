package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "bodyperf: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "bodyperf: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("StandardScaler.Transform", 11, 10, 1)

	want := "bodyperf: StandardScaler.Transform: dimension mismatch on axis 1 (features). Expected 11, got 10"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestClassifier", "Predict")

	want := "bodyperf: RandomForestClassifier: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("age", "must be between 0 and 100", 120)

	want := "bodyperf: validation failed for parameter 'age': must be between 0 and 100 (got: 120)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Fatal("Error should be castable to *ValidationError")
	}
	if valErr.ParamName != "age" {
		t.Errorf("ParamName = %q, want %q", valErr.ParamName, "age")
	}
}

func TestMissingDatasetError(t *testing.T) {
	err := Wrap(NewMissingDatasetError("Body_Performance.csv"), "load dataset")

	if !strings.Contains(err.Error(), "'Body_Performance.csv' not found") {
		t.Errorf("unexpected message: %v", err)
	}
	if !IsFatal(err) {
		t.Error("missing dataset should be fatal")
	}
	if IsFatal(NewSchemaError(12, 10, nil)) {
		t.Error("schema error should not be fatal")
	}
}

func TestSchemaError(t *testing.T) {
	err := NewSchemaError(12, 13, []string{"a", "b"})

	var schemaErr *SchemaError
	if !As(err, &schemaErr) {
		t.Fatal("Error should be castable to *SchemaError")
	}
	if schemaErr.Expected != 12 || schemaErr.Got != 13 {
		t.Errorf("got expected=%d got=%d", schemaErr.Expected, schemaErr.Got)
	}
}

func TestWarn_UsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	want := "'precision' is ill-defined and being set to 0.000000 due to no predicted samples."
	if got[0].Error() != want {
		t.Errorf("Error() = %q, want %q", got[0].Error(), want)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in StandardScaler.Fit")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in StandardScaler.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrUnknownLabel, "in %s: %q", "LabelEncoder.Transform", "Other")

	if !Is(wrapped, ErrUnknownLabel) {
		t.Error("Expected Is(wrapped, ErrUnknownLabel) to be true")
	}
	if !strings.Contains(wrapped.Error(), `in LabelEncoder.Transform: "Other"`) {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestCheckMatrix(t *testing.T) {
	clean := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("op", clean, 2, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dirty := mat.NewDense(2, 2, []float64{1, 2, math.NaN(), 4})
	err := CheckMatrix("op", dirty, 2, 2)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Row != 1 {
		t.Errorf("Row = %d, want 1", numErr.Row)
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(3, 4); got != 0.75 {
		t.Errorf("SafeDivide(3, 4) = %v, want 0.75", got)
	}
}
