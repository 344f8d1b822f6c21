package model

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestStateManager_Lifecycle(t *testing.T) {
	s := NewStateManager()
	if s.IsFitted() {
		t.Fatal("new StateManager should not be fitted")
	}

	s.MarkFitted(11, 240, 4)
	if !s.IsFitted() {
		t.Fatal("expected fitted after MarkFitted")
	}
	if f, n := s.Dimensions(); f != 11 || n != 240 {
		t.Errorf("Dimensions() = (%d, %d), want (11, 240)", f, n)
	}

	s.Reset()
	if s.IsFitted() || s.NClasses != 0 {
		t.Errorf("Reset left state behind: %+v", s)
	}
}

func TestStateManager_NilIsUnfitted(t *testing.T) {
	var s *StateManager
	if s.IsFitted() {
		t.Error("nil StateManager reported fitted")
	}
}

func TestStateManager_CheckInput(t *testing.T) {
	s := NewStateManager()
	X := mat.NewDense(2, 3, nil)

	var nf *errors.NotFittedError
	if err := s.CheckInput("Forest", "Predict", X); !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}

	s.MarkFitted(3, 10, 2)
	if err := s.CheckInput("Forest", "Predict", X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var de *errors.DimensionError
	if err := s.CheckInput("Forest", "Predict", mat.NewDense(2, 4, nil)); !errors.As(err, &de) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}

func TestStateManager_Gob(t *testing.T) {
	s := NewStateManager()
	s.MarkFitted(5, 50, 3)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		t.Fatal(err)
	}
	got := &StateManager{}
	if err := gob.NewDecoder(&buf).Decode(got); err != nil {
		t.Fatal(err)
	}
	if !got.IsFitted() || got.NFeatures != 5 || got.NClasses != 3 {
		t.Errorf("decoded %+v", got)
	}
}
