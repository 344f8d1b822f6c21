// Package model provides state management for machine learning models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StateManager records what a classifier saw while fitting. Models that are
// served concurrently (the forest and its trees) hold one by composition
// instead of embedding BaseEstimator.
//
// Fields are exported for gob; mutate them only through the methods.
type StateManager struct {
	mu sync.RWMutex

	Fitted    bool
	NFeatures int
	NSamples  int
	NClasses  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether MarkFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// MarkFitted stores the training shape and flags the model as fitted.
func (s *StateManager) MarkFitted(nFeatures, nSamples, nClasses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
	s.NClasses = nClasses
	s.Fitted = true
}

// Reset returns to the unfitted state. Fit calls it first so that a failed
// refit never leaves stale values behind.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
	s.NClasses = 0
}

// Dimensions returns the number of features and samples seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// CheckInput verifies that the model is fitted and that X has as many
// columns as the training matrix. model and method only label the error.
func (s *StateManager) CheckInput(model, method string, X mat.Matrix) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(model, method)
	}
	_, c := X.Dims()
	nFeatures, _ := s.Dimensions()
	if c != nFeatures {
		return errors.NewDimensionError(model+"."+method, nFeatures, c, 1)
	}
	return nil
}
