package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
)

// Session memoizes the loaded table and the trained artifacts. The first
// caller computes them; concurrent callers wait on the same mutex and then
// share the result. Values are recomputed only after Invalidate, or after
// Refresh sees a different file hash.
type Session struct {
	path   string
	opts   Options
	logger log.Logger

	mu        sync.Mutex
	hash      string
	table     *dataset.Table
	artifacts *Artifacts
}

// NewSession creates a session for the CSV at path.
func NewSession(path string, opts Options) *Session {
	return &Session{
		path:   path,
		opts:   opts,
		logger: log.GetLoggerWithName("session").With(log.DatasetPathKey, path),
	}
}

// Path returns the dataset path.
func (s *Session) Path() string {
	return s.path
}

// Options returns the training options.
func (s *Session) Options() Options {
	return s.opts
}

// Data returns the raw table, loading it on first use.
func (s *Session) Data(ctx context.Context) (*dataset.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLocked(ctx)
}

func (s *Session) dataLocked(ctx context.Context) (*dataset.Table, error) {
	if s.table != nil {
		s.logger.Debug("Dataset cache", log.CacheKey, log.CacheHit)
		return s.table, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := dataset.Load(s.path)
	if err != nil {
		return nil, err
	}
	hash := tbl.Hash
	rows, cols := tbl.Shape()
	s.logger.Info("Dataset loaded",
		log.CacheKey, log.CacheMiss,
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.DatasetHashKey, hash,
	)

	s.hash = hash
	s.table = tbl
	return tbl, nil
}

// Artifacts returns the trained artifacts, training on first use.
func (s *Session) Artifacts(ctx context.Context) (*Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.artifacts != nil {
		s.logger.Debug("Model cache", log.CacheKey, log.CacheHit, log.EstimatorIDKey, s.artifacts.ID)
		return s.artifacts, nil
	}

	tbl, err := s.dataLocked(ctx)
	if err != nil {
		return nil, err
	}
	frame, err := dataset.Clean(tbl)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var art *Artifacts
	err = errors.SafeExecute("Session.Artifacts", func() error {
		var trainErr error
		art, trainErr = Train(frame, s.opts)
		return trainErr
	})
	if err != nil {
		s.logger.Error("Training failed", err, log.PhaseKey, log.PhaseTraining)
		return nil, err
	}
	art.DatasetHash = s.hash

	s.logger.Info("Model cached",
		log.CacheKey, log.CacheMiss,
		log.EstimatorIDKey, art.ID,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	s.artifacts = art
	return art, nil
}

// Refresh rehashes the dataset and drops the cached values if the content
// changed since it was loaded. It reports whether anything was dropped.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	hash, err := dataset.FileHash(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil || hash == s.hash {
		return false, nil
	}
	s.logger.Info("Dataset changed, dropping cache",
		log.DatasetHashKey, hash,
		"previous_hash", s.hash,
	)
	s.invalidateLocked()
	return true, nil
}

// Invalidate drops the cached table and artifacts unconditionally.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Session) invalidateLocked() {
	s.table = nil
	s.artifacts = nil
	s.hash = ""
}
