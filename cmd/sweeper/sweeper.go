// Package main implements the sweep loop orchestration.
//
// The Sweeper walks the parameter sweep one point at a time:
//
//	build circuit → submit job → wait for shots → extract observables → store
//
// Each step is synchronous and blocking; the remote provider owns all
// queueing. The stored run record is updated after every completed point,
// so the status API serves the growing curve while the sweep runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/synqs/coldatom/cmd/sweeper/metrics"
	"github.com/synqs/coldatom/pkg/provider"
	"github.com/synqs/coldatom/pkg/storage"
	"github.com/synqs/coldatom/pkg/sweep"
)

// Sweeper evaluates one parameter sweep against one backend.
type Sweeper struct {
	run          string
	backend      *provider.Backend
	sequence     sweep.Sequence
	points       []float64
	shots        int
	pollInterval time.Duration
	jobTimeout   time.Duration
	store        storage.Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	run string,
	backend *provider.Backend,
	sequence sweep.Sequence,
	points []float64,
	shots int,
	pollInterval, jobTimeout time.Duration,
	store storage.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		run:          run,
		backend:      backend,
		sequence:     sequence,
		points:       points,
		shots:        shots,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		store:        store,
		logger:       logger,
		metrics:      m,
	}
}

// Run executes the sweep sequentially and returns the final record. On
// error the partial record stays in the store and is returned alongside
// the error.
func (s *Sweeper) Run(ctx context.Context) (storage.RunRecord, error) {
	record := storage.RunRecord{
		Run:         s.run,
		Backend:     s.backend.Name(),
		Sequence:    s.sequence.Name(),
		GeneratedAt: time.Now(),
		Shots:       s.shots,
		Points:      append([]float64(nil), s.points...),
		Series:      make(map[string][]float64),
		StdErr:      make(map[string][]float64),
	}

	s.logger.Info("starting sweep",
		"run", s.run,
		"backend", record.Backend,
		"sequence", record.Sequence,
		"points", len(s.points),
		"shots", s.shots,
	)

	if err := s.store.Put(ctx, record); err != nil {
		return record, fmt.Errorf("store initial record: %w", err)
	}

	start := time.Now()
	for i, value := range s.points {
		point, jobID, err := s.evaluate(ctx, value)
		if err != nil {
			return record, fmt.Errorf("sweep point %d (value %g): %w", i, value, err)
		}

		for key, v := range point.Values {
			record.Series[key] = append(record.Series[key], v)
			if s.metrics != nil {
				s.metrics.SetExpectation(key, v)
			}
		}
		for key, v := range point.StdErr {
			record.StdErr[key] = append(record.StdErr[key], v)
		}
		record.JobIDs = append(record.JobIDs, jobID)
		record.Completed = i + 1
		record.GeneratedAt = time.Now()

		if err := s.store.Put(ctx, record); err != nil {
			if s.metrics != nil {
				s.metrics.RecordError("store", "put_failed")
			}
			return record, fmt.Errorf("store record after point %d: %w", i, err)
		}

		if s.metrics != nil {
			s.metrics.SetProgress(record.Completed, len(s.points))
		}

		s.logger.Info("sweep point complete",
			"run", s.run,
			"point", i,
			"value", value,
			"job_id", jobID,
			"completed", record.Completed,
			"total", len(s.points),
		)
	}

	s.logger.Info("sweep complete",
		"run", s.run,
		"points", len(s.points),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return record, nil
}

// evaluate runs the sequence circuit for one sweep value and extracts the
// per-wire observables from the returned shots.
func (s *Sweeper) evaluate(ctx context.Context, value float64) (sweep.PointResult, string, error) {
	circ := s.sequence.Build(value)

	submitStart := time.Now()
	job, err := s.backend.Run(ctx, circ, s.shots)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("provider", "submit_failed")
		}
		return sweep.PointResult{}, "", fmt.Errorf("submit: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordSubmit(time.Since(submitStart).Seconds())
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	waitStart := time.Now()
	result, err := job.Wait(waitCtx, s.pollInterval)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("provider", "wait_failed")
			s.metrics.RecordJob("failed")
		}
		return sweep.PointResult{}, job.ID(), fmt.Errorf("wait for job %s: %w", job.ID(), err)
	}
	if s.metrics != nil {
		s.metrics.RecordWait(time.Since(waitStart).Seconds())
		s.metrics.RecordJob("done")
	}

	memory, err := result.Memory(0)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("result", "memory_missing")
		}
		return sweep.PointResult{}, job.ID(), fmt.Errorf("job %s: %w", job.ID(), err)
	}

	point, err := sweep.Extract(s.sequence, memory)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("result", "extract_failed")
		}
		return sweep.PointResult{}, job.ID(), fmt.Errorf("job %s: %w", job.ID(), err)
	}

	return point, job.ID(), nil
}
