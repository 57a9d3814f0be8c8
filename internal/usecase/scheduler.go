package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsDesk/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	runTimeout time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler returns a helper to start/stop recurring runs. A zero
// runTimeout leaves runs unbounded.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:     driver,
		pipeline:   pipeline,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start registers the pipeline with the driver. The driver and its runs outlive
// ctx so that Stop decides when an in-flight run gets cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	job := func(trigger time.Time) {
		runCtx := base
		if s.runTimeout > 0 {
			var cancelRun context.CancelFunc
			runCtx, cancelRun = context.WithTimeout(base, s.runTimeout)
			defer cancelRun()
		}

		s.logger.Info("run triggered", "trigger", trigger)
		job, err := s.pipeline.Run(runCtx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Info("previous run still in progress, trigger skipped")
		case err != nil:
			s.logger.Error("run failed", "job_id", job.JobID, "error", err)
		default:
			s.logger.Info("run finished", "job_id", job.JobID, "processed", job.ArticlesProcessed)
		}
	}

	return s.driver.Start(base, job)
}

// Stop halts future triggers and waits for the in-flight run. If ctx expires
// first the run is cancelled so its job is recorded as failed.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	err := s.driver.Stop(ctx)

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return err
}
