// Package scheduler triggers pipeline runs on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a job function periodically until stopped.
type Scheduler struct {
	interval   time.Duration
	runAtStart bool
	logger     *zap.Logger
	stop       chan struct{}
}

// New creates a Scheduler. When runAtStart is set the job fires once
// immediately on Start.
func New(interval time.Duration, runAtStart bool, logger *zap.Logger) *Scheduler {
	return &Scheduler{interval: interval, runAtStart: runAtStart, logger: logger}
}

// Start begins ticking in a background goroutine. Overlapping runs are
// prevented by running the job inline in the ticker goroutine.
func (s *Scheduler) Start(ctx context.Context, job func(context.Context)) {
	if job == nil || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if s.runAtStart {
			job(ctx)
		}
		for {
			select {
			case <-ticker.C:
				s.logger.Debug("scheduled run starting", zap.Duration("interval", s.interval))
				job(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine. Safe to call once.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
