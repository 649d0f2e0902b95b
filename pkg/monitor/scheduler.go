package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs a cycle on a fixed interval. A tick that arrives while
// the previous cycle is still running is skipped.
type Scheduler struct {
	cycle    *Cycle
	interval time.Duration
	opts     CycleOptions
	logger   *slog.Logger

	running  atomic.Bool
	skipped  atomic.Int64
	inflight sync.WaitGroup
}

// NewScheduler creates a Scheduler running cycle every interval with opts.
func NewScheduler(cycle *Cycle, interval time.Duration, opts CycleOptions, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		opts:     opts,
		logger:   logger,
	}
}

// Start runs one cycle immediately and then one per tick until ctx is
// cancelled. It blocks until every cycle it started has returned; cycle
// failures are logged and do not stop it.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.RunOnce(ctx)
			}()
		}
	}
}

// RunOnce runs a single cycle unless one is already in flight. It
// reports whether the cycle ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("previous cycle still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	report, err := s.cycle.Run(ctx, s.opts)
	if err != nil {
		return true
	}
	s.logger.Info("scheduled cycle complete",
		"report_id", report.ID,
		"status", report.OverallStatus,
	)
	return true
}

// Skipped returns how many ticks were skipped because a cycle was running.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}
