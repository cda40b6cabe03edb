// Package scheduler runs named jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one periodic unit of work. Runs of the same job never overlap: the
// job's goroutine runs each tick to completion before waiting for the next.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs, one goroutine each.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler for jobs. Jobs with a non-positive interval are
// rejected.
func New(logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	for _, j := range jobs {
		if j.Interval <= 0 {
			return nil, fmt.Errorf("job %q: interval must be positive, got %s", j.Name, j.Interval)
		}
		if j.Run == nil {
			return nil, fmt.Errorf("job %q: missing run func", j.Name)
		}
	}
	return &Scheduler{jobs: jobs, logger: logger}, nil
}

// Start launches every job. Each runs once immediately, then on each tick
// of its interval, until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, j := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx, j)
		}()
	}
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	s.runOnce(ctx, j)

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	if err := j.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", j.Name, "err", err)
	}
}
