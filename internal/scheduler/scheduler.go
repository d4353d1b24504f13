// Package scheduler runs the recurring jobs (rule runs, protection
// recompute, queue sweep, retention prune) on their configured cadences.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one recurring unit of work. Errors are logged, never fatal; the
// next firing runs regardless.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler binds jobs to cron entries and fires them until stopped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Jobs are added with Add before Start.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.With("component", "scheduler"),
	}
}

// Add registers a job on its cadence.
func (s *Scheduler) Add(job Job) error {
	_, err := s.cron.AddFunc(job.Schedule.CronSpec(), func() {
		s.logger.Debug("job firing", "job", job.Name)
		if err := job.Run(s.ctx); err != nil {
			s.logger.Error("job failed", "job", job.Name, "error", err)
		}
	})
	return err
}

// Start begins firing jobs and blocks until ctx is cancelled, then waits
// for any running job entries to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	<-ctx.Done()
	s.cancel()
	stopped := s.cron.Stop()
	<-stopped.Done()
	return ctx.Err()
}
