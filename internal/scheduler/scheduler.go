// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a scheduler using UTC for all schedules.
func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithLocation(time.UTC))}
}

// AddJob registers a named job on a cron spec. Job errors are logged, not
// propagated; a failed run does not stop the schedule.
func (s *Scheduler) AddJob(spec, name string, job func() error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		slog.Debug("scheduled job done", "job", name)
	})
	return err
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
