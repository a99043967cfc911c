// Package reminders runs the periodic housekeeping sweep: flagging overdue
// assignments and purging expired sessions.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/classtrack/classtrack/internal/app/metrics"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/pkg/logger"
)

// DefaultSchedule runs the sweep every ten minutes.
const DefaultSchedule = "@every 10m"

// Sweeper is a lifecycle-managed cron job.
type Sweeper struct {
	assignments storage.AssignmentStore
	sessions    storage.SessionStore
	schedule    string
	runner      *cron.Cron
	log         *logger.Logger
}

// NewSweeper constructs a sweeper with the given cron schedule.
func NewSweeper(assignments storage.AssignmentStore, sessions storage.SessionStore, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("reminders")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{
		assignments: assignments,
		sessions:    sessions,
		schedule:    schedule,
		log:         log,
	}
}

// Name implements system.Service.
func (s *Sweeper) Name() string { return "reminders" }

// Start validates the schedule, runs one immediate sweep and begins the cron
// loop.
func (s *Sweeper) Start(ctx context.Context) error {
	runner := cron.New()
	if _, err := runner.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.schedule, err)
	}
	s.runner = runner

	s.Sweep(ctx)
	runner.Start()
	s.log.WithField("schedule", s.schedule).Info("reminder sweeper started")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}
	stopped := s.runner.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Sweep flags overdue assignments and purges expired sessions once.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	success := true

	flagged, err := s.assignments.MarkOverdue(ctx, now)
	if err != nil {
		success = false
		s.log.WithError(err).Warn("overdue sweep failed")
	} else if flagged > 0 {
		s.log.WithField("count", flagged).Info("assignments flagged overdue")
	}

	if s.sessions != nil {
		purged, err := s.sessions.PurgeExpiredSessions(ctx, now)
		if err != nil {
			success = false
			s.log.WithError(err).Warn("session purge failed")
		} else if purged > 0 {
			s.log.WithField("count", purged).Info("expired sessions purged")
		}
	}

	metrics.RecordSweep(success)
}
