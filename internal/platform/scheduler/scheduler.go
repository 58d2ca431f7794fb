// Package scheduler runs the daily medication sync and cache sweep as
// in-process cron jobs. Disabled by default: deployments with an external
// scheduler trigger the same work through the HTTP endpoints instead.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// SyncJob runs one full frequently-used sync pass.
type SyncJob func(ctx context.Context) error

// SweepJob runs one retention sweep pass.
type SweepJob func(ctx context.Context)

// Scheduler wraps gocron with the two maintenance jobs this service owns.
type Scheduler struct {
	cron   *gocron.Scheduler
	logger zerolog.Logger
}

// New creates a scheduler in the host's local timezone.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.Local),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the sync and sweep at the given times of day
// (semicolon-separated "HH:MM" list, e.g. "03:00;15:00") and starts the
// scheduler in the background. The sweep runs after the sync on the same
// schedule so freshly synced rows are never the sweep's victims.
func (s *Scheduler) Start(times string, sync SyncJob, sweep SweepJob) error {
	_, err := s.cron.Every(1).Days().At(times).Do(func() {
		ctx := context.Background()

		s.logger.Info().Msg("scheduled sync starting")
		if err := sync(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled sync failed")
		}

		s.logger.Info().Msg("scheduled cache sweep starting")
		sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling maintenance jobs: %w", err)
	}

	s.cron.StartAsync()
	s.logger.Info().Str("times", times).Msg("scheduler started")
	return nil
}

// Stop halts the scheduler. Jobs already running finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
}
