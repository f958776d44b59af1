// Package scheduler runs the timezone-aware background jobs: the nightly
// streak inactivity sweep and the daily digest email.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/observability"
	"github.com/promptpal/promptpal-api/internal/service"
)

// Config holds the cron expressions, evaluated in the server timezone.
type Config struct {
	// DigestCron fires the daily digest email sweep.
	DigestCron string
	// StreakSweepCron fires the streak inactivity reset. Runs shortly after
	// local midnight so yesterday's completions still count.
	StreakSweepCron string
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New builds the scheduler and registers both jobs.
func New(cfg Config, streaks service.StreakService, digest service.DigestService, location *time.Location, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.StreakSweepCron == "" {
		cfg.StreakSweepCron = "5 0 * * *"
	}
	if cfg.DigestCron == "" {
		cfg.DigestCron = "20 10 * * *"
	}

	componentLogger := logger.With().Str("component", "scheduler").Logger()
	runner := cron.New(cron.WithLocation(location))

	_, err := runner.AddFunc(cfg.StreakSweepCron, func() {
		resets, err := streaks.ResetInactiveStreaks(context.Background())
		if err != nil {
			componentLogger.Error().Err(err).Msg("streak inactivity sweep failed")
			return
		}
		observability.StreakResets().Add(float64(resets))
	})
	if err != nil {
		return nil, err
	}

	_, err = runner.AddFunc(cfg.DigestCron, func() {
		sent, failed, err := digest.SendDailyDigest(context.Background())
		if err != nil {
			componentLogger.Error().Err(err).Msg("daily digest failed")
			return
		}
		observability.DigestSends().WithLabelValues("sent").Add(float64(sent))
		observability.DigestSends().WithLabelValues("failed").Add(float64(failed))
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: runner, logger: componentLogger}, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("background jobs scheduled")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("background jobs stopped")
}
