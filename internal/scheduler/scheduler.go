package scheduler

import (
	"context"
	"fmt"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/collector"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs collection passes on a cron schedule, for environments
// without an external cron. Each pass is independent and carries no state
// into the next; a tick that fires while the previous pass is still running
// is skipped rather than queued.
type Scheduler struct {
	schedule string
	coll     *collector.Collector
	cron     *cron.Cron
}

// New creates a scheduler that runs the collector on the given cron expression
func New(schedule string, coll *collector.Collector) *Scheduler {
	cronLogger := cron.PrintfLogger(&log.Logger)
	return &Scheduler{
		schedule: schedule,
		coll:     coll,
		cron: cron.New(
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start registers the collection job and blocks until the context ends.
// A failed pass is logged and the schedule keeps going; fatal conditions
// only terminate the process in run-once mode.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.coll.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled collection run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule collection: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.schedule).
		Msg("Collection schedule started")

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop stops the cron scheduler and waits for a running pass to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Info().Msg("Scheduler stopped")
}
