package internal

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RefreshSchedule returns the cron spec for a refresh every intervalHours.
func RefreshSchedule(intervalHours int) string {
	return fmt.Sprintf("@every %dh", intervalHours)
}

// StartCron runs a first refresh cycle in the background and schedules the next ones.
func StartCron(ctx context.Context, coordinator *Coordinator, intervalHours int, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	logger = logger.With().Str("component", "cron").Logger()

	refresh := func() {
		if err := coordinator.Refresh(ctx); err != nil {
			logger.Error().Err(err).Msg("error refreshing stations")
		}
	}

	schedule := RefreshSchedule(intervalHours)
	if _, err := c.AddFunc(schedule, refresh); err != nil {
		return nil, err
	}

	logger.Info().Str("schedule", schedule).Msg("starting CRON job to refresh stations and fuel prices")
	go refresh()

	c.Start()
	return c, nil
}
