package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/ternarybob/verity/internal/app"
	"github.com/ternarybob/verity/internal/common"
)

// watchCommand runs the scenario suite on the configured cron schedule until
// interrupted. Overlapping runs are skipped, not queued.
func watchCommand() {
	if err := common.ValidateWatchSchedule(config.Watch.Schedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", config.Watch.Schedule).Msg("Invalid watch schedule")
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	running := make(chan struct{}, 1)

	c := cron.New()
	_, err = c.AddFunc(config.Watch.Schedule, func() {
		select {
		case running <- struct{}{}:
		default:
			logger.Warn().Msg("Previous run still in progress, skipping this tick")
			return
		}
		defer func() { <-running }()

		if _, err := application.RunService.RunAll(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule watch job")
	}

	c.Start()
	logger.Info().
		Str("schedule", config.Watch.Schedule).
		Msg("Watch mode started - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, stopping watch")
	<-c.Stop().Done()
}
