package main

import (
	"context"
	"os"

	"github.com/ternarybob/verity/internal/app"
	"github.com/ternarybob/verity/internal/scenario"
	"github.com/ternarybob/verity/pkg/models"
)

// runCommand executes scenarios once and exits with a verdict code: 0 when
// every run passed, 1 otherwise.
func runCommand() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	ctx := application.Context()

	var records []*models.RunRecord
	if *scenarioName != "" {
		record, runErr := runSingle(ctx, application, *scenarioName)
		if record == nil {
			logger.Fatal().Err(runErr).Str("scenario", *scenarioName).Msg("Scenario run failed to start")
		}
		records = append(records, record)
	} else {
		var runErr error
		records, runErr = application.RunService.RunAll(ctx)
		if runErr != nil && len(records) == 0 {
			logger.Fatal().Err(runErr).Msg("Scenario runs failed to start")
		}
	}

	failed := 0
	for _, record := range records {
		event := logger.Info()
		if record.Status != models.RunStatusPassed {
			failed++
			event = logger.Warn()
		}
		event.
			Str("run_id", record.ID).
			Str("scenario", record.Scenario).
			Str("status", string(record.Status)).
			Str("report", record.ReportPath).
			Msg("Run verdict")
	}

	logger.Info().
		Int("total", len(records)).
		Int("failed", failed).
		Msg("Run complete")

	if failed > 0 {
		application.Close()
		os.Exit(1)
	}
}

// runSingle runs one named scenario from the configured directory.
func runSingle(ctx context.Context, application *app.App, name string) (*models.RunRecord, error) {
	scenarios, err := scenario.LoadDir(config.Scenarios.Dir)
	if err != nil {
		return nil, err
	}

	for _, sc := range scenarios {
		if sc.Name == name {
			return application.RunService.RunScenario(ctx, sc)
		}
	}

	logger.Fatal().Str("scenario", name).Str("dir", config.Scenarios.Dir).Msg("Scenario not found")
	return nil, nil
}
