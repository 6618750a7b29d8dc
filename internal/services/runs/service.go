package runs

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/browser"
	"github.com/ternarybob/verity/internal/common"
	"github.com/ternarybob/verity/internal/interfaces"
	"github.com/ternarybob/verity/internal/report"
	"github.com/ternarybob/verity/internal/scenario"
	"github.com/ternarybob/verity/internal/storage/badger"
	"github.com/ternarybob/verity/internal/verify"
	"github.com/ternarybob/verity/pkg/models"
)

// Service executes scenarios end to end: allocate a browser, navigate,
// perform each verified action in order, persist the run record and write
// the evidence report. A step that fails stops the run; the UI is in an
// unknown state after a failed action and later verdicts would be noise.
type Service struct {
	pool    *browser.Pool
	config  *common.Config
	events  interfaces.EventService
	store   *badger.RunStorage
	reports *report.Writer
	logger  arbor.ILogger
}

// NewService creates a run service.
func NewService(pool *browser.Pool, config *common.Config, events interfaces.EventService, store *badger.RunStorage, reports *report.Writer, logger arbor.ILogger) *Service {
	return &Service{
		pool:    pool,
		config:  config,
		events:  events,
		store:   store,
		reports: reports,
		logger:  logger,
	}
}

// RunAll loads every scenario from the configured directory and runs them in
// order. The returned records cover every scenario attempted; the error is
// the first load or infrastructure failure.
func (s *Service) RunAll(ctx context.Context) ([]*models.RunRecord, error) {
	scenarios, err := scenario.LoadDir(s.config.Scenarios.Dir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.RunRecord, 0, len(scenarios))
	for _, sc := range scenarios {
		record, err := s.RunScenario(ctx, sc)
		if record != nil {
			records = append(records, record)
		}
		if err != nil && record == nil {
			return records, err
		}
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
	}
	return records, nil
}

// RunScenario executes one scenario and persists its record. A non-nil
// record is returned even when the run fails; the error reflects the first
// step failure or infrastructure problem.
func (s *Service) RunScenario(ctx context.Context, sc *scenario.Scenario) (*models.RunRecord, error) {
	run := &models.RunRecord{
		ID:          common.NewRunID(),
		Scenario:    sc.Name,
		Description: sc.Description,
		BaseURL:     sc.BaseURL,
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now(),
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("scenario", sc.Name).
		Str("url", sc.BaseURL).
		Msg("Starting scenario run")

	s.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventRunStarted,
		RunID: run.ID,
		Payload: map[string]interface{}{
			"scenario": sc.Name,
			"url":      sc.BaseURL,
		},
	})

	runErr := s.execute(ctx, sc, run)

	run.CompletedAt = time.Now()
	run.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()

	if s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run record")
		}
	}

	s.events.PublishSync(ctx, interfaces.Event{
		Type:  interfaces.EventRunCompleted,
		RunID: run.ID,
		Payload: map[string]interface{}{
			"scenario": sc.Name,
			"status":   string(run.Status),
			"failed":   run.FailedSteps(),
		},
	})

	s.logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("steps", len(run.Steps)).
		Msg("Scenario run finished")

	return run, runErr
}

// execute performs the scenario steps and fills in the run record. The
// returned error is the first terminal failure.
func (s *Service) execute(ctx context.Context, sc *scenario.Scenario, run *models.RunRecord) error {
	browserCtx, release, err := s.pool.Get()
	if err != nil {
		run.Status = models.RunStatusError
		run.Error = err.Error()
		return err
	}
	defer release()

	driver := browser.NewDriver(browserCtx, s.config.Browser, s.logger)

	if err := driver.Navigate(ctx, sc.BaseURL); err != nil {
		run.Status = models.RunStatusError
		run.Error = err.Error()
		return err
	}

	rules := sc.CaptureRules()
	actions := sc.Actions(driver)

	runner := verify.NewRunner(driver, rules, verify.RunnerOptions{
		ResolveAttempts:  s.config.Runner.ResolveAttempts,
		ResolveInterval:  common.Duration(s.config.Runner.ResolveInterval, 500*time.Millisecond),
		SettleInterval:   common.Duration(s.config.Runner.SettleInterval, 250*time.Millisecond),
		SettleBudget:     common.Duration(s.config.Runner.SettleBudget, 15*time.Second),
		ActionsPerSecond: s.config.Runner.ActionsPerSecond,
	}, s.logger)

	evidence := make(map[string]*verify.ActionReport)

	for _, action := range actions {
		s.events.Publish(ctx, interfaces.Event{
			Type:  interfaces.EventStepStarted,
			RunID: run.ID,
			Payload: map[string]interface{}{
				"step":   action.Name,
				"target": action.Target.String(),
			},
		})

		actionReport, stepErr := runner.Do(ctx, action)
		step := buildStepRecord(action, actionReport, stepErr)
		run.Steps = append(run.Steps, step)
		if actionReport != nil {
			evidence[action.Name] = actionReport
		}

		s.events.Publish(ctx, interfaces.Event{
			Type:  interfaces.EventStepCompleted,
			RunID: run.ID,
			Payload: map[string]interface{}{
				"step":    step.Name,
				"passed":  step.Passed,
				"outcome": step.Outcome,
			},
		})

		if stepErr != nil {
			run.Status = statusForOutcome(step.Outcome)
			run.Error = stepErr.Error()
			s.writeReport(run, evidence)
			return stepErr
		}
	}

	run.Status = models.RunStatusPassed
	s.writeReport(run, evidence)
	return nil
}

func (s *Service) writeReport(run *models.RunRecord, evidence map[string]*verify.ActionReport) {
	if s.reports == nil {
		return
	}
	path, err := s.reports.Write(run, evidence)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to write run report")
		return
	}
	run.ReportPath = path
}

// buildStepRecord maps a runner report and error into the persisted form.
func buildStepRecord(action verify.VerifiedAction, rep *verify.ActionReport, err error) models.StepRecord {
	step := models.StepRecord{
		Name:    action.Name,
		Target:  action.Target.String(),
		Intent:  string(action.Intent.Kind),
		Passed:  err == nil,
		Outcome: outcomeForError(err),
	}
	if err != nil {
		step.Error = err.Error()
	}
	if rep == nil {
		return step
	}

	step.DurationMS = rep.Duration.Milliseconds()
	if rep.Settle != nil {
		step.SettleState = string(rep.Settle.State)
		step.SettlePolls = rep.Settle.Polls
		step.SettleElapsed = rep.Settle.Elapsed.Milliseconds()
	}

	var timeout *verify.TimeoutError
	if errors.As(err, &timeout) {
		step.Unsettled = timeout.Unsettled()
	}

	for _, r := range rep.Results {
		step.Expectations = append(step.Expectations, models.ExpectationRecord{
			Kind:       string(r.Kind),
			Target:     r.Target,
			Passed:     r.Passed,
			Observed:   r.Observed,
			Expected:   r.Expected,
			Diagnostic: r.Diagnostic,
		})
	}
	return step
}

// outcomeForError maps the error taxonomy to a stable outcome label.
func outcomeForError(err error) string {
	if err == nil {
		return "passed"
	}

	var notFound *verify.NotFoundError
	var ambiguous *verify.AmbiguousMatchError
	var notInteractable *verify.NotInteractableError
	var timeout *verify.TimeoutError
	var failed *verify.VerificationFailedError

	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &ambiguous):
		return "ambiguous_match"
	case errors.As(err, &notInteractable):
		return "not_interactable"
	case errors.As(err, &timeout):
		return "timed_out"
	case errors.As(err, &failed):
		return "verification_failed"
	default:
		return "error"
	}
}

// statusForOutcome distinguishes a failed verdict from an infrastructure
// error: both stop the run, but only the former is evidence about the app.
func statusForOutcome(outcome string) models.RunStatus {
	switch outcome {
	case "verification_failed", "timed_out", "not_found", "ambiguous_match", "not_interactable":
		return models.RunStatusFailed
	default:
		return models.RunStatusError
	}
}
