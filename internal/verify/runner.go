package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/verity/internal/interfaces"
)

// VerifiedAction is one self-contained unit of work: an intent against a
// target, the settle condition that defines quiescence afterwards, and the
// expectations the resulting state change must satisfy.
type VerifiedAction struct {
	Name   string
	Target ElementReference
	Intent Intent
	Settle Condition
	Expect []Expectation
}

// ActionReport is the full evidence trail for one verified action.
type ActionReport struct {
	Name     string
	Before   *Snapshot
	After    *Snapshot
	Settle   *Report
	Results  []Result
	Passed   bool
	Duration time.Duration
}

// Runner executes verified actions with strict ordering: before-snapshot,
// action, settle, after-snapshot, verify. Evaluating the after state before
// the UI has settled is the root-cause bug class this ordering forbids, so
// on a settle timeout the verifier is never invoked.
type Runner struct {
	driver   interfaces.Driver
	resolver *Resolver
	executor *Executor
	settler  *Settler
	limiter  *rate.Limiter
	rules    []CaptureRule
	logger   arbor.ILogger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	ResolveAttempts int
	ResolveInterval time.Duration
	SettleInterval  time.Duration
	SettleBudget    time.Duration

	// ActionsPerSecond throttles actions against the target application.
	// The backend under test is shared mutable state outside this design's
	// control; pacing is the one lever this side owns. Zero disables.
	ActionsPerSecond float64
}

// NewRunner creates a runner over the driver with the given capture rules.
// The rules define everything the before/after snapshots record.
func NewRunner(driver interfaces.Driver, rules []CaptureRule, opts RunnerOptions, logger arbor.ILogger) *Runner {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.ActionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ActionsPerSecond), 1)
	}
	return &Runner{
		driver:   driver,
		resolver: NewResolver(driver, opts.ResolveAttempts, opts.ResolveInterval),
		executor: NewExecutor(driver),
		settler:  NewSettler(opts.SettleInterval, opts.SettleBudget, logger),
		limiter:  limiter,
		rules:    rules,
		logger:   logger,
	}
}

// Resolver exposes the runner's resolver for callers that need to probe
// presence without performing an action.
func (r *Runner) Resolver() *Resolver {
	return r.resolver
}

// Do executes one verified action. The returned report always carries the
// before snapshot and whatever else was produced before a failure; errors
// from the taxonomy (NotFound, AmbiguousMatch, NotInteractable, TimedOut)
// are terminal for the action and returned alongside the partial report.
func (r *Runner) Do(ctx context.Context, action VerifiedAction) (*ActionReport, error) {
	start := time.Now()
	report := &ActionReport{Name: action.Name}

	r.logger.Info().
		Str("action", action.Name).
		Str("intent", string(action.Intent.Kind)).
		Str("target", action.Target.String()).
		Msg("Starting verified action")

	before, err := Capture(ctx, r.driver, r.rules)
	if err != nil {
		return report, fmt.Errorf("before snapshot: %w", err)
	}
	report.Before = before

	handle, err := r.resolver.Resolve(ctx, action.Target)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	if err := r.executor.Perform(ctx, handle, action.Intent); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	settleReport, err := r.settler.Wait(ctx, action.Settle)
	report.Settle = settleReport
	if err != nil {
		// Fail fast on timeout: verifying against an unsettled snapshot
		// produces exactly the flaky false verdicts this runner exists
		// to prevent.
		report.Duration = time.Since(start)
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			r.logger.Warn().
				Str("action", action.Name).
				Strs("unsettled", timeout.Unsettled()).
				Msg("Verified action timed out before verification")
		}
		return report, err
	}

	after, err := Capture(ctx, r.driver, r.rules)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("after snapshot: %w", err)
	}
	report.After = after

	report.Results = CompareAll(before, after, action.Expect)
	report.Passed = AllPassed(report.Results)
	report.Duration = time.Since(start)

	if report.Passed {
		r.logger.Info().
			Str("action", action.Name).
			Int("expectations", len(report.Results)).
			Str("duration", report.Duration.Round(time.Millisecond).String()).
			Msg("Verified action passed")
		return report, nil
	}

	failed := &VerificationFailedError{Action: action.Name, Results: report.Results}
	r.logger.Warn().
		Str("action", action.Name).
		Err(failed).
		Msg("Verified action failed")
	return report, failed
}
