package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/interfaces"
)

// SettleState enumerates the settling state machine.
type SettleState string

const (
	StateUnsettled SettleState = "unsettled"
	StatePolling   SettleState = "polling"
	StateSettled   SettleState = "settled"
	StateTimedOut  SettleState = "timed_out"
)

// Predicate is one independently-checkable settle signal. Checks must be
// read-only and cheap; they run on every poll tick.
type Predicate struct {
	Name  string
	Check func(ctx context.Context) (bool, error)
}

// Condition is the conjunction of predicates that defines quiescence. A
// single proxy signal is not enough: the recurring failure mode this package
// guards against is a modal heading that disappears while its backdrop keeps
// intercepting clicks. Settled requires every predicate to hold on the same
// poll tick.
type Condition struct {
	Predicates []Predicate
}

// OverlayAbsent builds a predicate that holds when no element matching the
// selector is rendered.
func OverlayAbsent(driver interfaces.Driver, selector string) Predicate {
	return Predicate{
		Name: fmt.Sprintf("overlay_absent(%s)", selector),
		Check: func(ctx context.Context) (bool, error) {
			visible, err := driver.IsVisible(ctx, selector)
			if err != nil {
				return false, err
			}
			return !visible, nil
		},
	}
}

// ElementHidden builds a predicate that holds when the selector matches
// nothing visible.
func ElementHidden(driver interfaces.Driver, selector string) Predicate {
	return Predicate{
		Name: fmt.Sprintf("hidden(%s)", selector),
		Check: func(ctx context.Context) (bool, error) {
			visible, err := driver.IsVisible(ctx, selector)
			if err != nil {
				return false, err
			}
			return !visible, nil
		},
	}
}

// ElementInteractable builds a predicate that holds when the element can
// receive input again.
func ElementInteractable(driver interfaces.Driver, handle string) Predicate {
	return Predicate{
		Name: fmt.Sprintf("interactable(%s)", handle),
		Check: func(ctx context.Context) (bool, error) {
			return driver.IsInteractable(ctx, handle)
		},
	}
}

// Report records how a settle wait concluded: terminal state, elapsed time,
// poll count and the last observed value of every predicate.
type Report struct {
	State        SettleState
	Elapsed      time.Duration
	Polls        int
	LastObserved map[string]bool
}

// Settler waits for the UI to reach quiescence after an action. It is an
// explicit bounded poll loop, never a fixed sleep: each tick re-evaluates the
// whole conjunction, and the budget is enforced against wall time.
type Settler struct {
	interval time.Duration
	budget   time.Duration
	logger   arbor.ILogger
}

// NewSettler creates a settler with the given poll interval and budget.
func NewSettler(interval, budget time.Duration, logger arbor.ILogger) *Settler {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if budget <= 0 {
		budget = 10 * time.Second
	}
	return &Settler{interval: interval, budget: budget, logger: logger}
}

// Wait polls the condition until every predicate holds or the budget is
// exhausted. On timeout it returns a TimeoutError carrying the final state of
// each predicate, so the caller can name exactly which signal never settled.
func (s *Settler) Wait(ctx context.Context, cond Condition) (*Report, error) {
	report := &Report{
		State:        StateUnsettled,
		LastObserved: make(map[string]bool, len(cond.Predicates)),
	}
	if len(cond.Predicates) == 0 {
		report.State = StateSettled
		return report, nil
	}

	start := time.Now()
	deadline := start.Add(s.budget)
	report.State = StatePolling

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		report.Polls++
		settled := true
		for _, p := range cond.Predicates {
			ok, err := p.Check(ctx)
			if err != nil {
				report.Elapsed = time.Since(start)
				return report, fmt.Errorf("settle predicate %s: %w", p.Name, err)
			}
			report.LastObserved[p.Name] = ok
			if !ok {
				settled = false
			}
		}

		if settled {
			report.State = StateSettled
			report.Elapsed = time.Since(start)
			s.logger.Debug().
				Int("polls", report.Polls).
				Str("elapsed", report.Elapsed.Round(time.Millisecond).String()).
				Msg("UI settled")
			return report, nil
		}

		if time.Now().After(deadline) {
			report.State = StateTimedOut
			report.Elapsed = time.Since(start)
			timeoutErr := &TimeoutError{
				Budget:       s.budget,
				Elapsed:      report.Elapsed,
				Polls:        report.Polls,
				LastObserved: report.LastObserved,
			}
			s.logger.Warn().
				Int("polls", report.Polls).
				Strs("unsettled", timeoutErr.Unsettled()).
				Msg("Settle budget exhausted")
			return report, timeoutErr
		}

		select {
		case <-ctx.Done():
			report.Elapsed = time.Since(start)
			return report, ctx.Err()
		case <-ticker.C:
		}
	}
}
