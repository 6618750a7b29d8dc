package verify

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NotFoundError is returned when an ElementReference resolves to zero live
// elements after the resolver's retry budget. Callers that treat absence as
// valid state should use ResolveAll and handle the empty slice themselves.
type NotFoundError struct {
	Ref      ElementReference
	Attempts int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s (after %d attempts)", e.Ref, e.Attempts)
}

// AmbiguousMatchError is returned when an ElementReference resolves to more
// than one element and no disambiguating scope was supplied. This is always a
// caller bug: picking the first match is exactly the positional fragility
// this package exists to remove.
type AmbiguousMatchError struct {
	Ref     ElementReference
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match: %s resolved to %d elements, narrow the scope", e.Ref, e.Matches)
}

// NotInteractableError is returned when a resolved element exists in the DOM
// but cannot currently receive the action: disabled, zero-size, or covered by
// an overlay. Distinguished from NotFoundError so callers can tell "missing
// feature" from "blocked by overlay".
type NotInteractableError struct {
	Handle string
	Kind   IntentKind
}

func (e *NotInteractableError) Error() string {
	return fmt.Sprintf("element %s exists but cannot receive %s (disabled, zero-size, or covered)", e.Handle, e.Kind)
}

// TimeoutError is returned when the settle budget is exhausted before every
// predicate held. LastObserved records the final state of each predicate so
// the failure names exactly which signal never settled.
type TimeoutError struct {
	Budget       time.Duration
	Elapsed      time.Duration
	Polls        int
	LastObserved map[string]bool
}

func (e *TimeoutError) Error() string {
	names := make([]string, 0, len(e.LastObserved))
	for name := range e.LastObserved {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%t", name, e.LastObserved[name]))
	}
	return fmt.Sprintf("settle timed out after %v (budget %v, %d polls): %s",
		e.Elapsed.Round(time.Millisecond), e.Budget, e.Polls, strings.Join(parts, " "))
}

// Unsettled returns the names of predicates that were still false when the
// budget ran out.
func (e *TimeoutError) Unsettled() []string {
	var names []string
	for name, ok := range e.LastObserved {
		if !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// VerificationFailedError wraps the failed comparisons of a verified action.
// It always carries observed and expected values, never a bare boolean.
type VerificationFailedError struct {
	Action  string
	Results []Result
}

func (e *VerificationFailedError) Error() string {
	var failed []string
	for _, r := range e.Results {
		if !r.Passed {
			failed = append(failed, r.Diagnostic)
		}
	}
	return fmt.Sprintf("verification failed for %q: %s", e.Action, strings.Join(failed, "; "))
}
