package verify

import (
	"fmt"
	"strings"
)

// ExpectationKind is the closed set of comparison forms. Free-form boolean
// assertions are deliberately not offered: every kind requires a concrete
// comparison value.
type ExpectationKind string

const (
	ExpectationCountDelta   ExpectationKind = "count_delta"
	ExpectationTextContains ExpectationKind = "text_contains"
	ExpectationTextAbsent   ExpectationKind = "text_absent"
	ExpectationVisible      ExpectationKind = "visible"
	ExpectationHidden       ExpectationKind = "hidden"
)

// Expectation declares the state change the caller believes an action caused,
// compared against the before/after snapshot pair.
type Expectation struct {
	Kind   ExpectationKind
	Target string // capture rule name

	Delta     int    // CountDelta
	Substring string // TextContains / TextAbsent
}

// ExpectCountDelta declares that the named count group changes by exactly
// delta. Exact equality, not "at least": loose inequality is how regressions
// hide.
func ExpectCountDelta(group string, delta int) Expectation {
	return Expectation{Kind: ExpectationCountDelta, Target: group, Delta: delta}
}

// ExpectTextContains declares that the named region's text contains substring
// after the action.
func ExpectTextContains(region, substring string) Expectation {
	return Expectation{Kind: ExpectationTextContains, Target: region, Substring: substring}
}

// ExpectTextAbsent declares that the named region's text does not contain
// substring after the action.
func ExpectTextAbsent(region, substring string) Expectation {
	return Expectation{Kind: ExpectationTextAbsent, Target: region, Substring: substring}
}

// ExpectVisible declares that the named element is visible after the action.
func ExpectVisible(name string) Expectation {
	return Expectation{Kind: ExpectationVisible, Target: name}
}

// ExpectHidden declares that the named element is absent or hidden after the
// action.
func ExpectHidden(name string) Expectation {
	return Expectation{Kind: ExpectationHidden, Target: name}
}

// Result is the verdict for one expectation. Observed and Expected are always
// populated, pass or fail.
type Result struct {
	Passed     bool
	Kind       ExpectationKind
	Target     string
	Observed   string
	Expected   string
	Diagnostic string
}

// Compare evaluates an expectation against a before/after snapshot pair.
// CountDelta is the only kind that reads the before snapshot; the text and
// visibility kinds are evaluated on the after snapshot alone.
func Compare(before, after *Snapshot, exp Expectation) Result {
	switch exp.Kind {
	case ExpectationCountDelta:
		beforeCount, okBefore := before.Counts[exp.Target]
		afterCount, okAfter := after.Counts[exp.Target]
		if !okBefore || !okAfter {
			return failure(exp,
				fmt.Sprintf("group %q not captured", exp.Target),
				fmt.Sprintf("delta %+d", exp.Delta),
				fmt.Sprintf("count group %q missing from snapshot: add a capture rule for it", exp.Target))
		}
		observed := afterCount - beforeCount
		if observed != exp.Delta {
			return failure(exp,
				fmt.Sprintf("delta %+d (%d -> %d)", observed, beforeCount, afterCount),
				fmt.Sprintf("delta %+d", exp.Delta),
				fmt.Sprintf("count %q changed by %+d (%d -> %d), expected exactly %+d",
					exp.Target, observed, beforeCount, afterCount, exp.Delta))
		}
		return success(exp,
			fmt.Sprintf("delta %+d (%d -> %d)", observed, beforeCount, afterCount),
			fmt.Sprintf("delta %+d", exp.Delta))

	case ExpectationTextContains:
		text, ok := after.Texts[exp.Target]
		if !ok {
			return missingRule(exp, "region")
		}
		if !strings.Contains(text, exp.Substring) {
			return failure(exp, snippet(text), fmt.Sprintf("contains %q", exp.Substring),
				fmt.Sprintf("region %q does not contain %q (got: %s)", exp.Target, exp.Substring, snippet(text)))
		}
		return success(exp, snippet(text), fmt.Sprintf("contains %q", exp.Substring))

	case ExpectationTextAbsent:
		text, ok := after.Texts[exp.Target]
		if !ok {
			return missingRule(exp, "region")
		}
		if strings.Contains(text, exp.Substring) {
			return failure(exp, snippet(text), fmt.Sprintf("absent %q", exp.Substring),
				fmt.Sprintf("region %q unexpectedly contains %q: value leaked into the after state", exp.Target, exp.Substring))
		}
		return success(exp, snippet(text), fmt.Sprintf("absent %q", exp.Substring))

	case ExpectationVisible:
		visible, ok := after.Visible[exp.Target]
		if !ok {
			return missingRule(exp, "element")
		}
		if !visible {
			return failure(exp, "hidden", "visible",
				fmt.Sprintf("element %q is not visible after the action", exp.Target))
		}
		return success(exp, "visible", "visible")

	case ExpectationHidden:
		visible, ok := after.Visible[exp.Target]
		if !ok {
			return missingRule(exp, "element")
		}
		if visible {
			return failure(exp, "visible", "hidden",
				fmt.Sprintf("element %q is still visible after the action", exp.Target))
		}
		return success(exp, "hidden", "hidden")

	default:
		return failure(exp, "", "", fmt.Sprintf("unknown expectation kind %q", exp.Kind))
	}
}

// CompareAll evaluates every expectation. All comparisons run even after a
// failure so the diagnostics name everything that went wrong at once.
func CompareAll(before, after *Snapshot, exps []Expectation) []Result {
	results := make([]Result, 0, len(exps))
	for _, exp := range exps {
		results = append(results, Compare(before, after, exp))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func success(exp Expectation, observed, expected string) Result {
	return Result{Passed: true, Kind: exp.Kind, Target: exp.Target, Observed: observed, Expected: expected,
		Diagnostic: fmt.Sprintf("%s %q: observed %s, expected %s", exp.Kind, exp.Target, observed, expected)}
}

func failure(exp Expectation, observed, expected, diagnostic string) Result {
	return Result{Passed: false, Kind: exp.Kind, Target: exp.Target, Observed: observed, Expected: expected, Diagnostic: diagnostic}
}

func missingRule(exp Expectation, what string) Result {
	return failure(exp,
		fmt.Sprintf("%s %q not captured", what, exp.Target),
		string(exp.Kind),
		fmt.Sprintf("%s %q missing from snapshot: add a capture rule for it", what, exp.Target))
}

func snippet(text string) string {
	const max = 120
	if len(text) <= max {
		return fmt.Sprintf("%q", text)
	}
	return fmt.Sprintf("%q...", text[:max])
}
