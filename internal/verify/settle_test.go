package verify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// flipAfter returns a predicate that holds from the nth check onward.
func flipAfter(name string, n int64) Predicate {
	var checks int64
	return Predicate{
		Name: name,
		Check: func(context.Context) (bool, error) {
			return atomic.AddInt64(&checks, 1) >= n, nil
		},
	}
}

func alwaysFalse(name string) Predicate {
	return Predicate{Name: name, Check: func(context.Context) (bool, error) { return false, nil }}
}

func alwaysTrue(name string) Predicate {
	return Predicate{Name: name, Check: func(context.Context) (bool, error) { return true, nil }}
}

func TestSettler_EmptyConditionSettlesImmediately(t *testing.T) {
	s := NewSettler(time.Millisecond, 100*time.Millisecond, testLogger())
	report, err := s.Wait(context.Background(), Condition{})
	require.NoError(t, err)
	assert.Equal(t, StateSettled, report.State)
}

func TestSettler_WaitsForWholeConjunction(t *testing.T) {
	// Heading disappears quickly but the backdrop takes longer: the settler
	// must not report settled until both hold on the same tick.
	s := NewSettler(time.Millisecond, time.Second, testLogger())
	report, err := s.Wait(context.Background(), Condition{Predicates: []Predicate{
		flipAfter("heading_hidden", 2),
		flipAfter("overlay_absent", 5),
	}})
	require.NoError(t, err)

	assert.Equal(t, StateSettled, report.State)
	assert.GreaterOrEqual(t, report.Polls, 5)
	assert.True(t, report.LastObserved["heading_hidden"])
	assert.True(t, report.LastObserved["overlay_absent"])
}

func TestSettler_TimeoutNamesUnsettledPredicates(t *testing.T) {
	s := NewSettler(time.Millisecond, 20*time.Millisecond, testLogger())
	report, err := s.Wait(context.Background(), Condition{Predicates: []Predicate{
		alwaysTrue("heading_hidden"),
		alwaysFalse("overlay_absent"),
	}})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, StateTimedOut, report.State)
	assert.True(t, timeout.LastObserved["heading_hidden"])
	assert.False(t, timeout.LastObserved["overlay_absent"])
	assert.Equal(t, []string{"overlay_absent"}, timeout.Unsettled())
	assert.Contains(t, timeout.Error(), "overlay_absent=false")
	assert.Contains(t, timeout.Error(), "heading_hidden=true")
}

func TestSettler_AlwaysTerminatesWithinBudget(t *testing.T) {
	budget := 30 * time.Millisecond
	s := NewSettler(time.Millisecond, budget, testLogger())

	start := time.Now()
	_, err := s.Wait(context.Background(), Condition{Predicates: []Predicate{alwaysFalse("overlay_absent")}})
	elapsed := time.Since(start)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	// Generous upper bound: the loop must not keep polling long past the
	// deadline, and must never hang.
	assert.Less(t, elapsed, budget+250*time.Millisecond)
}

func TestSettler_ContextCancellationStopsPolling(t *testing.T) {
	s := NewSettler(5*time.Millisecond, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	report, err := s.Wait(ctx, Condition{Predicates: []Predicate{alwaysFalse("overlay_absent")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, StateSettled, report.State)
}

func TestSettler_PredicateErrorSurfaced(t *testing.T) {
	s := NewSettler(time.Millisecond, time.Second, testLogger())
	boom := Predicate{Name: "broken", Check: func(context.Context) (bool, error) {
		return false, assert.AnError
	}}

	_, err := s.Wait(context.Background(), Condition{Predicates: []Predicate{boom}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "broken")
}

func TestDriverPredicates(t *testing.T) {
	d := newFakeDriver()
	d.visible[".modal-backdrop"] = true
	d.addNode(&fakeNode{handle: "#add-btn", role: "button", name: "Add", visible: true, interactable: false})

	ctx := context.Background()

	overlayGone, err := OverlayAbsent(d, ".modal-backdrop").Check(ctx)
	require.NoError(t, err)
	assert.False(t, overlayGone)

	headingHidden, err := ElementHidden(d, "#confirm-heading").Check(ctx)
	require.NoError(t, err)
	assert.True(t, headingHidden, "selector matching nothing counts as hidden")

	clickable, err := ElementInteractable(d, "#add-btn").Check(ctx)
	require.NoError(t, err)
	assert.False(t, clickable)

	// Backdrop clears and the button becomes interactable again.
	d.visible[".modal-backdrop"] = false
	d.nodes["#add-btn"].interactable = true

	overlayGone, err = OverlayAbsent(d, ".modal-backdrop").Check(ctx)
	require.NoError(t, err)
	assert.True(t, overlayGone)

	clickable, err = ElementInteractable(d, "#add-btn").Check(ctx)
	require.NoError(t, err)
	assert.True(t, clickable)
}
