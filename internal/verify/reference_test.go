package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_UniqueMatch(t *testing.T) {
	d := newFakeDriver()
	d.addNode(&fakeNode{handle: "#add-btn", role: "button", name: "Add", visible: true, interactable: true})

	r := NewResolver(d, 1, 10*time.Millisecond)
	handle, err := r.Resolve(context.Background(), ElementReference{Role: "button", Name: "Add"})
	require.NoError(t, err)
	assert.Equal(t, "#add-btn", handle)
}

func TestResolveAll_ZeroMatchesIsNotAnError(t *testing.T) {
	d := newFakeDriver()

	r := NewResolver(d, 1, 10*time.Millisecond)
	handles, err := r.ResolveAll(context.Background(), ElementReference{Role: "button", Name: "Export"})
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestResolve_NotFoundAfterRetryBudget(t *testing.T) {
	d := newFakeDriver()

	r := NewResolver(d, 3, time.Millisecond)
	_, err := r.Resolve(context.Background(), ElementReference{Role: "button", Name: "Save"})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 3, notFound.Attempts)
	assert.Contains(t, notFound.Error(), `name="Save"`)
}

func TestResolve_RetryPicksUpLateElement(t *testing.T) {
	d := newFakeDriver()

	r := NewResolver(d, 5, time.Millisecond)

	// Element appears while the resolver is still retrying.
	go func() {
		time.Sleep(2 * time.Millisecond)
		d.addNode(&fakeNode{handle: "#late", role: "button", name: "Late", visible: true, interactable: true})
	}()

	handle, err := r.Resolve(context.Background(), ElementReference{Role: "button", Name: "Late"})
	require.NoError(t, err)
	assert.Equal(t, "#late", handle)
}

func TestResolve_AmbiguousWithoutScope(t *testing.T) {
	d := newFakeDriver()
	d.addNode(&fakeNode{handle: "#row1-delete", role: "button", name: "Delete", scope: "#row1", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#row2-delete", role: "button", name: "Delete", scope: "#row2", visible: true, interactable: true})

	r := NewResolver(d, 3, time.Millisecond)
	_, err := r.Resolve(context.Background(), ElementReference{Role: "button", Name: "Delete"})

	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Matches)
}

func TestResolve_ScopeDisambiguates(t *testing.T) {
	d := newFakeDriver()
	d.addNode(&fakeNode{handle: "#row1", role: "row", name: "Alice", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#row2", role: "row", name: "Bob", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#row1-delete", role: "button", name: "Delete", scope: "#row1", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#row2-delete", role: "button", name: "Delete", scope: "#row2", visible: true, interactable: true})

	r := NewResolver(d, 1, time.Millisecond)
	handle, err := r.Resolve(context.Background(), ElementReference{
		Role: "button",
		Name: "Delete",
		Scope: &ElementReference{Role: "row", Name: "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, "#row2-delete", handle)
}

func TestResolve_AmbiguousScopeFailsChain(t *testing.T) {
	d := newFakeDriver()
	d.addNode(&fakeNode{handle: "#card1", role: "region", name: "Details", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#card2", role: "region", name: "Details", visible: true, interactable: true})
	d.addNode(&fakeNode{handle: "#edit", role: "button", name: "Edit", scope: "#card1", visible: true, interactable: true})

	r := NewResolver(d, 1, time.Millisecond)
	_, err := r.Resolve(context.Background(), ElementReference{
		Role: "button",
		Name: "Edit",
		Scope: &ElementReference{Role: "region", Name: "Details"},
	})

	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
}

func TestResolve_ContextCancelledDuringRetry(t *testing.T) {
	d := newFakeDriver()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(d, 10, 50*time.Millisecond)
	_, err := r.Resolve(ctx, ElementReference{Role: "button", Name: "Never"})
	assert.True(t, errors.Is(err, context.Canceled))
}
