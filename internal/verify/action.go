package verify

import (
	"context"
	"fmt"

	"github.com/ternarybob/verity/internal/interfaces"
)

// IntentKind is the closed set of user intents the executor performs.
type IntentKind string

const (
	IntentClick  IntentKind = "click"
	IntentFill   IntentKind = "fill"
	IntentSelect IntentKind = "select"
)

// Intent is one user action against an already-resolved element. Resolution
// is the caller's job (via Resolver); the executor makes exactly one attempt
// and never retries. Retry around transient UI state belongs to the settler.
type Intent struct {
	Kind    IntentKind
	Payload string
}

// Executor performs intents through the driver.
type Executor struct {
	driver interfaces.Driver
}

// NewExecutor creates an action executor over the driver.
func NewExecutor(driver interfaces.Driver) *Executor {
	return &Executor{driver: driver}
}

// Perform executes the intent against handle. An element that exists but
// cannot currently receive the action yields NotInteractableError, which is
// distinct from the resolver's NotFoundError.
func (e *Executor) Perform(ctx context.Context, handle string, intent Intent) error {
	interactable, err := e.driver.IsInteractable(ctx, handle)
	if err != nil {
		return fmt.Errorf("interactability check for %s: %w", handle, err)
	}
	if !interactable {
		return &NotInteractableError{Handle: handle, Kind: intent.Kind}
	}

	switch intent.Kind {
	case IntentClick:
		err = e.driver.Click(ctx, handle)
	case IntentFill:
		err = e.driver.Fill(ctx, handle, intent.Payload)
	case IntentSelect:
		err = e.driver.SelectOption(ctx, handle, intent.Payload)
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s on %s: %w", intent.Kind, handle, err)
	}
	return nil
}
