package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/verity/internal/interfaces"
)

// ElementReference is a declarative descriptor of a target UI element:
// semantic role plus accessible name, optionally narrowed by a chain of
// ancestor references. References are constructed per operation and never
// persisted.
type ElementReference struct {
	Role string
	Name string

	// Scope is an optional ancestor reference. Resolution walks the chain
	// outermost-first; each link must resolve to exactly one element.
	Scope *ElementReference
}

func (r ElementReference) String() string {
	if r.Scope != nil {
		return fmt.Sprintf("%s > [role=%s name=%q]", r.Scope, r.Role, r.Name)
	}
	return fmt.Sprintf("[role=%s name=%q]", r.Role, r.Name)
}

// Resolver maps ElementReferences to live element handles. Resolution prefers
// role + accessible-name matching; positional selectors are not offered.
type Resolver struct {
	driver   interfaces.Driver
	attempts int
	interval time.Duration
}

// NewResolver creates a resolver with a bounded retry budget for presence
// checks. attempts < 1 is treated as a single attempt.
func NewResolver(driver interfaces.Driver, attempts int, interval time.Duration) *Resolver {
	if attempts < 1 {
		attempts = 1
	}
	return &Resolver{driver: driver, attempts: attempts, interval: interval}
}

// ResolveAll returns every handle matching ref in a single pass. Zero matches
// is a valid result: absence is state, not an error.
func (r *Resolver) ResolveAll(ctx context.Context, ref ElementReference) ([]string, error) {
	scope := ""
	if ref.Scope != nil {
		scopeHandle, err := r.resolveOnce(ctx, *ref.Scope)
		if err != nil {
			return nil, err
		}
		scope = scopeHandle
	}
	return r.driver.Resolve(ctx, scope, ref.Role, ref.Name)
}

// Resolve requires exactly one live match. Zero matches after the retry
// budget yields NotFoundError; more than one yields AmbiguousMatchError
// immediately, since retrying cannot disambiguate.
func (r *Resolver) Resolve(ctx context.Context, ref ElementReference) (string, error) {
	var lastLen int
	for attempt := 1; ; attempt++ {
		handles, err := r.ResolveAll(ctx, ref)
		if err != nil {
			return "", err
		}
		lastLen = len(handles)

		switch {
		case lastLen == 1:
			return handles[0], nil
		case lastLen > 1:
			return "", &AmbiguousMatchError{Ref: ref, Matches: lastLen}
		}

		if attempt >= r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.interval):
		}
	}
	return "", &NotFoundError{Ref: ref, Attempts: r.attempts}
}

// resolveOnce resolves a scope link without retries. Scope chains address
// structure that is expected to already be present.
func (r *Resolver) resolveOnce(ctx context.Context, ref ElementReference) (string, error) {
	scope := ""
	if ref.Scope != nil {
		parent, err := r.resolveOnce(ctx, *ref.Scope)
		if err != nil {
			return "", err
		}
		scope = parent
	}

	handles, err := r.driver.Resolve(ctx, scope, ref.Role, ref.Name)
	if err != nil {
		return "", err
	}
	if len(handles) == 0 {
		return "", &NotFoundError{Ref: ref, Attempts: 1}
	}
	if len(handles) > 1 {
		return "", &AmbiguousMatchError{Ref: ref, Matches: len(handles)}
	}
	return handles[0], nil
}
