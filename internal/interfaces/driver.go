package interfaces

import "context"

// Driver is the automation-driver boundary. Implementations expose the
// rendered DOM of the page under test as an opaque collaborator: handles are
// stable CSS selectors the driver guarantees to address a single live element
// for the duration of one verified action.
//
// The production implementation wraps chromedp (internal/browser). Tests use
// an in-memory fake.
type Driver interface {
	// Navigate loads a URL and blocks until the document is ready.
	Navigate(ctx context.Context, url string) error

	// Resolve returns stable handles for every element matching the given
	// role and accessible name within scope. An empty scope means the
	// document root. Zero matches is a valid result, not an error.
	Resolve(ctx context.Context, scope string, role string, name string) ([]string, error)

	// Click performs a single click on the element addressed by handle.
	Click(ctx context.Context, handle string) error

	// Fill replaces the value of the element addressed by handle.
	Fill(ctx context.Context, handle string, text string) error

	// SelectOption selects the option with the given value.
	SelectOption(ctx context.Context, handle string, value string) error

	// IsVisible reports whether the element is present and rendered.
	// A handle that no longer matches anything reports false, not an error.
	IsVisible(ctx context.Context, handle string) (bool, error)

	// IsInteractable reports whether the element can currently receive
	// input: visible, enabled, non-zero size and not covered by another
	// element at its center point.
	IsInteractable(ctx context.Context, handle string) (bool, error)

	// InnerText returns the rendered text of the element, or "" when the
	// handle matches nothing.
	InnerText(ctx context.Context, handle string) (string, error)

	// OuterHTML returns the serialized HTML of the element, or "" when the
	// handle matches nothing.
	OuterHTML(ctx context.Context, handle string) (string, error)

	// Count returns the number of elements matching a raw CSS selector.
	Count(ctx context.Context, selector string) (int, error)
}
