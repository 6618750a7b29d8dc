package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/common"
	"github.com/ternarybob/verity/internal/interfaces"
)

// Driver implements interfaces.Driver on top of a chromedp browser context.
// Handles are attribute selectors of the form [data-verity-ref="..."]: Resolve
// tags each matching element with a unique attribute so later operations
// address exactly that element regardless of sibling churn.
type Driver struct {
	browserCtx      context.Context
	logger          arbor.ILogger
	navigateTimeout time.Duration
}

// NewDriver wraps an allocated browser context from the pool.
func NewDriver(browserCtx context.Context, config common.BrowserConfig, logger arbor.ILogger) *Driver {
	return &Driver{
		browserCtx:      browserCtx,
		logger:          logger,
		navigateTimeout: common.Duration(config.NavigateTimeout, 30*time.Second),
	}
}

var _ interfaces.Driver = (*Driver)(nil)

// run executes chromedp actions against the browser context, honoring the
// caller's deadline and cancellation. chromedp contexts hang off the pooled
// browser context, so the caller's ctx cannot be passed through directly.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.browserCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads a URL and waits for the document body to be ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, d.navigateTimeout)
	defer cancel()

	d.logger.Debug().Str("url", url).Msg("Navigating")

	if err := d.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// resolveScript walks the DOM under a scope, computes each element's role and
// accessible name, tags matches with data-verity-ref and returns the handles.
const resolveScript = `
(function(scopeSel, role, name, token) {
	function implicitRole(el) {
		var tag = el.tagName.toLowerCase();
		var type = (el.getAttribute('type') || '').toLowerCase();
		switch (tag) {
		case 'button': return 'button';
		case 'a': return el.hasAttribute('href') ? 'link' : '';
		case 'select': return 'combobox';
		case 'textarea': return 'textbox';
		case 'table': return 'table';
		case 'tr': return 'row';
		case 'td': return 'cell';
		case 'th': return 'columnheader';
		case 'ul': case 'ol': return 'list';
		case 'li': return 'listitem';
		case 'nav': return 'navigation';
		case 'form': return 'form';
		case 'img': return 'img';
		case 'option': return 'option';
		case 'dialog': return 'dialog';
		case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6':
			return 'heading';
		case 'input':
			if (type === 'button' || type === 'submit' || type === 'reset') return 'button';
			if (type === 'checkbox') return 'checkbox';
			if (type === 'radio') return 'radio';
			if (type === 'range') return 'slider';
			if (type === 'number') return 'spinbutton';
			if (type === 'search') return 'searchbox';
			return 'textbox';
		}
		return '';
	}
	function collapse(s) {
		return (s || '').replace(/\s+/g, ' ').trim();
	}
	function accessibleName(el) {
		var label = el.getAttribute('aria-label');
		if (label) return collapse(label);
		var ids = el.getAttribute('aria-labelledby');
		if (ids) {
			var parts = [];
			ids.split(/\s+/).forEach(function(id) {
				var ref = document.getElementById(id);
				if (ref) parts.push(ref.textContent);
			});
			if (parts.length) return collapse(parts.join(' '));
		}
		var tag = el.tagName.toLowerCase();
		if (tag === 'input' || tag === 'select' || tag === 'textarea') {
			if (el.id) {
				var lab = document.querySelector('label[for="' + el.id + '"]');
				if (lab) return collapse(lab.textContent);
			}
			var anc = el.closest('label');
			if (anc) return collapse(anc.textContent);
			if (tag === 'input' && el.value &&
				['button', 'submit', 'reset'].indexOf((el.type || '').toLowerCase()) >= 0) {
				return collapse(el.value);
			}
			return collapse(el.getAttribute('placeholder'));
		}
		if (tag === 'img') return collapse(el.getAttribute('alt'));
		return collapse(el.textContent);
	}

	var root = document;
	if (scopeSel) {
		root = document.querySelector(scopeSel);
		if (!root) return [];
	}
	var handles = [];
	var all = root.querySelectorAll('*');
	for (var i = 0; i < all.length; i++) {
		var el = all[i];
		var r = (el.getAttribute('role') || implicitRole(el)).toLowerCase();
		if (r !== role) continue;
		if (accessibleName(el) !== name) continue;
		var ref = el.getAttribute('data-verity-ref');
		if (!ref) {
			ref = token + '-' + i;
			el.setAttribute('data-verity-ref', ref);
		}
		handles.push('[data-verity-ref="' + ref + '"]');
	}
	return handles;
})(%q, %q, %q, %q)
`

// Resolve finds elements by role and accessible name within scope. Zero
// matches returns an empty slice, not an error.
func (d *Driver) Resolve(ctx context.Context, scope string, role string, name string) ([]string, error) {
	token := uuid.New().String()[:8]
	script := fmt.Sprintf(resolveScript, scope, role, name, token)

	var handles []string
	if err := d.run(ctx, chromedp.Evaluate(script, &handles)); err != nil {
		return nil, fmt.Errorf("failed to resolve [role=%s name=%q]: %w", role, name, err)
	}

	d.logger.Debug().
		Str("role", role).
		Str("name", name).
		Str("scope", scope).
		Int("matches", len(handles)).
		Msg("Resolved element reference")

	return handles, nil
}

// Click performs a single click. No retries: a failed click is evidence.
func (d *Driver) Click(ctx context.Context, handle string) error {
	if err := d.run(ctx, chromedp.Click(handle, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click failed on %s: %w", handle, err)
	}
	return nil
}

// Fill clears the element and types the replacement text so the page sees the
// same input events a user would produce.
func (d *Driver) Fill(ctx context.Context, handle string, text string) error {
	if err := d.run(ctx,
		chromedp.Clear(handle, chromedp.ByQuery),
		chromedp.SendKeys(handle, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill failed on %s: %w", handle, err)
	}
	return nil
}

// SelectOption selects the option with the given value and dispatches a
// change event, which chromedp's SetValue does not do on its own.
func (d *Driver) SelectOption(ctx context.Context, handle string, value string) error {
	script := fmt.Sprintf(`
(function(sel, value) {
	var el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return el.value === value;
})(%q, %q)
`, handle, value)

	var ok bool
	if err := d.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("select failed on %s: %w", handle, err)
	}
	if !ok {
		return fmt.Errorf("select failed on %s: no option with value %q", handle, value)
	}
	return nil
}

// IsVisible reports whether the element exists and is rendered. A selector
// that matches nothing reports false.
func (d *Driver) IsVisible(ctx context.Context, handle string) (bool, error) {
	script := fmt.Sprintf(`
(function(sel) {
	var el = document.querySelector(sel);
	if (!el) return false;
	var style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	var rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
})(%q)
`, handle)

	var visible bool
	if err := d.run(ctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("visibility check failed on %s: %w", handle, err)
	}
	return visible, nil
}

// IsInteractable reports whether the element can receive input right now:
// visible, enabled, and not covered at its center point.
func (d *Driver) IsInteractable(ctx context.Context, handle string) (bool, error) {
	script := fmt.Sprintf(`
(function(sel) {
	var el = document.querySelector(sel);
	if (!el) return false;
	if (el.disabled) return false;
	var style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	if (style.pointerEvents === 'none') return false;
	var rect = el.getBoundingClientRect();
	if (rect.width === 0 || rect.height === 0) return false;
	var cx = rect.left + rect.width / 2;
	var cy = rect.top + rect.height / 2;
	var hit = document.elementFromPoint(cx, cy);
	if (!hit) return false;
	return el === hit || el.contains(hit) || hit.contains(el);
})(%q)
`, handle)

	var interactable bool
	if err := d.run(ctx, chromedp.Evaluate(script, &interactable)); err != nil {
		return false, fmt.Errorf("interactability check failed on %s: %w", handle, err)
	}
	return interactable, nil
}

// InnerText returns the rendered text of the element, "" when missing.
func (d *Driver) InnerText(ctx context.Context, handle string) (string, error) {
	script := fmt.Sprintf(`
(function(sel) {
	var el = document.querySelector(sel);
	return el ? el.innerText : '';
})(%q)
`, handle)

	var text string
	if err := d.run(ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", fmt.Errorf("inner text read failed on %s: %w", handle, err)
	}
	return text, nil
}

// OuterHTML returns the serialized HTML of the element, "" when missing.
func (d *Driver) OuterHTML(ctx context.Context, handle string) (string, error) {
	script := fmt.Sprintf(`
(function(sel) {
	var el = document.querySelector(sel);
	return el ? el.outerHTML : '';
})(%q)
`, handle)

	var html string
	if err := d.run(ctx, chromedp.Evaluate(script, &html)); err != nil {
		return "", fmt.Errorf("outer html read failed on %s: %w", handle, err)
	}
	return html, nil
}

// Count returns the number of elements matching a raw CSS selector.
func (d *Driver) Count(ctx context.Context, selector string) (int, error) {
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)

	var count int
	if err := d.run(ctx, chromedp.Evaluate(script, &count)); err != nil {
		return 0, fmt.Errorf("count failed for %s: %w", selector, err)
	}
	return count, nil
}
