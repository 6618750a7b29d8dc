package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/verity/internal/interfaces"
)

// CaptureKind selects what a capture rule records.
type CaptureKind string

const (
	// CaptureCount records the number of elements matching the selector.
	CaptureCount CaptureKind = "count"
	// CaptureRegionText records the normalized text of the first match.
	CaptureRegionText CaptureKind = "region_text"
	// CaptureVisible records whether the first match is present and rendered.
	CaptureVisible CaptureKind = "visible"
	// CaptureOverlay records whether any match is currently rendered. An
	// overlay rule also feeds the snapshot's OverlayPresent flag.
	CaptureOverlay CaptureKind = "overlay"
)

// CaptureRule names one piece of UI state to record in a snapshot.
type CaptureRule struct {
	Name     string
	Kind     CaptureKind
	Selector string
}

// Snapshot is a point-in-time fingerprint of the UI state named by a set of
// capture rules. Snapshots are immutable once captured and hold no element
// handles, only comparable values.
type Snapshot struct {
	Timestamp      time.Time
	Counts         map[string]int
	Texts          map[string]string
	RegionHTML     map[string]string
	Visible        map[string]bool
	OverlayPresent bool
}

// Capture takes one synchronous pass over the current DOM. It never polls;
// waiting for quiescence is the settler's job. A rule whose selector matches
// nothing records count=0 / text="" / visible=false rather than failing.
func Capture(ctx context.Context, driver interfaces.Driver, rules []CaptureRule) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp:  time.Now(),
		Counts:     make(map[string]int),
		Texts:      make(map[string]string),
		RegionHTML: make(map[string]string),
		Visible:    make(map[string]bool),
	}

	for _, rule := range rules {
		switch rule.Kind {
		case CaptureCount:
			n, err := driver.Count(ctx, rule.Selector)
			if err != nil {
				return nil, fmt.Errorf("capture %q: count %s: %w", rule.Name, rule.Selector, err)
			}
			snap.Counts[rule.Name] = n

		case CaptureRegionText:
			html, err := driver.OuterHTML(ctx, rule.Selector)
			if err != nil {
				return nil, fmt.Errorf("capture %q: html %s: %w", rule.Name, rule.Selector, err)
			}
			snap.RegionHTML[rule.Name] = html
			text, err := normalizeRegionText(html)
			if err != nil {
				return nil, fmt.Errorf("capture %q: normalize: %w", rule.Name, err)
			}
			snap.Texts[rule.Name] = text

		case CaptureVisible:
			visible, err := driver.IsVisible(ctx, rule.Selector)
			if err != nil {
				return nil, fmt.Errorf("capture %q: visible %s: %w", rule.Name, rule.Selector, err)
			}
			snap.Visible[rule.Name] = visible

		case CaptureOverlay:
			visible, err := driver.IsVisible(ctx, rule.Selector)
			if err != nil {
				return nil, fmt.Errorf("capture %q: overlay %s: %w", rule.Name, rule.Selector, err)
			}
			snap.Visible[rule.Name] = visible
			if visible {
				snap.OverlayPresent = true
			}

		default:
			return nil, fmt.Errorf("capture %q: unknown kind %q", rule.Name, rule.Kind)
		}
	}

	return snap, nil
}

// Equal compares two snapshots ignoring capture timestamps. Two snapshots
// taken back to back with no intervening action must compare equal.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.OverlayPresent != o.OverlayPresent {
		return false
	}
	if len(s.Counts) != len(o.Counts) || len(s.Texts) != len(o.Texts) || len(s.Visible) != len(o.Visible) {
		return false
	}
	for name, n := range s.Counts {
		if o.Counts[name] != n {
			return false
		}
	}
	for name, text := range s.Texts {
		if o.Texts[name] != text {
			return false
		}
	}
	for name, visible := range s.Visible {
		if o.Visible[name] != visible {
			return false
		}
	}
	return true
}

// normalizeRegionText extracts the rendered text from a region's HTML and
// collapses whitespace so captures compare stably across layout changes.
// Text nodes are joined with a single space; flattening the document with
// Text() would glue adjacent cells together ("Alice" + "Bob" = "AliceBob")
// and let substring expectations match across element boundaries.
func normalizeRegionText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if fields := strings.Fields(c.Text()); len(fields) > 0 {
					parts = append(parts, strings.Join(fields, " "))
				}
				return
			}
			walk(c)
		})
	}
	walk(doc.Selection)
	return strings.Join(parts, " "), nil
}
