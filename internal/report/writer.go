package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/verify"
	"github.com/ternarybob/verity/pkg/models"
)

// Writer renders a scenario run into a markdown evidence report on disk. The
// report carries the full trail: per-step verdicts, settle diagnostics and
// the captured region content before and after each action.
type Writer struct {
	dir       string
	converter *md.Converter
	logger    arbor.ILogger
}

// NewWriter creates a report writer targeting the given directory.
func NewWriter(dir string, logger arbor.ILogger) *Writer {
	return &Writer{
		dir:       dir,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// Write renders the run and its step evidence to <dir>/<run-id>.md and
// returns the written path. Evidence is keyed by step name; steps with no
// evidence entry are rendered from the record alone.
func (w *Writer) Write(run *models.RunRecord, evidence map[string]*verify.ActionReport) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", run.ID)
	fmt.Fprintf(&b, "- **Scenario**: %s\n", run.Scenario)
	if run.Description != "" {
		fmt.Fprintf(&b, "- **Description**: %s\n", run.Description)
	}
	fmt.Fprintf(&b, "- **URL**: %s\n", run.BaseURL)
	fmt.Fprintf(&b, "- **Status**: %s\n", run.Status)
	fmt.Fprintf(&b, "- **Started**: %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration**: %dms\n", run.DurationMS)
	if run.Error != "" {
		fmt.Fprintf(&b, "- **Error**: %s\n", run.Error)
	}
	b.WriteString("\n")

	if failed := run.FailedSteps(); len(failed) > 0 {
		fmt.Fprintf(&b, "**Failed steps**: %s\n\n", strings.Join(failed, ", "))
	}

	for i, step := range run.Steps {
		fmt.Fprintf(&b, "## Step %d: %s\n\n", i+1, step.Name)
		fmt.Fprintf(&b, "- **Target**: %s\n", step.Target)
		fmt.Fprintf(&b, "- **Intent**: %s\n", step.Intent)
		fmt.Fprintf(&b, "- **Outcome**: %s\n", step.Outcome)
		if step.Error != "" {
			fmt.Fprintf(&b, "- **Error**: %s\n", step.Error)
		}
		if step.SettleState != "" {
			fmt.Fprintf(&b, "- **Settle**: %s after %d polls (%dms)\n",
				step.SettleState, step.SettlePolls, step.SettleElapsed)
		}
		if len(step.Unsettled) > 0 {
			fmt.Fprintf(&b, "- **Never settled**: %s\n", strings.Join(step.Unsettled, ", "))
		}
		b.WriteString("\n")

		if len(step.Expectations) > 0 {
			b.WriteString("| Expectation | Target | Verdict | Observed | Expected |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, exp := range step.Expectations {
				verdict := "pass"
				if !exp.Passed {
					verdict = "FAIL"
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
					exp.Kind, exp.Target, verdict, cell(exp.Observed), cell(exp.Expected))
			}
			b.WriteString("\n")
		}

		if ev, ok := evidence[step.Name]; ok {
			w.writeEvidence(&b, ev)
		}
	}

	path := filepath.Join(w.dir, run.ID+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	w.logger.Info().
		Str("run_id", run.ID).
		Str("path", path).
		Msg("Run report written")

	return path, nil
}

// writeEvidence renders the before/after snapshot pair of one step.
func (w *Writer) writeEvidence(b *strings.Builder, ev *verify.ActionReport) {
	if ev.Before != nil {
		b.WriteString("### Before\n\n")
		w.writeSnapshot(b, ev.Before)
	}
	if ev.After != nil {
		b.WriteString("### After\n\n")
		w.writeSnapshot(b, ev.After)
	}
}

func (w *Writer) writeSnapshot(b *strings.Builder, snap *verify.Snapshot) {
	for _, name := range sortedKeys(snap.Counts) {
		fmt.Fprintf(b, "- count `%s`: %d\n", name, snap.Counts[name])
	}
	for _, name := range sortedKeys(snap.Visible) {
		fmt.Fprintf(b, "- visible `%s`: %t\n", name, snap.Visible[name])
	}
	fmt.Fprintf(b, "- overlay present: %t\n", snap.OverlayPresent)
	b.WriteString("\n")

	for _, name := range sortedKeys(snap.RegionHTML) {
		html := snap.RegionHTML[name]
		if html == "" {
			continue
		}
		converted, err := w.converter.ConvertString(html)
		if err != nil {
			w.logger.Warn().Err(err).Str("region", name).Msg("Region conversion failed, using raw text")
			converted = snap.Texts[name]
		}
		fmt.Fprintf(b, "#### Region `%s`\n\n%s\n\n", name, strings.TrimSpace(converted))
	}
}

// cell escapes a value for a markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
