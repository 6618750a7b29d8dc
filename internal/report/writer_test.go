package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/verify"
	"github.com/ternarybob/verity/pkg/models"
)

func sampleRun() *models.RunRecord {
	return &models.RunRecord{
		ID:         "run_report_test",
		Scenario:   "contact-delete",
		BaseURL:    "https://staging.example.com/contacts",
		Status:     models.RunStatusFailed,
		StartedAt:  time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		DurationMS: 4200,
		Steps: []models.StepRecord{
			{
				Name:    "open-confirm",
				Target:  `[role=row name="Dana Cohen"] > [role=button name="Delete"]`,
				Intent:  "click",
				Passed:  true,
				Outcome: "passed",
			},
			{
				Name:        "confirm-delete",
				Target:      `[role=button name="Confirm"]`,
				Intent:      "click",
				Passed:      false,
				Outcome:     "verification_failed",
				SettleState: "settled",
				SettlePolls: 3,
				Expectations: []models.ExpectationRecord{
					{
						Kind:       "count_delta",
						Target:     "rows",
						Passed:     false,
						Observed:   "delta -2 (12 -> 10)",
						Expected:   "delta -1",
						Diagnostic: "rows changed by -2, expected exactly -1",
					},
				},
			},
		},
	}
}

func TestWriteRunReport(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir, arbor.NewLogger())

	evidence := map[string]*verify.ActionReport{
		"confirm-delete": {
			Name: "confirm-delete",
			Before: &verify.Snapshot{
				Counts:     map[string]int{"rows": 12},
				Visible:    map[string]bool{"modal": true},
				RegionHTML: map[string]string{"list": "<table><tr><td>Dana Cohen</td></tr></table>"},
				Texts:      map[string]string{"list": "Dana Cohen"},
			},
			After: &verify.Snapshot{
				Counts:  map[string]int{"rows": 10},
				Visible: map[string]bool{"modal": false},
			},
		},
	}

	path, err := writer.Write(sampleRun(), evidence)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_report_test.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Run run_report_test")
	assert.Contains(t, content, "**Failed steps**: confirm-delete")
	assert.Contains(t, content, "## Step 2: confirm-delete")
	assert.Contains(t, content, "delta -2 (12 -> 10)")
	assert.Contains(t, content, "delta -1")
	assert.Contains(t, content, "### Before")
	assert.Contains(t, content, "count `rows`: 12")
	assert.Contains(t, content, "### After")
	assert.Contains(t, content, "count `rows`: 10")
	// region HTML rendered through the converter
	assert.Contains(t, content, "Dana Cohen")
	assert.NotContains(t, content, "<table>")
}

func TestWriteRunReportWithoutEvidence(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir, arbor.NewLogger())

	run := sampleRun()
	path, err := writer.Write(run, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Step 1: open-confirm")
}

func TestCellEscapesTableBreakers(t *testing.T) {
	assert.Equal(t, "a\\|b", cell("a|b"))
	assert.Equal(t, "line one line two", cell("line one\nline two"))
}
