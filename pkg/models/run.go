package models

import "time"

// RunStatus is the terminal (or in-flight) status of a scenario run
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
	RunStatusError   RunStatus = "error"
)

// RunRecord is the persisted evidence trail of one scenario run
type RunRecord struct {
	ID          string       `json:"id"`
	Scenario    string       `json:"scenario"`
	Description string       `json:"description,omitempty"`
	BaseURL     string       `json:"base_url"`
	Status      RunStatus    `json:"status"`
	Steps       []StepRecord `json:"steps"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`
	DurationMS  int64        `json:"duration_ms"`
	ReportPath  string       `json:"report_path,omitempty"`
}

// StepRecord captures one verified action's outcome within a run
type StepRecord struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Intent  string `json:"intent"`
	Passed  bool   `json:"passed"`
	Outcome string `json:"outcome"` // passed, verification_failed, not_found, ambiguous_match, not_interactable, timed_out, error
	Error   string `json:"error,omitempty"`

	SettleState   string   `json:"settle_state,omitempty"`
	SettlePolls   int      `json:"settle_polls,omitempty"`
	SettleElapsed int64    `json:"settle_elapsed_ms,omitempty"`
	Unsettled     []string `json:"unsettled,omitempty"`

	Expectations []ExpectationRecord `json:"expectations,omitempty"`
	DurationMS   int64               `json:"duration_ms"`
}

// ExpectationRecord is one expectation verdict with its evidence. Observed
// and Expected are always populated so a failure reads as a diff, never a
// bare boolean.
type ExpectationRecord struct {
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Passed     bool   `json:"passed"`
	Observed   string `json:"observed"`
	Expected   string `json:"expected"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// FailedSteps returns the names of steps that did not pass
func (r *RunRecord) FailedSteps() []string {
	var failed []string
	for _, step := range r.Steps {
		if !step.Passed {
			failed = append(failed, step.Name)
		}
	}
	return failed
}
