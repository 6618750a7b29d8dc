package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verity/internal/scenario"
)

// ScenarioHandler serves the loaded scenario definitions
type ScenarioHandler struct {
	dir    string
	logger arbor.ILogger
}

// NewScenarioHandler creates a new ScenarioHandler
func NewScenarioHandler(dir string, logger arbor.ILogger) *ScenarioHandler {
	return &ScenarioHandler{
		dir:    dir,
		logger: logger,
	}
}

type scenarioSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BaseURL     string `json:"base_url"`
	Steps       int    `json:"steps"`
	Captures    int    `json:"captures"`
}

// ListScenariosHandler handles GET /api/scenarios. Scenarios are re-read from
// disk on every request so edits show up without a restart.
func (h *ScenarioHandler) ListScenariosHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	scenarios, err := scenario.LoadDir(h.dir)
	if err != nil {
		h.logger.Error().Err(err).Str("dir", h.dir).Msg("Failed to load scenarios")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]scenarioSummary, 0, len(scenarios))
	for _, s := range scenarios {
		summaries = append(summaries, scenarioSummary{
			Name:        s.Name,
			Description: s.Description,
			BaseURL:     s.BaseURL,
			Steps:       len(s.Steps),
			Captures:    len(s.Captures),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": summaries,
		"count":     len(summaries),
	})
}
