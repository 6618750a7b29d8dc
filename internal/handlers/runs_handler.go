package handlers

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/verity/internal/services/runs"
	"github.com/ternarybob/verity/internal/storage/badger"
	"github.com/ternarybob/verity/pkg/models"
)

// RunsHandler serves run history and triggers new runs
type RunsHandler struct {
	store    *badger.RunStorage
	runner   *runs.Service
	logger   arbor.ILogger
	markdown goldmark.Markdown
	running  chan struct{}
}

// NewRunsHandler creates a new RunsHandler
func NewRunsHandler(store *badger.RunStorage, runner *runs.Service, logger arbor.ILogger) *RunsHandler {
	return &RunsHandler{
		store:  store,
		runner: runner,
		logger: logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithXHTML()),
		),
		running: make(chan struct{}, 1),
	}
}

// ListRunsHandler handles GET /api/runs
func (h *RunsHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &badger.RunListOptions{
		Scenario: r.URL.Query().Get("scenario"),
		Status:   models.RunStatus(r.URL.Query().Get("status")),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	records, err := h.store.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  records,
		"count": len(records),
	})
}

// TriggerRunsHandler handles POST /api/runs - runs all scenarios in the
// background and returns immediately. Only one triggered run may be in
// flight at a time: overlapping runs would share pooled browser contexts
// and interleave their navigations and actions.
func (h *RunsHandler) TriggerRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	select {
	case h.running <- struct{}{}:
	default:
		h.logger.Warn().Msg("Run trigger rejected, previous run still in progress")
		WriteError(w, http.StatusConflict, "a scenario run is already in progress")
		return
	}

	go func() {
		defer func() { <-h.running }()
		if _, err := h.runner.RunAll(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("Triggered run failed")
		}
	}()

	WriteStarted(w, "scenario run started")
}

// RunRoutesHandler handles GET /api/runs/{id} and /api/runs/{id}/report
func (h *RunsHandler) RunRoutesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "run id required")
		return
	}

	if id, ok := strings.CutSuffix(path, "/report"); ok {
		h.serveReport(w, r, id)
		return
	}

	run, err := h.store.GetRun(r.Context(), path)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// serveReport renders the run's markdown evidence report as HTML
func (h *RunsHandler) serveReport(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if run.ReportPath == "" {
		WriteError(w, http.StatusNotFound, "no report recorded for this run")
		return
	}

	data, err := os.ReadFile(run.ReportPath)
	if err != nil {
		h.logger.Error().Err(err).Str("path", run.ReportPath).Msg("Failed to read run report")
		WriteError(w, http.StatusInternalServerError, "report file unavailable")
		return
	}

	var buf bytes.Buffer
	if err := h.markdown.Convert(data, &buf); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to render report")
		WriteError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
