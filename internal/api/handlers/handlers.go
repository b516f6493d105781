package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/api/middleware"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

// RunsHandler handles run-related endpoints.
type RunsHandler struct {
	store   jobs.RunStore
	trigger jobs.Trigger

	// Paths a trigger request falls back to when the body names none.
	inputPath  string
	outputPath string

	log zerolog.Logger
}

// NewRunsHandler creates a new runs handler. inputPath and outputPath are the
// defaults used by triggers that do not name their own.
func NewRunsHandler(store jobs.RunStore, trigger jobs.Trigger, inputPath, outputPath string, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		store:      store,
		trigger:    trigger,
		inputPath:  inputPath,
		outputPath: outputPath,
		log:        log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.RunFilter{
		JobName: query.Get("job_name"),
		Status:  jobs.RunStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runs, err := h.store.ListRuns(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	ctx := r.Context()

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// TriggerRun handles POST /api/runs
func (h *RunsHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputPath  string `json:"input_path"`
		OutputPath string `json:"output_path"`
	}

	// An empty body means "run with the configured paths".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.InputPath == "" {
		req.InputPath = h.inputPath
	}
	if req.OutputPath == "" {
		req.OutputPath = h.outputPath
	}

	ctx := r.Context()

	run, err := h.trigger.StartRun(ctx, req.InputPath, req.OutputPath)
	if err != nil {
		if errors.Is(err, jobs.ErrJobBusy) {
			middleware.WriteError(w, http.StatusConflict, "Another run is already in progress")
			return
		}
		h.log.Error().Err(err).Msg("Failed to start run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	h.log.Info().Str("run_id", run.RunID).Str("input", run.InputPath).Msg("Run triggered")

	middleware.WriteJSON(w, http.StatusAccepted, run)
}
