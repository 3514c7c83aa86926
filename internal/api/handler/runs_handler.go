package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"trend-pipeline/internal/model"
	"trend-pipeline/internal/store"
	"trend-pipeline/pkg/router"
)

// RunStore is the read side of the SQLite sink.
type RunStore interface {
	ListRuns(ctx context.Context) ([]store.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*store.RunDetail, error)
	GetSeries(ctx context.Context, runID string, f store.SeriesFilter) ([]store.SourceSeries, error)
	GetTrends(ctx context.Context, runID string) ([]store.Trend, error)
}

// Executor runs the configured sources and hands the results to every
// presenter, the store included.
type Executor interface {
	Execute(ctx context.Context) ([]model.SourceResult, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context) ([]model.SourceResult, error)

func (f ExecutorFunc) Execute(ctx context.Context) ([]model.SourceResult, error) { return f(ctx) }

// RunsHandler serves stored runs and triggers new ones.
type RunsHandler struct {
	Store    RunStore
	Executor Executor
	Timeout  time.Duration
	Logger   *slog.Logger
}

// SourceOutcome summarizes one source of a triggered run.
type SourceOutcome struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Points int    `json:"points"`
	Groups int    `json:"groups"`
	Error  string `json:"error,omitempty"`
}

// CreateRunResponse is returned after a triggered run completes.
type CreateRunResponse struct {
	RunID   string          `json:"run_id"`
	Status  string          `json:"status"`
	Sources []SourceOutcome `json:"sources"`
}

// CreateRun executes the configured sources
// @Summary Execute a run
// @Description Run every configured source through the pipeline and store the results. Sources fail independently; the run is "partial" when some failed.
// @Tags runs
// @Produce json
// @Success 201 {object} CreateRunResponse "Run completed"
// @Failure 500 {object} ErrorResponse "Run could not be executed"
// @Router /runs [post]
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	results, err := h.Executor.Execute(ctx)
	if len(results) == 0 {
		msg := "no sources configured"
		if err != nil {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	resp := CreateRunResponse{RunID: results[0].RunID, Status: "completed"}
	failed := 0
	for _, res := range results {
		resp.Sources = append(resp.Sources, SourceOutcome{
			Source: res.Source,
			Kind:   res.Kind,
			Points: len(res.Points),
			Groups: len(res.Groups),
			Error:  res.Error,
		})
		if res.Failed() {
			failed++
		}
	}
	switch {
	case failed == len(results):
		resp.Status = "failed"
	case failed > 0:
		resp.Status = "partial"
	}
	if err != nil {
		h.Logger.WarnContext(ctx, "run finished with errors", slog.String("run_id", resp.RunID), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListRuns retrieves all stored runs
// @Summary List runs
// @Description Get every stored run, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} store.RunSummary "List of runs"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [get]
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		h.internalError(w, r, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one stored run
// @Summary Get run
// @Description Retrieve per-source outcomes and data-quality notes of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} store.RunDetail "Run details"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id} [get]
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), router.Param(r, 0))
	if err != nil {
		h.lookupError(w, r, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetSeries retrieves the combined series of a run
// @Summary Get run series
// @Description Actual and predicted points per source and group, ordered by date
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param source query string false "Only this source"
// @Param group query string false "Only this group key (values joined with |, a literal | or backslash escaped with a backslash)"
// @Success 200 {array} store.SourceSeries "Combined series"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id}/series [get]
func (h *RunsHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	series, err := h.Store.GetSeries(r.Context(), router.Param(r, 0), store.SeriesFilter{
		Source:   q.Get("source"),
		GroupKey: q.Get("group"),
	})
	if err != nil {
		h.lookupError(w, r, "get series", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// GetTrends retrieves the fitted trend models of a run
// @Summary Get run trends
// @Description Slope and intercept per source and group; unfitted groups carry an error
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} store.Trend "Trend models"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id}/trends [get]
func (h *RunsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.Store.GetTrends(r.Context(), router.Param(r, 0))
	if err != nil {
		h.lookupError(w, r, "get trends", err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (h *RunsHandler) lookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	h.internalError(w, r, op, err)
}

func (h *RunsHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.Logger.ErrorContext(r.Context(), op+" failed", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal error")
}
