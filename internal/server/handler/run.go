package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"makersim/internal/domain"
	"makersim/internal/service"
)

// RunHandler serves backtest run endpoints: listing persisted runs, fetching
// a run with its trade log, reading live progress, downloading archived
// result bundles, and triggering new runs.
type RunHandler struct {
	svc    *service.BacktestService
	status domain.RunStatusCache
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler. The status cache and blob reader may be
// nil, in which case the progress and archive endpoints report 503.
func NewRunHandler(svc *service.BacktestService, status domain.RunStatusCache, blobs domain.BlobReader, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		svc:    svc,
		status: status,
		blobs:  blobs,
		logger: logHandler(logger, "runs"),
	}
}

// ListRuns returns persisted run headers, newest first.
// GET /api/runs?limit=&offset=&since=&until=
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, total, err := h.svc.ListRuns(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.Error("list runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": total,
	})
}

// GetRun returns one run header with its trade log.
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r, "id")

	header, trades, err := h.svc.GetRun(r.Context(), runID, parseListOpts(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":    header,
		"trades": trades,
	})
}

// GetRunStatus returns the live progress snapshot of a run.
// GET /api/runs/{id}/status
func (h *RunHandler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status cache not configured")
		return
	}

	runID := pathParam(r, "id")
	status, err := h.status.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no status for run")
			return
		}
		h.logger.Error("get run status failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// GetRunArchive streams the archived result bundle, tick-level trades
// included, from blob storage.
// GET /api/runs/{id}/archive
func (h *RunHandler) GetRunArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "blob storage not configured")
		return
	}

	runID := pathParam(r, "id")
	header, err := h.svc.GetRunHeader(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run header failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	body, err := h.blobs.Get(r.Context(), domain.ResultBlobPath(header.RunID, header.StartedAt))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no archive for run")
			return
		}
		h.logger.Error("get run archive failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream run archive failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
	}
}

// TriggerRun executes a backtest with the posted parameters and returns the
// finished result's header. The run executes synchronously; progress streams
// on the WebSocket endpoint while the request is in flight.
// POST /api/runs
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var params domain.RunParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if params.DataSource == "" {
		writeError(w, http.StatusBadRequest, "data_source is required")
		return
	}

	result, err := h.svc.ExecuteRun(r.Context(), params)
	if err != nil {
		if result == nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The run finished but persistence failed; report the result anyway.
		h.logger.Error("run persisted with errors",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":        result.RunID,
		"parameters":    result.Params,
		"summary_stats": result.Summary,
		"started_at":    result.StartedAt,
		"finished_at":   result.FinishedAt,
	})
}
