package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"makersim/internal/backtest"
	"makersim/internal/domain"
	"makersim/internal/service"
)

// SweepHandler serves parameter-sweep endpoints.
type SweepHandler struct {
	svc    *service.BacktestService
	board  domain.SweepBoard
	logger *slog.Logger
}

// NewSweepHandler creates a SweepHandler. The board may be nil, in which case
// the leaderboard endpoint reports 503.
func NewSweepHandler(svc *service.BacktestService, board domain.SweepBoard, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{
		svc:    svc,
		board:  board,
		logger: logHandler(logger, "sweeps"),
	}
}

// sweepRequest is the JSON body accepted by TriggerSweep.
type sweepRequest struct {
	DataSource   string  `json:"data_source"`
	Symbol       string  `json:"symbol"`
	OrderSize    float64 `json:"order_size"`
	FeeBps       float64 `json:"fee_bps"`
	MinSpreadBps float64 `json:"min_spread_bps"`
	MaxSpreadBps float64 `json:"max_spread_bps"`
	StepBps      float64 `json:"step_bps"`
	Concurrency  int     `json:"concurrency"`
}

// TriggerSweep executes a fixed-spread parameter sweep and returns the
// aggregated result.
// POST /api/sweeps
func (h *SweepHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DataSource == "" {
		writeError(w, http.StatusBadRequest, "data_source is required")
		return
	}

	params := backtest.SweepParams{
		DataSource:   req.DataSource,
		Symbol:       req.Symbol,
		OrderSize:    req.OrderSize,
		FeeBps:       req.FeeBps,
		MinSpreadBps: req.MinSpreadBps,
		MaxSpreadBps: req.MaxSpreadBps,
		StepBps:      req.StepBps,
		Concurrency:  req.Concurrency,
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.ExecuteSweep(r.Context(), params)
	if err != nil {
		h.logger.Error("sweep failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// TopPoints returns the best points of a sweep from the leaderboard.
// GET /api/sweeps/{id}/top?n=10
func (h *SweepHandler) TopPoints(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		writeError(w, http.StatusServiceUnavailable, "sweep board not configured")
		return
	}

	sweepID := pathParam(r, "id")
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	points, err := h.board.Top(r.Context(), sweepID, n)
	if err != nil {
		h.logger.Error("sweep leaderboard failed",
			slog.String("sweep_id", sweepID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sweep_id": sweepID,
		"points":   points,
	})
}
