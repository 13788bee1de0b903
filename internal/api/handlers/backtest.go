package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/internal/data"
	"github.com/naveenvino/breezepython/pkg/logger"
)

const dateLayout = "2006-01-02"

// RunStarter launches backtest runs in the background
type RunStarter interface {
	Start(ctx context.Context, params contracts.BacktestParameters) (string, error)
}

// RunReader serves stored run records
type RunReader interface {
	GetRun(ctx context.Context, id string) (*contracts.BacktestResult, error)
	GetTrades(ctx context.Context, runID string) ([]*contracts.Trade, error)
	GetDailyResults(ctx context.Context, runID string) ([]*contracts.DailyResult, error)
	ListRuns(ctx context.Context, limit int) ([]data.RunSummary, error)
}

// BacktestHandler handles backtest API endpoints
type BacktestHandler struct {
	starter RunStarter
	runs    RunReader
	logger  *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(starter RunStarter, runs RunReader, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		starter: starter,
		runs:    runs,
		logger:  log,
	}
}

// RunRequest is the POST body for starting a run. Omitted fields fall
// back to the standard NIFTY weekly configuration.
type RunRequest struct {
	FromDate         string   `json:"from_date"`
	ToDate           string   `json:"to_date"`
	InitialCapital   *float64 `json:"initial_capital,omitempty"`
	LotSize          *int     `json:"lot_size,omitempty"`
	LotsToTrade      *int     `json:"lots_to_trade,omitempty"`
	Signals          []string `json:"signals,omitempty"`
	UseHedging       *bool    `json:"use_hedging,omitempty"`
	HedgeOffset      *int     `json:"hedge_offset,omitempty"`
	CommissionPerLot *float64 `json:"commission_per_lot,omitempty"`
	SlippagePercent  *float64 `json:"slippage_percent,omitempty"`
}

// RunResponse acknowledges an accepted run
type RunResponse struct {
	RunID  string              `json:"run_id"`
	Status contracts.RunStatus `json:"status"`
}

// RunBacktest starts a backtest run
// POST /api/backtest/run
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params, err := req.toParameters()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.starter.Start(r.Context(), params)
	if err != nil {
		h.logger.WithError(err).Error("Failed to start backtest run")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, RunResponse{
		RunID:  id,
		Status: contracts.RunPending,
	})
}

func (req RunRequest) toParameters() (contracts.BacktestParameters, error) {
	from, err := time.Parse(dateLayout, req.FromDate)
	if err != nil {
		return contracts.BacktestParameters{}, errors.New("from_date must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, req.ToDate)
	if err != nil {
		return contracts.BacktestParameters{}, errors.New("to_date must be YYYY-MM-DD")
	}

	params := contracts.DefaultParameters(from, to)

	if req.InitialCapital != nil {
		params.InitialCapital = decimal.NewFromFloat(*req.InitialCapital)
	}
	if req.LotSize != nil {
		params.LotSize = *req.LotSize
	}
	if req.LotsToTrade != nil {
		params.LotsToTrade = *req.LotsToTrade
	}
	if len(req.Signals) > 0 {
		signals, err := contracts.ParseSignalTypes(req.Signals)
		if err != nil {
			return contracts.BacktestParameters{}, err
		}
		params.SignalsToTest = signals
	}
	if req.UseHedging != nil {
		params.UseHedging = *req.UseHedging
	}
	if req.HedgeOffset != nil {
		params.HedgeOffset = *req.HedgeOffset
	}
	if req.CommissionPerLot != nil {
		params.CommissionPerLot = decimal.NewFromFloat(*req.CommissionPerLot)
	}
	if req.SlippagePercent != nil {
		params.SlippagePercent = *req.SlippagePercent
	}

	return params, nil
}

// ListRuns returns recent runs, newest first
// GET /api/backtest/runs?limit=N
func (h *BacktestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns a run's metrics
// GET /api/backtest/runs/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, data.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetTrades returns a run's trades with their option legs
// GET /api/backtest/runs/{id}/trades
func (h *BacktestHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.runs.GetRun(r.Context(), id); errors.Is(err, data.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	} else if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	trades, err := h.runs.GetTrades(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get trades")
		respondError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetDailyResults returns a run's daily capital snapshots
// GET /api/backtest/runs/{id}/daily
func (h *BacktestHandler) GetDailyResults(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.runs.GetRun(r.Context(), id); errors.Is(err, data.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	} else if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	daily, err := h.runs.GetDailyResults(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get daily results")
		respondError(w, http.StatusInternalServerError, "Failed to get daily results")
		return
	}

	respondJSON(w, http.StatusOK, daily)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
