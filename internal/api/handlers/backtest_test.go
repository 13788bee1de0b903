package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/internal/data"
	"github.com/naveenvino/breezepython/pkg/logger"
)

type fakeStarter struct {
	id        string
	err       error
	gotParams contracts.BacktestParameters
}

func (f *fakeStarter) Start(_ context.Context, params contracts.BacktestParameters) (string, error) {
	f.gotParams = params
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeRuns struct {
	runs     map[string]*contracts.BacktestResult
	trades   map[string][]*contracts.Trade
	daily    map[string][]*contracts.DailyResult
	summary  []data.RunSummary
	gotLimit int
}

func (f *fakeRuns) GetRun(_ context.Context, id string) (*contracts.BacktestResult, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, data.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeRuns) GetTrades(_ context.Context, runID string) ([]*contracts.Trade, error) {
	return f.trades[runID], nil
}

func (f *fakeRuns) GetDailyResults(_ context.Context, runID string) ([]*contracts.DailyResult, error) {
	return f.daily[runID], nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]data.RunSummary, error) {
	f.gotLimit = limit
	return f.summary, nil
}

func newTestRouter(h *BacktestHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/backtest/run", h.RunBacktest).Methods("POST")
	r.HandleFunc("/api/backtest/runs", h.ListRuns).Methods("GET")
	r.HandleFunc("/api/backtest/runs/{id}", h.GetRun).Methods("GET")
	r.HandleFunc("/api/backtest/runs/{id}/trades", h.GetTrades).Methods("GET")
	r.HandleFunc("/api/backtest/runs/{id}/daily", h.GetDailyResults).Methods("GET")
	return r
}

func TestBacktestHandler_RunBacktest(t *testing.T) {
	starter := &fakeStarter{id: "run-42"}
	h := NewBacktestHandler(starter, &fakeRuns{}, logger.NewNop())

	body := `{
		"from_date": "2025-01-01",
		"to_date": "2025-03-31",
		"initial_capital": 1000000,
		"signals": ["S1", "S7"],
		"use_hedging": false
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/backtest/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp RunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-42", resp.RunID)
	assert.Equal(t, contracts.RunPending, resp.Status)

	params := starter.gotParams
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), params.FromDate)
	assert.True(t, params.InitialCapital.Equal(decimal.NewFromInt(1000000)))
	assert.Equal(t, []contracts.SignalType{contracts.SignalS1, contracts.SignalS7}, params.SignalsToTest)
	assert.False(t, params.UseHedging)

	// Omitted fields keep the standard configuration
	assert.Equal(t, 75, params.LotSize)
	assert.Equal(t, 200, params.HedgeOffset)
}

func TestBacktestHandler_RunBacktestRejectsBadDate(t *testing.T) {
	h := NewBacktestHandler(&fakeStarter{id: "x"}, &fakeRuns{}, logger.NewNop())

	body := `{"from_date": "01-01-2025", "to_date": "2025-03-31"}`
	req := httptest.NewRequest(http.MethodPost, "/api/backtest/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "from_date")
}

func TestBacktestHandler_RunBacktestRejectsUnknownSignal(t *testing.T) {
	h := NewBacktestHandler(&fakeStarter{id: "x"}, &fakeRuns{}, logger.NewNop())

	body := `{"from_date": "2025-01-01", "to_date": "2025-03-31", "signals": ["S9"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/backtest/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBacktestHandler_GetRun(t *testing.T) {
	runs := &fakeRuns{runs: map[string]*contracts.BacktestResult{
		"run-1": {RunID: "run-1", Status: contracts.RunCompleted, TotalTrades: 3},
	}}
	h := NewBacktestHandler(&fakeStarter{}, runs, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs/run-1", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result contracts.BacktestResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 3, result.TotalTrades)
}

func TestBacktestHandler_GetRunNotFound(t *testing.T) {
	h := NewBacktestHandler(&fakeStarter{}, &fakeRuns{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs/missing", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBacktestHandler_GetTradesNotFound(t *testing.T) {
	h := NewBacktestHandler(&fakeStarter{}, &fakeRuns{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs/missing/trades", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBacktestHandler_GetTrades(t *testing.T) {
	runs := &fakeRuns{
		runs: map[string]*contracts.BacktestResult{"run-1": {RunID: "run-1"}},
		trades: map[string][]*contracts.Trade{
			"run-1": {{ID: "t1", SignalType: contracts.SignalS1}},
		},
	}
	h := NewBacktestHandler(&fakeStarter{}, runs, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs/run-1/trades", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var trades []*contracts.Trade
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&trades))
	require.Len(t, trades, 1)
	assert.Equal(t, contracts.SignalS1, trades[0].SignalType)
}

func TestBacktestHandler_ListRuns(t *testing.T) {
	runs := &fakeRuns{summary: []data.RunSummary{
		{ID: "run-2", Status: contracts.RunCompleted},
		{ID: "run-1", Status: contracts.RunFailed},
	}}
	h := NewBacktestHandler(&fakeStarter{}, runs, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs?limit=10", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, runs.gotLimit)

	var listed []data.RunSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "run-2", listed[0].ID)
}

func TestBacktestHandler_ListRunsRejectsBadLimit(t *testing.T) {
	h := NewBacktestHandler(&fakeStarter{}, &fakeRuns{}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs?limit=abc", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
