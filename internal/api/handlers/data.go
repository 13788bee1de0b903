package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/naveenvino/breezepython/pkg/logger"
)

// MarketCollector tops up the local market data store
type MarketCollector interface {
	EnsureIndexData(ctx context.Context, from, to time.Time) error
	EnsureBacktestData(ctx context.Context, from, to time.Time) error
}

// DataHandler handles market data API endpoints
type DataHandler struct {
	collector MarketCollector
	logger    *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(collector MarketCollector, log *logger.Logger) *DataHandler {
	return &DataHandler{
		collector: collector,
		logger:    log,
	}
}

// CollectRequest selects what to collect for a date range
type CollectRequest struct {
	Type     string `json:"type"` // all, index
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// CollectResponse reports collection status
type CollectResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Collect fetches market data from the vendor into the local store
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, err := time.Parse(dateLayout, req.FromDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "from_date must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, req.ToDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "to_date must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to_date is before from_date")
		return
	}

	ctx := r.Context()

	switch req.Type {
	case "index":
		if err := h.collector.EnsureIndexData(ctx, from, to); err != nil {
			h.logger.WithError(err).Error("Index collection failed")
			respondError(w, http.StatusInternalServerError, "Index collection failed")
			return
		}

		respondJSON(w, http.StatusOK, CollectResponse{
			Status:  "success",
			Message: "Index bars collected",
			Type:    req.Type,
		})

	case "all", "":
		if err := h.collector.EnsureBacktestData(ctx, from, to); err != nil {
			h.logger.WithError(err).Error("Data collection failed")
			respondError(w, http.StatusInternalServerError, "Data collection failed")
			return
		}

		respondJSON(w, http.StatusOK, CollectResponse{
			Status:  "success",
			Message: "Index bars and option quotes collected",
			Type:    "all",
		})

	default:
		respondError(w, http.StatusBadRequest, "Invalid collection type (valid: all, index)")
	}
}
