package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/naveenvino/breezepython/internal/options"
	"github.com/naveenvino/breezepython/internal/weekly"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// ChainPricer snapshots an option chain from stored or modeled prices
type ChainPricer interface {
	OptionChainAt(ctx context.Context, timestamp time.Time, expiry time.Time, strikes []int) (map[int]options.ChainEntry, error)
}

// SpotReader resolves the index level near a timestamp
type SpotReader interface {
	SpotCloseNear(ctx context.Context, timestamp time.Time) (float64, error)
}

// OptionsHandler handles option data API endpoints
type OptionsHandler struct {
	pricer ChainPricer
	spots  SpotReader
	logger *logger.Logger
}

// NewOptionsHandler creates a new options handler
func NewOptionsHandler(pricer ChainPricer, spots SpotReader, log *logger.Logger) *OptionsHandler {
	return &OptionsHandler{
		pricer: pricer,
		spots:  spots,
		logger: log,
	}
}

// ChainResponse is the chain snapshot payload
type ChainResponse struct {
	Timestamp time.Time                 `json:"timestamp"`
	Expiry    time.Time                 `json:"expiry"`
	Spot      float64                   `json:"spot"`
	Chain     map[int]options.ChainEntry `json:"chain"`
}

// GetChain snapshots the option chain around the index level
// GET /api/options/chain?at=2025-01-06T10:15:00Z&strikes=21
func (h *OptionsHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "at must be an RFC3339 timestamp")
		return
	}

	count := 21
	if raw := r.URL.Query().Get("strikes"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count <= 0 {
			respondError(w, http.StatusBadRequest, "strikes must be a positive integer")
			return
		}
	}

	spot, err := h.spots.SpotCloseNear(r.Context(), at)
	if err != nil {
		respondError(w, http.StatusNotFound, "No index level near the requested time")
		return
	}

	expiry := weekly.NextExpiry(at)
	strikes := options.StrikeLadder(spot, count)

	chain, err := h.pricer.OptionChainAt(r.Context(), at, expiry, strikes)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build option chain")
		respondError(w, http.StatusInternalServerError, "Failed to build option chain")
		return
	}

	respondJSON(w, http.StatusOK, ChainResponse{
		Timestamp: at,
		Expiry:    expiry,
		Spot:      spot,
		Chain:     chain,
	})
}
