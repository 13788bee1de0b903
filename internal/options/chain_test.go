package options

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

func TestStrikeLadder(t *testing.T) {
	ladder := StrikeLadder(25063.95, 5)

	assert.Equal(t, []int{24950, 25000, 25050, 25100, 25150}, ladder)
}

func TestStrikeLadder_EvenCountWidens(t *testing.T) {
	ladder := StrikeLadder(25000, 4)

	// Rounded up to 5 so the ATM strike stays centered
	require.Len(t, ladder, 5)
	assert.Equal(t, 25000, ladder[2])
}

func TestStrikeLadder_DefaultCount(t *testing.T) {
	assert.Len(t, StrikeLadder(25000, 0), 21)
}

func TestMarginRequired(t *testing.T) {
	// Short ATM call: 15% of notional
	margin := MarginRequired(25000, 25000, contracts.OptionCall, -75)
	assert.InDelta(t, 75*25000*0.15, margin, 1e-9)

	// Short far OTM call gets the discount
	otm := MarginRequired(25000, 26500, contracts.OptionCall, -75)
	assert.InDelta(t, 75*25000*0.15*0.8, otm, 1e-9)

	// Short far OTM put mirrors
	otmPut := MarginRequired(25000, 23500, contracts.OptionPut, -75)
	assert.InDelta(t, 75*25000*0.15*0.8, otmPut, 1e-9)

	// Long legs only pay premium
	assert.Equal(t, 0.0, MarginRequired(25000, 25000, contracts.OptionPut, 75))
}

func TestOptionChainAt(t *testing.T) {
	svc := NewPricingService(fakeQuotes{}, fakeSpots{spot: 25000}, nil, logger.NewNop())

	ts := time.Date(2025, 7, 14, 10, 15, 0, 0, time.UTC)
	expiry := time.Date(2025, 7, 17, 15, 30, 0, 0, time.UTC)

	chain, err := svc.OptionChainAt(context.Background(), ts, expiry, []int{24950, 25000, 25050})
	require.NoError(t, err)
	require.Len(t, chain, 3)

	for strike, entry := range chain {
		assert.Greater(t, entry.Call, 0.0, "strike %d", strike)
		assert.Greater(t, entry.Put, 0.0, "strike %d", strike)
		assert.InDelta(t, entry.Call+entry.Put, entry.Total, 1e-9)
	}

	// Lower strikes carry more call premium, higher strikes more put premium
	assert.Greater(t, chain[24950].Call, chain[25050].Call)
	assert.Greater(t, chain[25050].Put, chain[24950].Put)
}

func TestOptionChainAt_UnpriceableStrikeIsZero(t *testing.T) {
	svc := NewPricingService(fakeQuotes{}, fakeSpots{err: contracts.ErrDataUnavailable}, nil, logger.NewNop())

	chain, err := svc.OptionChainAt(context.Background(), time.Now(), time.Now().Add(48*time.Hour), []int{25000})
	require.NoError(t, err)
	assert.Equal(t, ChainEntry{}, chain[25000])
}
