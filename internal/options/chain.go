package options

import (
	"context"
	"errors"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// Short option margin as a fraction of notional, with a discount for
// OTM strikes. Broker margins vary; this is the reference approximation.
const (
	shortMarginFraction = 0.15
	otmMarginFactor     = 0.8
	otmMoneyness        = 0.95
)

// StrikeLadder returns count strikes centered on the ATM strike,
// rounded up to an odd count so the ladder stays symmetric.
func StrikeLadder(spot float64, count int) []int {
	if count <= 0 {
		count = 21
	}
	if count%2 == 0 {
		count++
	}

	atm := contracts.ATMStrike(spot, contracts.DefaultStrikeInterval)
	half := count / 2

	strikes := make([]int, 0, count)
	for i := -half; i <= half; i++ {
		strikes = append(strikes, atm+i*contracts.DefaultStrikeInterval)
	}
	return strikes
}

// MarginRequired approximates the margin a broker blocks for one leg.
// Short legs carry a fraction of notional, discounted when OTM; long
// legs only require their premium, accounted separately.
func MarginRequired(spot float64, strike int, optionType contracts.OptionType, quantity int) float64 {
	if quantity >= 0 {
		return 0
	}

	notional := float64(-quantity) * spot
	margin := notional * shortMarginFraction

	moneyness := spot / float64(strike)
	if optionType == contracts.OptionPut {
		moneyness = float64(strike) / spot
	}
	if moneyness < otmMoneyness {
		margin *= otmMarginFactor
	}
	return margin
}

// ChainEntry is one strike row of an option chain snapshot. Prices are
// zero when neither a quote nor an estimate was available.
type ChainEntry struct {
	Call  float64 `json:"ce"`
	Put   float64 `json:"pe"`
	Total float64 `json:"total"`
}

// OptionChainAt prices every strike's call and put at the timestamp.
// Unpriceable contracts appear as zero; other lookup errors abort.
func (s *PricingService) OptionChainAt(ctx context.Context, timestamp time.Time, expiry time.Time, strikes []int) (map[int]ChainEntry, error) {
	chain := make(map[int]ChainEntry, len(strikes))

	for _, strike := range strikes {
		call, err := s.chainPrice(ctx, timestamp, strike, contracts.OptionCall, expiry)
		if err != nil {
			return nil, err
		}
		put, err := s.chainPrice(ctx, timestamp, strike, contracts.OptionPut, expiry)
		if err != nil {
			return nil, err
		}

		chain[strike] = ChainEntry{
			Call:  call,
			Put:   put,
			Total: call + put,
		}
	}
	return chain, nil
}

func (s *PricingService) chainPrice(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (float64, error) {
	price, err := s.OptionPriceAt(ctx, timestamp, strike, optionType, expiry)
	if errors.Is(err, contracts.ErrPricingUnavailable) {
		return 0, nil
	}
	return price, err
}
