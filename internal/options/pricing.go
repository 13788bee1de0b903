package options

import (
	"context"
	"fmt"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
	"github.com/naveenvino/breezepython/pkg/redis"
)

// QuoteSource looks up a stored option quote near a timestamp.
// A nil quote with a nil error means no data exists for that contract.
type QuoteSource interface {
	OptionQuoteAt(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (*contracts.OptionQuote, error)
}

// SpotSource resolves the index level near a timestamp, used when a
// model price has to stand in for a missing quote.
type SpotSource interface {
	SpotCloseNear(ctx context.Context, timestamp time.Time) (float64, error)
}

// Historical prices never change, so cache entries can live long
const priceCacheTTL = 24 * time.Hour

// PricingService resolves option prices for the simulation: stored
// quotes first, then a Black-Scholes estimate from the index level.
type PricingService struct {
	quotes QuoteSource
	spots  SpotSource
	cache  *redis.Cache
	logger *logger.Logger
}

// NewPricingService creates a pricing service. cache may be nil.
func NewPricingService(quotes QuoteSource, spots SpotSource, cache *redis.Cache, log *logger.Logger) *PricingService {
	return &PricingService{
		quotes: quotes,
		spots:  spots,
		cache:  cache,
		logger: log,
	}
}

// OptionPriceAt returns the price of the given contract at timestamp.
// Stored quotes win; otherwise the price is estimated, with intrinsic
// value at or past expiry. Returns ErrPricingUnavailable when neither a
// quote nor an index level exists.
func (s *PricingService) OptionPriceAt(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (float64, error) {
	key := priceCacheKey(timestamp, strike, optionType, expiry)

	if s.cache != nil {
		var cached float64
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	price, err := s.resolve(ctx, timestamp, strike, optionType, expiry)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, price, priceCacheTTL); err != nil {
			s.logger.WithError(err).Debug("Option price cache write failed")
		}
	}

	return price, nil
}

func (s *PricingService) resolve(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (float64, error) {
	quote, err := s.quotes.OptionQuoteAt(ctx, timestamp, strike, optionType, expiry)
	if err != nil {
		return 0, fmt.Errorf("option quote lookup: %w", err)
	}

	if quote != nil {
		if mid := quote.Mid(); mid > 0 {
			return mid, nil
		}
	}

	return s.estimate(ctx, timestamp, strike, optionType, expiry)
}

// estimate prices the contract from the index level when no quote exists
func (s *PricingService) estimate(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (float64, error) {
	spot, err := s.spots.SpotCloseNear(ctx, timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: no index level at %s", contracts.ErrPricingUnavailable, timestamp.Format(time.RFC3339))
	}

	T := YearsToExpiry(timestamp, expiry)
	if T <= 0 {
		return Intrinsic(optionType, spot, strike), nil
	}

	iv := EstimateIV(spot, strike, optionType)
	price := BlackScholes(spot, strike, T, RiskFreeRate, iv, optionType)

	s.logger.WithFields(map[string]interface{}{
		"timestamp": timestamp,
		"strike":    strike,
		"type":      string(optionType),
		"iv":        iv,
		"price":     price,
	}).Debug("Estimated option price")

	return price, nil
}

func priceCacheKey(timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) string {
	return fmt.Sprintf("optprice:%d:%d:%s:%s",
		timestamp.Unix(), strike, optionType, expiry.Format("20060102"))
}
