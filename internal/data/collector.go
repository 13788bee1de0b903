package data

import (
	"context"
	"fmt"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/internal/weekly"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// MarketFeed is the vendor surface the collector pulls from
type MarketFeed interface {
	IndexBars(ctx context.Context, from, to time.Time) ([]contracts.Bar, error)
	OptionQuotes(ctx context.Context, from, to time.Time, strike int, optionType contracts.OptionType, expiry time.Time) ([]contracts.OptionQuote, error)
}

// Zone math needs the week before the requested range
const warmupBuffer = 7 * 24 * time.Hour

// Strike coverage around the observed index range, in points
const strikePadding = 500

// Vendor fetches are chunked to stay under response size limits
const fetchChunk = 30 * 24 * time.Hour

// Collector fills the local store with whatever index bars and option
// quotes a backtest range needs. Fetches are idempotent upserts, so
// overlapping ranges are safe.
type Collector struct {
	feed   MarketFeed
	bars   *BarRepository
	quotes *QuoteRepository
	logger *logger.Logger
}

// NewCollector creates a data collector
func NewCollector(feed MarketFeed, bars *BarRepository, quotes *QuoteRepository, log *logger.Logger) *Collector {
	return &Collector{
		feed:   feed,
		bars:   bars,
		quotes: quotes,
		logger: log,
	}
}

// EnsureBacktestData makes sure index bars and option quotes exist for
// [from, to], including the warm-up week before from.
func (c *Collector) EnsureBacktestData(ctx context.Context, from, to time.Time) error {
	bufferedFrom := from.Add(-warmupBuffer)

	if err := c.EnsureIndexData(ctx, bufferedFrom, to); err != nil {
		return fmt.Errorf("ensure index data: %w", err)
	}

	bars, err := c.bars.PriceBars(ctx, bufferedFrom, to)
	if err != nil {
		return fmt.Errorf("load bars for strike range: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: vendor returned no index bars for %s..%s",
			contracts.ErrDataUnavailable, bufferedFrom.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	strikes := strikeRange(bars)
	expiries := expiriesBetween(from, to)

	return c.EnsureOptionData(ctx, from, to, strikes, expiries)
}

// EnsureIndexData tops up stored index bars through to. Existing
// coverage is extended, never re-fetched.
func (c *Collector) EnsureIndexData(ctx context.Context, from, to time.Time) error {
	count, err := c.bars.CountInRange(ctx, from, to)
	if err != nil {
		return err
	}

	fetchFrom := from
	if count > 0 {
		latest, err := c.bars.LatestTimestamp(ctx)
		if err != nil {
			return err
		}
		if !latest.Before(to) {
			return nil
		}
		if latest.After(from) {
			fetchFrom = latest
		}
	}

	added := 0
	for chunkStart := fetchFrom; chunkStart.Before(to); chunkStart = chunkStart.Add(fetchChunk) {
		chunkEnd := chunkStart.Add(fetchChunk)
		if chunkEnd.After(to) {
			chunkEnd = to
		}

		bars, err := c.feed.IndexBars(ctx, chunkStart, chunkEnd)
		if err != nil {
			return fmt.Errorf("fetch index bars %s..%s: %w",
				chunkStart.Format("2006-01-02"), chunkEnd.Format("2006-01-02"), err)
		}

		if err := c.bars.SaveBatch(ctx, bars); err != nil {
			return err
		}
		added += len(bars)
	}

	if added > 0 {
		c.logger.WithFields(map[string]interface{}{
			"bars": added,
			"from": fetchFrom.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		}).Info("Index bars collected")
	}
	return nil
}

// EnsureOptionData fetches quotes for every strike and expiry that has
// no stored coverage yet.
func (c *Collector) EnsureOptionData(ctx context.Context, from, to time.Time, strikes []int, expiries []time.Time) error {
	for _, expiry := range expiries {
		count, err := c.quotes.CountForExpiry(ctx, expiry)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		end := expiry
		if end.After(to) {
			end = to
		}

		added := 0
		for _, strike := range strikes {
			for _, optionType := range []contracts.OptionType{contracts.OptionCall, contracts.OptionPut} {
				quotes, err := c.feed.OptionQuotes(ctx, from, end, strike, optionType, expiry)
				if err != nil {
					// One missing contract never blocks the rest
					c.logger.WithFields(map[string]interface{}{
						"strike": strike,
						"type":   string(optionType),
						"expiry": expiry.Format("2006-01-02"),
						"error":  err.Error(),
					}).Warn("Option fetch failed, skipping contract")
					continue
				}

				if err := c.quotes.SaveBatch(ctx, quotes); err != nil {
					return err
				}
				added += len(quotes)
			}
		}

		c.logger.WithFields(map[string]interface{}{
			"expiry": expiry.Format("2006-01-02"),
			"quotes": added,
		}).Info("Option quotes collected")
	}
	return nil
}

// strikeRange derives the strikes worth fetching from the index range
// observed in the bars, padded on both sides.
func strikeRange(bars []contracts.Bar) []int {
	low, high := bars[0].Low, bars[0].High
	for _, bar := range bars[1:] {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}

	first := contracts.ATMStrike(low, contracts.DefaultStrikeInterval) - strikePadding
	last := contracts.ATMStrike(high, contracts.DefaultStrikeInterval) + strikePadding

	var strikes []int
	for s := first; s <= last; s += contracts.DefaultStrikeInterval {
		strikes = append(strikes, s)
	}
	return strikes
}

// expiriesBetween lists the weekly expiries covering [from, to]
func expiriesBetween(from, to time.Time) []time.Time {
	var expiries []time.Time
	for cursor := from; !cursor.After(to); {
		expiry := weekly.NextExpiry(cursor)
		expiries = append(expiries, expiry)
		cursor = expiry.Add(24 * time.Hour)
	}
	return expiries
}
