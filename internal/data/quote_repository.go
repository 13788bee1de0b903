package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// QuoteRepository stores and serves historical option quotes
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository creates a new option quote repository
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

// OptionQuoteAt returns the quote for a contract nearest to ts within
// the surrounding hour, or nil when none is stored.
func (r *QuoteRepository) OptionQuoteAt(ctx context.Context, ts time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (*contracts.OptionQuote, error) {
	query := `
		SELECT timestamp, strike_price, option_type, expiry, bid_price, ask_price, last_price, open_interest, volume
		FROM option_quotes
		WHERE strike_price = $1
		  AND option_type = $2
		  AND expiry = $3
		  AND timestamp BETWEEN $4 AND $5
		ORDER BY abs(extract(epoch FROM timestamp - $6::timestamptz))
		LIMIT 1
	`

	window := 30 * time.Minute
	var q contracts.OptionQuote
	err := r.pool.QueryRow(ctx, query,
		strike, string(optionType), expiry, ts.Add(-window), ts.Add(window), ts,
	).Scan(
		&q.Timestamp, &q.StrikePrice, &q.OptionType, &q.Expiry,
		&q.BidPrice, &q.AskPrice, &q.LastPrice, &q.OpenInterest, &q.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query option quote: %w", err)
	}
	return &q, nil
}

// CountForExpiry reports how many quotes exist for an expiry, used by
// the collector to decide whether a fetch is needed.
func (r *QuoteRepository) CountForExpiry(ctx context.Context, expiry time.Time) (int, error) {
	query := `SELECT count(*) FROM option_quotes WHERE expiry = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, expiry).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count option quotes: %w", err)
	}
	return count, nil
}

// SaveBatch upserts a batch of quotes keyed by contract and timestamp
func (r *QuoteRepository) SaveBatch(ctx context.Context, quotes []contracts.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	query := `
		INSERT INTO option_quotes (timestamp, strike_price, option_type, expiry, bid_price, ask_price, last_price, open_interest, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (timestamp, strike_price, option_type, expiry) DO UPDATE SET
			bid_price = EXCLUDED.bid_price,
			ask_price = EXCLUDED.ask_price,
			last_price = EXCLUDED.last_price,
			open_interest = EXCLUDED.open_interest,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(query,
			q.Timestamp, q.StrikePrice, string(q.OptionType), q.Expiry,
			q.BidPrice, q.AskPrice, q.LastPrice, q.OpenInterest, q.Volume,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range quotes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save quote batch: %w", err)
		}
	}
	return nil
}
