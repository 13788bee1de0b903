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

// BarRepository stores and serves hourly index bars
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// PriceBars returns the hourly bars in [from, to], oldest first
func (r *BarRepository) PriceBars(ctx context.Context, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT timestamp, open, high, low, close
		FROM index_bars
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query index bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SpotCloseNear returns the close of the bar nearest to ts within a
// 30 minute window on either side.
func (r *BarRepository) SpotCloseNear(ctx context.Context, ts time.Time) (float64, error) {
	query := `
		SELECT close
		FROM index_bars
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY abs(extract(epoch FROM timestamp - $3::timestamptz))
		LIMIT 1
	`

	window := 30 * time.Minute
	var close float64
	err := r.pool.QueryRow(ctx, query, ts.Add(-window), ts.Add(window), ts).Scan(&close)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: no index bar near %s", contracts.ErrDataUnavailable, ts.Format(time.RFC3339))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query spot close: %w", err)
	}
	return close, nil
}

// LatestTimestamp returns the newest stored bar timestamp, or the zero
// time when the table is empty.
func (r *BarRepository) LatestTimestamp(ctx context.Context) (time.Time, error) {
	query := `SELECT timestamp FROM index_bars ORDER BY timestamp DESC LIMIT 1`

	var ts time.Time
	err := r.pool.QueryRow(ctx, query).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest bar: %w", err)
	}
	return ts, nil
}

// CountInRange reports how many bars are stored in [from, to]
func (r *BarRepository) CountInRange(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT count(*) FROM index_bars WHERE timestamp BETWEEN $1 AND $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}

// SaveBatch upserts a batch of bars keyed by timestamp
func (r *BarRepository) SaveBatch(ctx context.Context, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO index_bars (timestamp, open, high, low, close)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Timestamp, b.Open, b.High, b.Low, b.Close)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save bar batch: %w", err)
		}
	}
	return nil
}
