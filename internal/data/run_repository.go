package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// ErrRunNotFound is returned when a run id does not exist
var ErrRunNotFound = errors.New("backtest run not found")

// RunRepository persists backtest runs with their trades, positions
// and daily results.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new backtest run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// RunSummary is the list view of a stored run
type RunSummary struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    contracts.RunStatus `json:"status"`
	FromDate  time.Time           `json:"from_date"`
	ToDate    time.Time           `json:"to_date"`
	CreatedAt time.Time           `json:"created_at"`
}

// CreateRun inserts a PENDING run row and returns its id
func (r *RunRepository) CreateRun(ctx context.Context, params contracts.BacktestParameters) (string, error) {
	id := uuid.NewString()
	name := fmt.Sprintf("Backtest %s to %s",
		params.FromDate.Format("2006-01-02"), params.ToDate.Format("2006-01-02"))

	query := `
		INSERT INTO backtest_runs (
			id, name, status, from_date, to_date,
			initial_capital, lot_size, lots_to_trade, signals_to_test,
			use_hedging, hedge_offset, commission_per_lot, slippage_percent,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
	`

	_, err := r.pool.Exec(ctx, query,
		id, name, string(contracts.RunPending), params.FromDate, params.ToDate,
		params.InitialCapital, params.LotSize, params.LotsToTrade,
		joinSignals(params.SignalsToTest),
		params.UseHedging, params.HedgeOffset, params.CommissionPerLot, params.SlippagePercent,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create backtest run: %w", err)
	}
	return id, nil
}

// UpdateStatus advances the run lifecycle. The error message is only
// stored for FAILED.
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status contracts.RunStatus, errorMessage string) error {
	query := `
		UPDATE backtest_runs
		SET status = $2,
		    error_message = NULLIF($3, ''),
		    started_at = CASE WHEN $2 = 'RUNNING' THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $2 IN ('COMPLETED', 'FAILED') THEN now() ELSE completed_at END
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, string(status), errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SaveResult writes the final metrics plus all trades, positions and
// daily results in one transaction.
func (r *RunRepository) SaveResult(ctx context.Context, id string, result *contracts.BacktestResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE backtest_runs
		SET final_capital = $2,
		    total_trades = $3,
		    winning_trades = $4,
		    losing_trades = $5,
		    win_rate = $6,
		    total_pnl = $7,
		    total_return_percent = $8,
		    max_drawdown = $9,
		    max_drawdown_percent = $10
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, updateQuery, id,
		result.FinalCapital, result.TotalTrades, result.WinningTrades, result.LosingTrades,
		result.WinRate, result.TotalPnL, result.TotalReturnPercent,
		result.MaxDrawdown, result.MaxDrawdownPercent,
	)
	if err != nil {
		return fmt.Errorf("failed to update run results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	for _, trade := range result.Trades {
		if err := insertTrade(ctx, tx, id, trade); err != nil {
			return err
		}
	}

	for _, daily := range result.DailyResults {
		if err := insertDailyResult(ctx, tx, id, daily); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertTrade(ctx context.Context, tx pgx.Tx, runID string, trade *contracts.Trade) error {
	query := `
		INSERT INTO backtest_trades (
			id, run_id, week_start_date, signal_type, direction,
			entry_time, exit_time, index_price_at_entry, index_price_at_exit,
			stop_loss_price, outcome, exit_reason, total_pnl,
			resistance_zone_top, resistance_zone_bottom,
			support_zone_top, support_zone_bottom,
			bias_direction, bias_strength, weekly_max_high, weekly_min_low
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := tx.Exec(ctx, query,
		trade.ID, runID, trade.WeekStartDate, string(trade.SignalType), string(trade.Direction),
		trade.EntryTime, trade.ExitTime, trade.IndexPriceEntry, trade.IndexPriceExit,
		trade.StopLossPrice, string(trade.Outcome), trade.ExitReason, trade.TotalPnL,
		trade.ResistanceZoneTop, trade.ResistanceZoneBottom,
		trade.SupportZoneTop, trade.SupportZoneBottom,
		string(trade.BiasDirection), trade.BiasStrength, trade.WeeklyMaxHigh, trade.WeeklyMinLow,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
	}

	posQuery := `
		INSERT INTO backtest_positions (
			trade_id, position_type, option_type, strike_price, expiry_date,
			entry_time, entry_price, exit_time, exit_price, quantity,
			gross_pnl, commission, net_pnl
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, pos := range trade.Positions {
		_, err := tx.Exec(ctx, posQuery,
			trade.ID, string(pos.PositionType), string(pos.OptionType), pos.StrikePrice, pos.ExpiryDate,
			pos.EntryTime, pos.EntryPrice, pos.ExitTime, pos.ExitPrice, pos.Quantity,
			pos.GrossPnL, pos.Commission, pos.NetPnL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position for trade %s: %w", trade.ID, err)
		}
	}
	return nil
}

func insertDailyResult(ctx context.Context, tx pgx.Tx, runID string, daily *contracts.DailyResult) error {
	query := `
		INSERT INTO backtest_daily_results (
			run_id, date, starting_capital, ending_capital,
			daily_pnl, daily_return_percent,
			trades_opened, trades_closed, open_positions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		runID, daily.Date, daily.StartingCapital, daily.EndingCapital,
		daily.DailyPnL, daily.DailyReturnPercent,
		daily.TradesOpened, daily.TradesClosed, daily.OpenPositions,
	)
	if err != nil {
		return fmt.Errorf("failed to insert daily result: %w", err)
	}
	return nil
}

// GetRun returns a run's metrics without its trade detail
func (r *RunRepository) GetRun(ctx context.Context, id string) (*contracts.BacktestResult, error) {
	query := `
		SELECT id, status, from_date, to_date,
		       initial_capital,
		       coalesce(final_capital, initial_capital),
		       coalesce(total_trades, 0), coalesce(winning_trades, 0), coalesce(losing_trades, 0),
		       coalesce(win_rate, 0), coalesce(total_pnl, 0), coalesce(total_return_percent, 0),
		       coalesce(max_drawdown, 0), coalesce(max_drawdown_percent, 0),
		       coalesce(error_message, '')
		FROM backtest_runs
		WHERE id = $1
	`

	var result contracts.BacktestResult
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&result.RunID, &status, &result.FromDate, &result.ToDate,
		&result.InitialCapital, &result.FinalCapital,
		&result.TotalTrades, &result.WinningTrades, &result.LosingTrades,
		&result.WinRate, &result.TotalPnL, &result.TotalReturnPercent,
		&result.MaxDrawdown, &result.MaxDrawdownPercent,
		&result.ErrorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	result.Status = contracts.RunStatus(status)
	return &result, nil
}

// GetTrades returns the run's trades with their positions, entry order
func (r *RunRepository) GetTrades(ctx context.Context, runID string) ([]*contracts.Trade, error) {
	query := `
		SELECT id, week_start_date, signal_type, direction,
		       entry_time, exit_time, index_price_at_entry, index_price_at_exit,
		       stop_loss_price, outcome, exit_reason, total_pnl,
		       resistance_zone_top, resistance_zone_bottom,
		       support_zone_top, support_zone_bottom,
		       bias_direction, bias_strength, weekly_max_high, weekly_min_low
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY entry_time ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*contracts.Trade
	byID := make(map[string]*contracts.Trade)

	for rows.Next() {
		var t contracts.Trade
		var signalType, direction, outcome, biasDirection string

		err := rows.Scan(
			&t.ID, &t.WeekStartDate, &signalType, &direction,
			&t.EntryTime, &t.ExitTime, &t.IndexPriceEntry, &t.IndexPriceExit,
			&t.StopLossPrice, &outcome, &t.ExitReason, &t.TotalPnL,
			&t.ResistanceZoneTop, &t.ResistanceZoneBottom,
			&t.SupportZoneTop, &t.SupportZoneBottom,
			&biasDirection, &t.BiasStrength, &t.WeeklyMaxHigh, &t.WeeklyMinLow,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		t.SignalType = contracts.SignalType(signalType)
		t.Direction = contracts.TradeDirection(direction)
		t.Outcome = contracts.TradeOutcome(outcome)
		t.BiasDirection = contracts.BiasDirection(biasDirection)

		trades = append(trades, &t)
		byID[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachPositions(ctx, runID, byID); err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *RunRepository) attachPositions(ctx context.Context, runID string, byID map[string]*contracts.Trade) error {
	query := `
		SELECT p.trade_id, p.position_type, p.option_type, p.strike_price, p.expiry_date,
		       p.entry_time, p.entry_price, p.exit_time, p.exit_price, p.quantity,
		       p.gross_pnl, p.commission, p.net_pnl
		FROM backtest_positions p
		JOIN backtest_trades t ON t.id = p.trade_id
		WHERE t.run_id = $1
		ORDER BY p.trade_id, p.position_type
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tradeID, positionType, optionType string
		var p contracts.Position

		err := rows.Scan(
			&tradeID, &positionType, &optionType, &p.StrikePrice, &p.ExpiryDate,
			&p.EntryTime, &p.EntryPrice, &p.ExitTime, &p.ExitPrice, &p.Quantity,
			&p.GrossPnL, &p.Commission, &p.NetPnL,
		)
		if err != nil {
			return fmt.Errorf("failed to scan position: %w", err)
		}

		p.PositionType = contracts.PositionType(positionType)
		p.OptionType = contracts.OptionType(optionType)

		if trade, ok := byID[tradeID]; ok {
			trade.Positions = append(trade.Positions, &p)
		}
	}
	return rows.Err()
}

// GetDailyResults returns the run's daily capital snapshots in order
func (r *RunRepository) GetDailyResults(ctx context.Context, runID string) ([]*contracts.DailyResult, error) {
	query := `
		SELECT date, starting_capital, ending_capital,
		       daily_pnl, daily_return_percent,
		       trades_opened, trades_closed, open_positions
		FROM backtest_daily_results
		WHERE run_id = $1
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily results: %w", err)
	}
	defer rows.Close()

	var results []*contracts.DailyResult
	for rows.Next() {
		var d contracts.DailyResult
		err := rows.Scan(
			&d.Date, &d.StartingCapital, &d.EndingCapital,
			&d.DailyPnL, &d.DailyReturnPercent,
			&d.TradesOpened, &d.TradesClosed, &d.OpenPositions,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily result: %w", err)
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

// ListRuns returns the most recent runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, status, from_date, to_date, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var status string
		if err := rows.Scan(&s.ID, &s.Name, &status, &s.FromDate, &s.ToDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		s.Status = contracts.RunStatus(status)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func joinSignals(types []contracts.SignalType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
