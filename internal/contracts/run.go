package contracts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus tracks the lifecycle of a backtest run record
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// BacktestParameters configures a single backtest run
type BacktestParameters struct {
	FromDate         time.Time       `json:"from_date"`
	ToDate           time.Time       `json:"to_date"`
	InitialCapital   decimal.Decimal `json:"initial_capital"`
	LotSize          int             `json:"lot_size"`
	LotsToTrade      int             `json:"lots_to_trade"`
	SignalsToTest    []SignalType    `json:"signals_to_test"`
	UseHedging       bool            `json:"use_hedging"`
	HedgeOffset      int             `json:"hedge_offset"`
	CommissionPerLot decimal.Decimal `json:"commission_per_lot"`
	SlippagePercent  float64         `json:"slippage_percent"`
}

// DefaultParameters returns the standard NIFTY weekly configuration
func DefaultParameters(from, to time.Time) BacktestParameters {
	return BacktestParameters{
		FromDate:         from,
		ToDate:           to,
		InitialCapital:   decimal.NewFromInt(500000),
		LotSize:          75,
		LotsToTrade:      1,
		SignalsToTest:    append([]SignalType(nil), AllSignalTypes...),
		UseHedging:       true,
		HedgeOffset:      200,
		CommissionPerLot: decimal.NewFromInt(40),
		SlippagePercent:  0.001,
	}
}

// Validate fails fast on invalid parameter combinations, before any
// simulation work starts.
func (p BacktestParameters) Validate() error {
	if p.ToDate.Before(p.FromDate) {
		return fmt.Errorf("to_date %s is before from_date %s",
			p.ToDate.Format("2006-01-02"), p.FromDate.Format("2006-01-02"))
	}
	if !p.InitialCapital.IsPositive() {
		return fmt.Errorf("initial_capital must be positive, got %s", p.InitialCapital)
	}
	if p.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive, got %d", p.LotSize)
	}
	if p.LotsToTrade <= 0 {
		return fmt.Errorf("lots_to_trade must be positive, got %d", p.LotsToTrade)
	}
	if len(p.SignalsToTest) == 0 {
		return fmt.Errorf("signals_to_test must not be empty")
	}
	if _, err := ParseSignalTypes(signalNames(p.SignalsToTest)); err != nil {
		return err
	}
	if p.CommissionPerLot.IsNegative() {
		return fmt.Errorf("commission_per_lot must not be negative, got %s", p.CommissionPerLot)
	}
	if p.HedgeOffset < 0 {
		return fmt.Errorf("hedge_offset must not be negative, got %d", p.HedgeOffset)
	}
	return nil
}

// Quantity returns the absolute contract quantity per leg
func (p BacktestParameters) Quantity() int {
	return p.LotSize * p.LotsToTrade
}

func signalNames(types []SignalType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// DailyResult is the capital snapshot taken at each day boundary
type DailyResult struct {
	Date               time.Time       `json:"date"`
	StartingCapital    decimal.Decimal `json:"starting_capital"`
	EndingCapital      decimal.Decimal `json:"ending_capital"`
	DailyPnL           decimal.Decimal `json:"daily_pnl"`
	DailyReturnPercent float64         `json:"daily_return_percent"`
	TradesOpened       int             `json:"trades_opened"`
	TradesClosed       int             `json:"trades_closed"`
	OpenPositions      int             `json:"open_positions"`
}

// BacktestResult aggregates everything a run produced
type BacktestResult struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
	StartedAt time.Time `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	InitialCapital     decimal.Decimal `json:"initial_capital"`
	FinalCapital       decimal.Decimal `json:"final_capital"`
	TotalTrades        int             `json:"total_trades"`
	WinningTrades      int             `json:"winning_trades"`
	LosingTrades       int             `json:"losing_trades"`
	WinRate            float64         `json:"win_rate"`
	TotalPnL           decimal.Decimal `json:"total_pnl"`
	TotalReturnPercent float64         `json:"total_return_percent"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPercent float64         `json:"max_drawdown_percent"`

	Trades       []*Trade       `json:"trades"`
	DailyResults []*DailyResult `json:"daily_results"`

	ErrorMessage string `json:"error_message,omitempty"`
}
