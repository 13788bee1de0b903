package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/internal/options"
	"github.com/naveenvino/breezepython/internal/signals"
	"github.com/naveenvino/breezepython/internal/weekly"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// BarSource supplies the ordered hourly index bars driving the simulation
type BarSource interface {
	PriceBars(ctx context.Context, from, to time.Time) ([]contracts.Bar, error)
}

// OptionPricer resolves option prices for entries and settlements
type OptionPricer interface {
	OptionPriceAt(ctx context.Context, timestamp time.Time, strike int, optionType contracts.OptionType, expiry time.Time) (float64, error)
}

// Engine runs the weekly options simulation over historical bars.
// It is stateless across runs; each Run builds fresh per-run state.
type Engine struct {
	bars   BarSource
	pricer OptionPricer
	logger *logger.Logger
}

// NewEngine creates a backtest engine
func NewEngine(bars BarSource, pricer OptionPricer, log *logger.Logger) *Engine {
	return &Engine{
		bars:   bars,
		pricer: pricer,
		logger: log,
	}
}

// runState carries everything mutated bar-by-bar. The loop owns it
// exclusively; nothing here is shared.
type runState struct {
	capital    decimal.Decimal
	openTrades []*contracts.Trade
	allTrades  []*contracts.Trade
	daily      []*contracts.DailyResult

	currentDay        time.Time
	dayStartCapital   decimal.Decimal
	tradesOpenedToday int
	tradesClosedToday int
}

// Run executes the simulation and returns the aggregated result.
// Bars are processed strictly in order; per-bar data gaps degrade
// (skip or abandon) instead of failing the run.
func (e *Engine) Run(ctx context.Context, params contracts.BacktestParameters) (*contracts.BacktestResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	startedAt := time.Now()

	// Fetch one extra week so the first in-range bars have a previous
	// week to derive zones from.
	history, err := e.bars.PriceBars(ctx, params.FromDate.AddDate(0, 0, -7), params.ToDate)
	if err != nil {
		return nil, fmt.Errorf("loading price bars: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no index bars between %s and %s",
			contracts.ErrDataUnavailable,
			params.FromDate.Format("2006-01-02"), params.ToDate.Format("2006-01-02"))
	}

	e.logger.WithFields(map[string]interface{}{
		"from":    params.FromDate.Format("2006-01-02"),
		"to":      params.ToDate.Format("2006-01-02"),
		"bars":    len(history),
		"signals": params.SignalsToTest,
	}).Info("Backtest started")

	manager := weekly.NewManager(e.logger)
	evaluator := signals.NewEvaluator(e.logger)
	requested := signalSet(params.SignalsToTest)

	state := &runState{
		capital:         params.InitialCapital,
		dayStartCapital: params.InitialCapital,
	}

	var lastBar *contracts.Bar

	for i, bar := range history {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !weekly.IsMarketHours(bar.Timestamp) {
			continue
		}
		if bar.Timestamp.Before(params.FromDate) {
			continue
		}

		e.rollDay(state, bar.Timestamp)
		current := bar
		lastBar = &current

		prevWeek := weekly.PreviousWeekBars(bar.Timestamp, history[:i])
		if len(prevWeek) == 0 {
			// Warm-up: no zones to evaluate against yet
			continue
		}

		wctx := manager.UpdateContext(bar, prevWeek)

		e.closeExpired(ctx, state, bar, params)
		e.closeStopped(ctx, state, bar, params)

		if len(state.openTrades) == 0 && !wctx.SignalTriggeredThisWeek {
			signal := evaluator.EvaluateAll(bar, wctx)
			if signal.IsTriggered && requested[signal.SignalType] {
				e.openTrade(ctx, state, signal, bar, wctx, params)
			}
		}
	}

	if lastBar == nil {
		return nil, fmt.Errorf("%w: no bars inside market hours", contracts.ErrDataUnavailable)
	}

	// Force-close whatever is still open, then flush the final day so
	// the trajectory includes the settlement.
	for _, trade := range state.openTrades {
		pnl := e.settleTrade(ctx, trade, lastBar.Timestamp, lastBar.Close,
			contracts.OutcomeExpired, "Backtest ended", params)
		state.capital = state.capital.Add(pnl)
		state.tradesClosedToday++
	}
	state.openTrades = nil
	e.flushDay(state)

	result := e.buildResult(params, state, startedAt)

	e.logger.WithFields(map[string]interface{}{
		"trades":        result.TotalTrades,
		"win_rate":      result.WinRate,
		"total_pnl":     result.TotalPnL,
		"final_capital": result.FinalCapital,
	}).Info("Backtest finished")

	return result, nil
}

// rollDay snapshots the previous day's capital when the date changes
func (e *Engine) rollDay(state *runState, ts time.Time) {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	if state.currentDay.Equal(day) {
		return
	}

	if !state.currentDay.IsZero() {
		e.flushDay(state)
	}

	state.currentDay = day
	state.dayStartCapital = state.capital
	state.tradesOpenedToday = 0
	state.tradesClosedToday = 0
}

func (e *Engine) flushDay(state *runState) {
	if state.currentDay.IsZero() {
		return
	}

	pnl := state.capital.Sub(state.dayStartCapital)
	returnPct := 0.0
	if state.dayStartCapital.IsPositive() {
		returnPct, _ = pnl.Div(state.dayStartCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	state.daily = append(state.daily, &contracts.DailyResult{
		Date:               state.currentDay,
		StartingCapital:    state.dayStartCapital,
		EndingCapital:      state.capital,
		DailyPnL:           pnl,
		DailyReturnPercent: returnPct,
		TradesOpened:       state.tradesOpenedToday,
		TradesClosed:       state.tradesClosedToday,
		OpenPositions:      len(state.openTrades),
	})
}

// closeExpired settles trades whose positions reached expiry
func (e *Engine) closeExpired(ctx context.Context, state *runState, bar contracts.Bar, params contracts.BacktestParameters) {
	remaining := state.openTrades[:0]
	for _, trade := range state.openTrades {
		expired := false
		for _, pos := range trade.Positions {
			if !bar.Timestamp.Before(pos.ExpiryDate) {
				expired = true
				break
			}
		}

		if !expired {
			remaining = append(remaining, trade)
			continue
		}

		pnl := e.settleTrade(ctx, trade, bar.Timestamp, bar.Close,
			contracts.OutcomeExpired, "Weekly expiry", params)
		state.capital = state.capital.Add(pnl)
		state.tradesClosedToday++
	}
	state.openTrades = remaining
}

// closeStopped settles trades whose stop loss the index breached.
// Bullish trades stop at or below the level, bearish at or above.
func (e *Engine) closeStopped(ctx context.Context, state *runState, bar contracts.Bar, params contracts.BacktestParameters) {
	remaining := state.openTrades[:0]
	for _, trade := range state.openTrades {
		hit := false
		if trade.Direction == contracts.DirectionBullish {
			hit = bar.Close <= trade.StopLossPrice
		} else {
			hit = bar.Close >= trade.StopLossPrice
		}

		if !hit {
			remaining = append(remaining, trade)
			continue
		}

		pnl := e.settleTrade(ctx, trade, bar.Timestamp, bar.Close,
			contracts.OutcomeStopped, "Stop loss hit", params)
		state.capital = state.capital.Add(pnl)
		state.tradesClosedToday++
	}
	state.openTrades = remaining
}

// openTrade resolves strikes and prices and books the positions. A
// failed main-leg price abandons the trade; a failed hedge price books
// the trade unhedged.
func (e *Engine) openTrade(ctx context.Context, state *runState, signal contracts.SignalResult, bar contracts.Bar, wctx *contracts.WeeklyContext, params contracts.BacktestParameters) {
	expiry := weekly.ExpiryForWeek(wctx.CurrentWeekStart)
	mainStrike, hedgeStrike := options.StrikesForSignal(bar.Close, signal.SignalType, params.HedgeOffset)

	mainPrice, err := e.pricer.OptionPriceAt(ctx, bar.Timestamp, mainStrike, signal.OptionType, expiry)
	if err != nil || mainPrice <= 0 {
		e.logger.WithFields(map[string]interface{}{
			"signal": string(signal.SignalType),
			"strike": mainStrike,
			"time":   bar.Timestamp,
		}).Warn("No main leg price, trade abandoned")
		return
	}

	qty := params.Quantity()
	trade := &contracts.Trade{
		ID:              uuid.NewString(),
		WeekStartDate:   wctx.CurrentWeekStart,
		SignalType:      signal.SignalType,
		Direction:       signal.Direction,
		EntryTime:       bar.Timestamp,
		IndexPriceEntry: bar.Close,
		StopLossPrice:   signal.StopLoss,
		Outcome:         contracts.OutcomeOpen,

		ResistanceZoneTop:    wctx.Zones.UpperZoneTop,
		ResistanceZoneBottom: wctx.Zones.UpperZoneBottom,
		SupportZoneTop:       wctx.Zones.LowerZoneTop,
		SupportZoneBottom:    wctx.Zones.LowerZoneBottom,
		BiasDirection:        wctx.Bias.Direction,
		BiasStrength:         wctx.Bias.Strength,
		WeeklyMaxHigh:        wctx.WeeklyMaxHigh,
		WeeklyMinLow:         wctx.WeeklyMinLow,
	}

	trade.Positions = append(trade.Positions, &contracts.Position{
		PositionType: contracts.PositionMain,
		OptionType:   signal.OptionType,
		StrikePrice:  mainStrike,
		ExpiryDate:   expiry,
		EntryTime:    bar.Timestamp,
		EntryPrice:   decimal.NewFromFloat(mainPrice),
		Quantity:     -qty,
	})

	if params.UseHedging {
		hedgePrice, err := e.pricer.OptionPriceAt(ctx, bar.Timestamp, hedgeStrike, signal.OptionType, expiry)
		if err != nil || hedgePrice <= 0 {
			e.logger.WithFields(map[string]interface{}{
				"signal": string(signal.SignalType),
				"strike": hedgeStrike,
			}).Warn("No hedge price, trade booked unhedged")
		} else {
			trade.Positions = append(trade.Positions, &contracts.Position{
				PositionType: contracts.PositionHedge,
				OptionType:   signal.OptionType,
				StrikePrice:  hedgeStrike,
				ExpiryDate:   expiry,
				EntryTime:    bar.Timestamp,
				EntryPrice:   decimal.NewFromFloat(hedgePrice),
				Quantity:     qty,
			})
		}
	}

	// Bought premium leaves capital on open. Sold premium is only
	// credited at settlement; margin is assumed sufficient.
	for _, pos := range trade.Positions {
		if pos.Quantity > 0 {
			cost := pos.EntryPrice.Mul(decimal.NewFromInt(int64(pos.Quantity)))
			state.capital = state.capital.Sub(cost)
		}
	}

	state.openTrades = append(state.openTrades, trade)
	state.allTrades = append(state.allTrades, trade)
	state.tradesOpenedToday++

	e.logger.WithFields(map[string]interface{}{
		"signal":      string(signal.SignalType),
		"direction":   string(signal.Direction),
		"main_strike": mainStrike,
		"entry":       bar.Close,
		"stop_loss":   signal.StopLoss,
		"hedged":      len(trade.Positions) > 1,
		"margin_est":  options.MarginRequired(bar.Close, mainStrike, signal.OptionType, -qty),
	}).Info("Trade opened")
}

// settleTrade closes the trade, settles every leg and returns the net P&L
func (e *Engine) settleTrade(ctx context.Context, trade *contracts.Trade, exitTime time.Time, indexPrice float64, outcome contracts.TradeOutcome, reason string, params contracts.BacktestParameters) decimal.Decimal {
	if err := trade.Close(exitTime, indexPrice, outcome, reason); err != nil {
		e.logger.WithError(err).Error("Trade close rejected")
		return decimal.Zero
	}

	for _, pos := range trade.Positions {
		exitPrice := e.exitPrice(ctx, pos, exitTime, indexPrice)
		pos.Settle(exitTime, exitPrice, params.LotSize, params.CommissionPerLot)
	}

	trade.FinalizePnL()

	e.logger.WithFields(map[string]interface{}{
		"signal":  string(trade.SignalType),
		"outcome": string(trade.Outcome),
		"reason":  reason,
		"pnl":     trade.TotalPnL,
	}).Info("Trade closed")

	return trade.TotalPnL
}

// exitPrice resolves a leg's settlement price: gateway first, intrinsic
// at or past expiry, else zero.
func (e *Engine) exitPrice(ctx context.Context, pos *contracts.Position, exitTime time.Time, indexPrice float64) decimal.Decimal {
	price, err := e.pricer.OptionPriceAt(ctx, exitTime, pos.StrikePrice, pos.OptionType, pos.ExpiryDate)
	if err == nil && price > 0 {
		return decimal.NewFromFloat(price)
	}

	if err != nil && !errors.Is(err, contracts.ErrPricingUnavailable) {
		e.logger.WithError(err).Debug("Exit price lookup failed")
	}

	if !exitTime.Before(pos.ExpiryDate) {
		return decimal.NewFromFloat(options.Intrinsic(pos.OptionType, indexPrice, pos.StrikePrice))
	}
	return decimal.Zero
}

func (e *Engine) buildResult(params contracts.BacktestParameters, state *runState, startedAt time.Time) *contracts.BacktestResult {
	wins, losses := 0, 0
	for _, trade := range state.allTrades {
		switch trade.Outcome {
		case contracts.OutcomeWin:
			wins++
		case contracts.OutcomeLoss:
			losses++
		}
	}

	total := len(state.allTrades)
	winRate := 0.0
	if total > 0 {
		winRate = float64(wins) / float64(total) * 100
	}

	totalPnL := state.capital.Sub(params.InitialCapital)
	returnPct, _ := totalPnL.Div(params.InitialCapital).Mul(decimal.NewFromInt(100)).Float64()

	maxDD, maxDDPct := maxDrawdown(params.InitialCapital, state.daily)

	return &contracts.BacktestResult{
		Status:             contracts.RunCompleted,
		FromDate:           params.FromDate,
		ToDate:             params.ToDate,
		StartedAt:          startedAt,
		Duration:           time.Since(startedAt),
		InitialCapital:     params.InitialCapital,
		FinalCapital:       state.capital,
		TotalTrades:        total,
		WinningTrades:      wins,
		LosingTrades:       losses,
		WinRate:            winRate,
		TotalPnL:           totalPnL,
		TotalReturnPercent: returnPct,
		MaxDrawdown:        maxDD,
		MaxDrawdownPercent: maxDDPct,
		Trades:             state.allTrades,
		DailyResults:       state.daily,
	}
}

// maxDrawdown walks the capital trajectory tracking the running peak
func maxDrawdown(initial decimal.Decimal, daily []*contracts.DailyResult) (decimal.Decimal, float64) {
	peak := initial
	maxDD := decimal.Zero
	maxDDPct := 0.0

	for _, day := range daily {
		value := day.EndingCapital
		if value.GreaterThan(peak) {
			peak = value
		}

		dd := peak.Sub(value)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				maxDDPct, _ = dd.Div(peak).Mul(decimal.NewFromInt(100)).Float64()
			}
		}
	}

	return maxDD, maxDDPct
}

func signalSet(types []contracts.SignalType) map[contracts.SignalType]bool {
	set := make(map[contracts.SignalType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
