package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

type fakeBars struct {
	bars []contracts.Bar
	err  error
}

func (f fakeBars) PriceBars(context.Context, time.Time, time.Time) ([]contracts.Bar, error) {
	return f.bars, f.err
}

type fakePricer struct {
	priceAt func(ts time.Time, strike int, optionType contracts.OptionType) (float64, error)
}

func (f fakePricer) OptionPriceAt(_ context.Context, ts time.Time, strike int, optionType contracts.OptionType, _ time.Time) (float64, error) {
	return f.priceAt(ts, strike, optionType)
}

var (
	prevMonday  = time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	tradeMonday = time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(9*60+15+hour*60) * time.Minute)
}

// bearTrapWeek builds one previous week plus a trade week whose second
// bar fires the S1 bear trap (support bottom 25120, entry 25063.95).
func bearTrapWeek() []contracts.Bar {
	var bars []contracts.Bar

	// Previous week Monday establishes zones: high 25600, low 25120,
	// close 25400 (neutral bias).
	bars = append(bars,
		contracts.NewBar(at(prevMonday, 0), 25400, 25600, 25120, 25400),
	)

	// Trade week
	bars = append(bars,
		contracts.NewBar(at(tradeMonday, 0), 25151.10, 25160.00, 25041.90, 25119.80),
		contracts.NewBar(at(tradeMonday, 1), 25119.80, 25120.00, 25040.00, 25063.95),
		contracts.NewBar(at(tradeMonday, 2), 25063.95, 25110.00, 25060.00, 25100.00),
		contracts.NewBar(at(tradeMonday.AddDate(0, 0, 1), 0), 25100, 25160, 25090, 25150),
		contracts.NewBar(at(tradeMonday.AddDate(0, 0, 2), 0), 25150, 25210, 25140, 25200),
		contracts.NewBar(at(tradeMonday.AddDate(0, 0, 3), 0), 25200, 25220, 25090, 25100),
		// Friday bar sits past Thursday 15:30 expiry
		contracts.NewBar(at(tradeMonday.AddDate(0, 0, 4), 0), 25100, 25120, 25080, 25100),
	)

	return bars
}

func testParams() contracts.BacktestParameters {
	params := contracts.DefaultParameters(tradeMonday, tradeMonday.AddDate(0, 0, 5))
	params.UseHedging = false
	return params
}

// entryOnlyPricer quotes the entry and fails afterwards, forcing
// settlement onto the intrinsic path.
func entryOnlyPricer(entryTime time.Time, entryPrice float64) fakePricer {
	return fakePricer{priceAt: func(ts time.Time, _ int, _ contracts.OptionType) (float64, error) {
		if ts.Equal(entryTime) {
			return entryPrice, nil
		}
		return 0, contracts.ErrPricingUnavailable
	}}
}

func TestRun_BearTrapExpiresWorthless(t *testing.T) {
	entryTime := at(tradeMonday, 1)
	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, entryOnlyPricer(entryTime, 100), logger.NewNop())

	result, err := engine.Run(context.Background(), testParams())
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalTrades)
	trade := result.Trades[0]

	assert.Equal(t, contracts.SignalS1, trade.SignalType)
	assert.Equal(t, contracts.DirectionBullish, trade.Direction)
	assert.Equal(t, entryTime, trade.EntryTime)
	assert.InDelta(t, 25010.60, trade.StopLossPrice, 1e-9)
	assert.Equal(t, "Weekly expiry", trade.ExitReason)
	assert.Equal(t, contracts.OutcomeWin, trade.Outcome)

	// Sold PUT 25050 for 100, settled at intrinsic 0 (index 25100):
	// 75 x 100 = 7500 gross, 80 commission, 7420 net.
	require.Len(t, trade.Positions, 1)
	main := trade.Positions[0]
	assert.Equal(t, contracts.PositionMain, main.PositionType)
	assert.Equal(t, contracts.OptionPut, main.OptionType)
	assert.Equal(t, 25050, main.StrikePrice)
	assert.Equal(t, -75, main.Quantity)
	assert.True(t, main.NetPnL.Equal(decimal.NewFromInt(7420)), "net=%s", main.NetPnL)

	assert.True(t, result.TotalPnL.Equal(decimal.NewFromInt(7420)))
	assert.True(t, result.FinalCapital.Equal(decimal.NewFromInt(507420)))
	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 100.0, result.WinRate)
	assert.True(t, result.MaxDrawdown.IsZero())
}

func TestRun_FinalDaySnapshotIncludesSettlement(t *testing.T) {
	entryTime := at(tradeMonday, 1)
	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, entryOnlyPricer(entryTime, 100), logger.NewNop())

	result, err := engine.Run(context.Background(), testParams())
	require.NoError(t, err)

	// Mon..Fri of the trade week
	require.Len(t, result.DailyResults, 5)

	last := result.DailyResults[len(result.DailyResults)-1]
	assert.Equal(t, tradeMonday.AddDate(0, 0, 4), last.Date)
	assert.Equal(t, 1, last.TradesClosed)
	assert.True(t, last.EndingCapital.Equal(result.FinalCapital))

	monday := result.DailyResults[0]
	assert.Equal(t, 1, monday.TradesOpened)
	assert.Equal(t, 1, monday.OpenPositions)
}

func TestRun_StopLossClosesTrade(t *testing.T) {
	bars := bearTrapWeek()
	// Third Monday bar closes through the 25010.60 stop
	bars[3] = contracts.NewBar(at(tradeMonday, 2), 25063.95, 25070, 24990, 25000)

	entryTime := at(tradeMonday, 1)
	pricer := fakePricer{priceAt: func(ts time.Time, _ int, _ contracts.OptionType) (float64, error) {
		if ts.Equal(entryTime) {
			return 100, nil
		}
		return 150, nil // premium expanded against the seller
	}}

	engine := NewEngine(fakeBars{bars: bars}, pricer, logger.NewNop())
	result, err := engine.Run(context.Background(), testParams())
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalTrades)
	trade := result.Trades[0]

	assert.Equal(t, "Stop loss hit", trade.ExitReason)
	assert.Equal(t, contracts.OutcomeLoss, trade.Outcome)
	assert.Equal(t, at(tradeMonday, 2), trade.ExitTime)

	// 75 x (100 - 150) = -3750 gross, 80 commission
	assert.True(t, result.TotalPnL.Equal(decimal.NewFromInt(-3830)), "pnl=%s", result.TotalPnL)
	assert.Equal(t, 1, result.LosingTrades)
	assert.False(t, result.MaxDrawdown.IsZero())
}

func TestRun_HedgedTradeCapitalAccounting(t *testing.T) {
	entryTime := at(tradeMonday, 1)
	pricer := fakePricer{priceAt: func(ts time.Time, strike int, _ contracts.OptionType) (float64, error) {
		if !ts.Equal(entryTime) {
			return 0, contracts.ErrPricingUnavailable
		}
		if strike == 25050 {
			return 100, nil
		}
		return 30, nil // hedge leg
	}}

	params := testParams()
	params.UseHedging = true
	params.HedgeOffset = 200

	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, pricer, logger.NewNop())
	result, err := engine.Run(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalTrades)
	trade := result.Trades[0]
	require.Len(t, trade.Positions, 2)

	hedge := trade.Positions[1]
	assert.Equal(t, contracts.PositionHedge, hedge.PositionType)
	assert.Equal(t, 24850, hedge.StrikePrice)
	assert.Equal(t, 75, hedge.Quantity)

	// Main nets +7420; hedge bought at 30 expires worthless:
	// -2250 gross, -2330 net. Trade P&L 5090. The bought premium also
	// left capital at open, so the trajectory shows 2250 less.
	assert.True(t, trade.TotalPnL.Equal(decimal.NewFromInt(5090)), "pnl=%s", trade.TotalPnL)
	assert.True(t, result.FinalCapital.Equal(decimal.NewFromInt(502840)), "capital=%s", result.FinalCapital)
}

func TestRun_SignalFilterSuppressesTrade(t *testing.T) {
	params := testParams()
	params.SignalsToTest = []contracts.SignalType{contracts.SignalS2}

	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, entryOnlyPricer(at(tradeMonday, 1), 100), logger.NewNop())
	result, err := engine.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Zero(t, result.TotalTrades)
	assert.True(t, result.FinalCapital.Equal(params.InitialCapital))
}

func TestRun_MainPriceUnavailableAbandonsTrade(t *testing.T) {
	pricer := fakePricer{priceAt: func(time.Time, int, contracts.OptionType) (float64, error) {
		return 0, contracts.ErrPricingUnavailable
	}}

	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, pricer, logger.NewNop())
	result, err := engine.Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.Zero(t, result.TotalTrades)
	assert.True(t, result.FinalCapital.Equal(decimal.NewFromInt(500000)))
}

func TestRun_NoWarmupHistoryProducesNoTrades(t *testing.T) {
	// Only the trade week itself: every bar lacks a previous week
	bars := bearTrapWeek()[1:]

	engine := NewEngine(fakeBars{bars: bars}, entryOnlyPricer(at(tradeMonday, 1), 100), logger.NewNop())
	result, err := engine.Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.Zero(t, result.TotalTrades)
	assert.True(t, result.FinalCapital.Equal(decimal.NewFromInt(500000)))
}

func TestRun_NoBars(t *testing.T) {
	engine := NewEngine(fakeBars{}, fakePricer{}, logger.NewNop())

	_, err := engine.Run(context.Background(), testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestRun_InvalidParameters(t *testing.T) {
	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, fakePricer{}, logger.NewNop())

	params := testParams()
	params.InitialCapital = decimal.Zero

	_, err := engine.Run(context.Background(), params)
	require.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	engine := NewEngine(fakeBars{bars: bearTrapWeek()}, fakePricer{}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, testParams())
	require.ErrorIs(t, err, context.Canceled)
}
