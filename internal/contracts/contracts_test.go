package contracts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBar_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 7, 14, 9, 15, 0, 0, time.UTC)
	bar := NewBar(ts, 25151.10, 25160.00, 25041.90, 25119.80)

	assert.Equal(t, 25151.10, bar.Open)
	assert.Equal(t, 25160.00, bar.High)
	assert.Equal(t, 25041.90, bar.Low)
	assert.Equal(t, 25119.80, bar.Close)
	assert.Equal(t, ts, bar.Timestamp)

	// body_range = |open - close| exactly
	assert.Equal(t, 25151.10-25119.80, bar.BodyRange())
}

func TestBar_BodyRangeAbsolute(t *testing.T) {
	up := NewBar(time.Now(), 100, 110, 95, 108)
	down := NewBar(time.Now(), 108, 110, 95, 100)

	assert.Equal(t, up.BodyRange(), down.BodyRange())
	assert.True(t, up.IsBullish())
	assert.True(t, down.IsBearish())
}

func TestNewWeeklyZones_Ordering(t *testing.T) {
	tests := []struct {
		name               string
		high, low, close   float64
	}{
		{"wide range", 25500, 24800, 25100},
		{"narrow range", 25010, 25000, 25005},
		{"close at high", 25500, 24800, 25500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewWeeklyZones(tt.high, tt.low, tt.close)

			assert.LessOrEqual(t, z.LowerZoneBottom, z.LowerZoneTop)
			assert.LessOrEqual(t, z.LowerZoneTop, z.UpperZoneBottom)
			assert.LessOrEqual(t, z.UpperZoneBottom, z.UpperZoneTop)
			assert.Equal(t, tt.high, z.UpperZoneTop)
			assert.Equal(t, tt.low, z.LowerZoneBottom)

			wantSize := (tt.high - tt.low) * 0.025
			assert.InDelta(t, wantSize, z.LowerZoneTop-z.LowerZoneBottom, 1e-9)
			assert.InDelta(t, wantSize, z.UpperZoneTop-z.UpperZoneBottom, 1e-9)
		})
	}
}

func TestWeeklyZones_NearPredicates(t *testing.T) {
	z := NewWeeklyZones(25000, 24000, 24500)
	// zone size = 25

	assert.True(t, z.IsNearLowerZone(24000))
	assert.True(t, z.IsNearLowerZone(24025))
	assert.False(t, z.IsNearLowerZone(24026))
	assert.False(t, z.IsNearLowerZone(23999))

	assert.True(t, z.IsNearUpperZone(25000))
	assert.True(t, z.IsNearUpperZone(24975))
	assert.False(t, z.IsNearUpperZone(24974))
}

func TestClassifyBias(t *testing.T) {
	tests := []struct {
		name  string
		close float64
		want  BiasDirection
	}{
		{"close in resistance band", 24980, BiasBearish},
		{"close above prev high", 25100, BiasBearish},
		{"close in support band", 24010, BiasBullish},
		{"close below prev low", 23900, BiasBullish},
		{"close mid-range", 24500, BiasNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewWeeklyZones(25000, 24000, tt.close)
			bias := ClassifyBias(z)
			assert.Equal(t, tt.want, bias.Direction)

			if tt.want != BiasNeutral {
				assert.GreaterOrEqual(t, bias.Strength, 0.0)
				assert.LessOrEqual(t, bias.Strength, 1.0)
			} else {
				assert.Zero(t, bias.Strength)
			}
		})
	}
}

func TestATMStrike(t *testing.T) {
	assert.Equal(t, 25000, ATMStrike(25010, 50))
	assert.Equal(t, 25050, ATMStrike(25030, 50))
	assert.Equal(t, 25050, ATMStrike(25063.95, 50))
	assert.Equal(t, 25000, ATMStrike(25000, 50))
	assert.Equal(t, 25000, ATMStrike(25024.99, 50))
}

func TestSignalType_DirectionAndOption(t *testing.T) {
	bullish := []SignalType{SignalS1, SignalS2, SignalS4, SignalS7}
	bearish := []SignalType{SignalS3, SignalS5, SignalS6, SignalS8}

	for _, s := range bullish {
		assert.Equal(t, DirectionBullish, s.Direction(), string(s))
		assert.Equal(t, OptionPut, s.OptionToSell(), string(s))
	}
	for _, s := range bearish {
		assert.Equal(t, DirectionBearish, s.Direction(), string(s))
		assert.Equal(t, OptionCall, s.OptionToSell(), string(s))
	}
}

func TestParseSignalTypes(t *testing.T) {
	types, err := ParseSignalTypes([]string{"S1", "S8"})
	require.NoError(t, err)
	assert.Equal(t, []SignalType{SignalS1, SignalS8}, types)

	_, err = ParseSignalTypes([]string{"S1", "S9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S9")
}

func TestPosition_SettleSoldLeg(t *testing.T) {
	// Spec scenario: sell PUT @25000 for 100, lot 75, expires worthless,
	// commission 40/lot both sides -> net 7420.
	pos := &Position{
		PositionType: PositionMain,
		OptionType:   OptionPut,
		StrikePrice:  25000,
		Quantity:     -75,
		EntryPrice:   decimal.NewFromInt(100),
	}

	pos.Settle(time.Now(), decimal.Zero, 75, decimal.NewFromInt(40))

	assert.True(t, pos.GrossPnL.Equal(decimal.NewFromInt(7500)), "gross=%s", pos.GrossPnL)
	assert.True(t, pos.Commission.Equal(decimal.NewFromInt(80)), "commission=%s", pos.Commission)
	assert.True(t, pos.NetPnL.Equal(decimal.NewFromInt(7420)), "net=%s", pos.NetPnL)
}

func TestPosition_SettleBoughtLeg(t *testing.T) {
	pos := &Position{
		PositionType: PositionHedge,
		OptionType:   OptionPut,
		StrikePrice:  24800,
		Quantity:     75,
		EntryPrice:   decimal.NewFromInt(30),
	}

	pos.Settle(time.Now(), decimal.NewFromInt(10), 75, decimal.NewFromInt(40))

	// Bought leg lost premium: 75 * (10 - 30) = -1500, minus 80 commission
	assert.True(t, pos.GrossPnL.Equal(decimal.NewFromInt(-1500)))
	assert.True(t, pos.NetPnL.Equal(decimal.NewFromInt(-1580)))
}

func TestPosition_CommissionFloorsPartialLots(t *testing.T) {
	pos := &Position{Quantity: -100, EntryPrice: decimal.NewFromInt(50)}
	pos.Settle(time.Now(), decimal.Zero, 75, decimal.NewFromInt(40))

	// 100 // 75 = 1 lot
	assert.True(t, pos.Commission.Equal(decimal.NewFromInt(80)))
}

func TestTrade_CloseIsOneWay(t *testing.T) {
	trade := &Trade{ID: "t1", Outcome: OutcomeOpen}

	require.NoError(t, trade.Close(time.Now(), 25000, OutcomeStopped, "Stop loss hit"))
	assert.Equal(t, OutcomeStopped, trade.Outcome)

	err := trade.Close(time.Now(), 25100, OutcomeExpired, "Weekly expiry")
	require.Error(t, err)
	assert.Equal(t, OutcomeStopped, trade.Outcome)
}

func TestTrade_FinalizePnL(t *testing.T) {
	trade := &Trade{
		Outcome: OutcomeExpired,
		Positions: []*Position{
			{NetPnL: decimal.NewFromInt(7420)},
			{NetPnL: decimal.NewFromInt(-1580)},
		},
	}

	trade.FinalizePnL()

	assert.True(t, trade.TotalPnL.Equal(decimal.NewFromInt(5840)))
	assert.Equal(t, OutcomeWin, trade.Outcome)
}

func TestTrade_FinalizePnL_TieKeepsOutcome(t *testing.T) {
	trade := &Trade{
		Outcome: OutcomeExpired,
		Positions: []*Position{
			{NetPnL: decimal.NewFromInt(100)},
			{NetPnL: decimal.NewFromInt(-100)},
		},
	}

	trade.FinalizePnL()

	assert.True(t, trade.TotalPnL.IsZero())
	assert.Equal(t, OutcomeExpired, trade.Outcome)
}

func TestBacktestParameters_Validate(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	valid := DefaultParameters(from, to)
	require.NoError(t, valid.Validate())

	reversed := DefaultParameters(to, from)
	assert.Error(t, reversed.Validate())

	noCapital := DefaultParameters(from, to)
	noCapital.InitialCapital = decimal.Zero
	assert.Error(t, noCapital.Validate())

	badSignal := DefaultParameters(from, to)
	badSignal.SignalsToTest = []SignalType{"S99"}
	assert.Error(t, badSignal.Validate())

	noSignals := DefaultParameters(from, to)
	noSignals.SignalsToTest = nil
	assert.Error(t, noSignals.Validate())
}

func TestWeeklyContext_Reset(t *testing.T) {
	high := 25100.0
	ctx := &WeeklyContext{
		SignalTriggeredThisWeek:     true,
		TriggeredSignal:             SignalS3,
		S4BreakoutCandleHigh:        &high,
		HasTouchedUpperZoneThisWeek: true,
		WeeklyBars:                  []Bar{{}, {}},
	}

	weekStart := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	zones := NewWeeklyZones(25200, 24800, 25000)
	ctx.Reset(weekStart, zones, ClassifyBias(zones))

	assert.Equal(t, weekStart, ctx.CurrentWeekStart)
	assert.False(t, ctx.SignalTriggeredThisWeek)
	assert.Equal(t, SignalNone, ctx.TriggeredSignal)
	assert.Nil(t, ctx.S4BreakoutCandleHigh)
	assert.Nil(t, ctx.S8BreakdownCandleLow)
	assert.False(t, ctx.HasTouchedUpperZoneThisWeek)
	assert.Empty(t, ctx.WeeklyBars)
	assert.Nil(t, ctx.FirstBar())
	assert.False(t, ctx.IsSecondBar())
}
