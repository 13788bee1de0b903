package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// weekCtx assembles a mid-week context from zones and bars. The first
// bar doubles as the first-hour bar, matching how the weekly manager
// populates the context.
func weekCtx(zones contracts.WeeklyZones, bars ...contracts.Bar) *contracts.WeeklyContext {
	ctx := &contracts.WeeklyContext{
		CurrentWeekStart: monday,
		Zones:            zones,
		Bias:             contracts.ClassifyBias(zones),
		WeeklyBars:       bars,
	}
	if len(bars) > 0 {
		first := bars[0]
		ctx.FirstHourBar = &first
	}
	return ctx
}

func evaluate(t *testing.T, ctx *contracts.WeeklyContext) contracts.SignalResult {
	t.Helper()
	e := NewEvaluator(logger.NewNop())
	current := ctx.WeeklyBars[len(ctx.WeeklyBars)-1]
	return e.EvaluateAll(current, ctx)
}

func TestEvaluateAll_S1_BearTrap(t *testing.T) {
	// Support bottom 25120: the first bar opens above it, fakes a
	// breakdown below it, and the second bar recovers above the first
	// bar's low.
	zones := contracts.NewWeeklyZones(25600, 25120, 25400)

	first := bar(ts(0, 0), 25151.10, 25160.00, 25041.90, 25119.80)
	second := bar(ts(0, 1), 25119.80, 25120.00, 25040.00, 25063.95)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS1, signal.SignalType)
	assert.Equal(t, contracts.DirectionBullish, signal.Direction)
	assert.Equal(t, contracts.OptionPut, signal.OptionType)
	assert.Equal(t, 25063.95, signal.EntryPrice)
	assert.Equal(t, 25050, signal.StrikePrice)
	assert.Equal(t, 0.85, signal.Confidence)

	// stop_loss = first.low - |first.open - first.close|
	assert.InDelta(t, 25010.60, signal.StopLoss, 1e-9)

	// Triggering marks the context
	assert.True(t, ctx.SignalTriggeredThisWeek)
	assert.Equal(t, contracts.SignalS1, ctx.TriggeredSignal)
	assert.Equal(t, second.Timestamp, ctx.TriggeredAt)
}

func TestEvaluateAll_S1_SecondBarOnly(t *testing.T) {
	zones := contracts.NewWeeklyZones(25600, 25120, 25400)

	first := bar(ts(0, 0), 25151.10, 25160.00, 25041.90, 25119.80)
	second := bar(ts(0, 1), 25119.80, 25120.00, 25040.00, 25045.00)
	third := bar(ts(0, 2), 25045.00, 25070.00, 25040.00, 25063.95)

	// Same recovery close on the third bar must not fire S1
	ctx := weekCtx(zones, first, second, third)
	signal := evaluate(t, ctx)

	assert.False(t, signal.IsTriggered)
}

func TestEvaluateAll_OncePerWeek(t *testing.T) {
	zones := contracts.NewWeeklyZones(25600, 25120, 25400)

	first := bar(ts(0, 0), 25151.10, 25160.00, 25041.90, 25119.80)
	second := bar(ts(0, 1), 25119.80, 25120.00, 25040.00, 25063.95)

	ctx := weekCtx(zones, first, second)
	require.True(t, evaluate(t, ctx).IsTriggered)

	ctx.WeeklyBars = append(ctx.WeeklyBars, bar(ts(0, 2), 25064, 25100, 25060, 25090))
	assert.False(t, evaluate(t, ctx).IsTriggered)
}

func TestEvaluateAll_PriorityS1OverS3(t *testing.T) {
	// Wide range with a bearish close in the resistance band, arranged
	// so both the S1 bear trap and the S3 rejection hold on bar two.
	zones := contracts.NewWeeklyZones(25500, 25000, 25490)
	require.True(t, contracts.ClassifyBias(zones).IsBearish())

	first := bar(ts(0, 0), 25490, 25495, 24970, 24990)
	second := bar(ts(0, 1), 24990, 25000, 24960, 24980)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS1, signal.SignalType)
}

func TestEvaluateAll_S2_SupportHold(t *testing.T) {
	// Bullish bias: previous close inside the support band
	zones := contracts.NewWeeklyZones(25500, 25000, 25010)
	require.True(t, contracts.ClassifyBias(zones).IsBullish())

	first := bar(ts(0, 0), 25008, 25015, 24995, 25011)
	second := bar(ts(0, 1), 25011, 25025, 25005, 25020)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS2, signal.SignalType)
	assert.Equal(t, contracts.DirectionBullish, signal.Direction)
	assert.Equal(t, zones.LowerZoneBottom, signal.StopLoss)
	assert.Equal(t, 0.80, signal.Confidence)
}

func TestEvaluateAll_S3_ResistanceRejection(t *testing.T) {
	zones := contracts.NewWeeklyZones(25000, 24000, 24990)
	require.True(t, contracts.ClassifyBias(zones).IsBearish())

	first := bar(ts(0, 0), 24980, 24990, 24900, 24985)
	second := bar(ts(0, 1), 24985, 24990, 24950, 24960)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS3, signal.SignalType)
	assert.Equal(t, contracts.DirectionBearish, signal.Direction)
	assert.Equal(t, contracts.OptionCall, signal.OptionType)
	assert.Equal(t, zones.PrevWeekHigh, signal.StopLoss)
	assert.Equal(t, 0.75, signal.Confidence)
}

func TestEvaluateAll_S3_BreakdownScenario(t *testing.T) {
	zones := contracts.NewWeeklyZones(25000, 24000, 24990)

	first := bar(ts(0, 0), 24980, 24990, 24900, 24985)
	second := bar(ts(0, 1), 24985, 25010, 24970, 24995) // no rejection on bar two
	third := bar(ts(0, 2), 24995, 25000, 24880, 24890)  // undercuts every prior low and close

	ctx := weekCtx(zones, first, second, third)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS3, signal.SignalType)
	assert.Equal(t, 0.78, signal.Confidence)
}

func TestEvaluateAll_S4_BiasFailureBull(t *testing.T) {
	// Bearish bias but the week gaps open above the resistance band
	zones := contracts.NewWeeklyZones(25000, 24500, 24990)
	require.True(t, contracts.ClassifyBias(zones).IsBearish())

	first := bar(ts(0, 0), 25010, 25030, 25000, 25020)
	second := bar(ts(0, 1), 25020, 25050, 25015, 25040) // closes above first-hour high

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS4, signal.SignalType)
	assert.Equal(t, contracts.DirectionBullish, signal.Direction)
	assert.Equal(t, first.Low, signal.StopLoss)
	assert.Equal(t, 0.82, signal.Confidence)
}

func TestEvaluateAll_S5_BiasFailureBear(t *testing.T) {
	// Bullish bias but the week opens and holds below the support band
	zones := contracts.NewWeeklyZones(25500, 25000, 25005)
	require.True(t, contracts.ClassifyBias(zones).IsBullish())

	first := bar(ts(0, 0), 24980, 24990, 24950, 24960)
	second := bar(ts(0, 1), 24960, 24965, 24935, 24940) // breaks first-hour low

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS5, signal.SignalType)
	assert.Equal(t, contracts.DirectionBearish, signal.Direction)
	assert.Equal(t, first.High, signal.StopLoss)
	assert.Equal(t, 0.80, signal.Confidence)
}

func TestEvaluateAll_S6_WeaknessConfirmed(t *testing.T) {
	zones := contracts.NewWeeklyZones(25000, 24000, 24990)
	require.True(t, contracts.ClassifyBias(zones).IsBearish())

	// First bar opens away from the band so the S3 base condition fails,
	// but its high pokes into the band.
	first := bar(ts(0, 0), 24900, 24980, 24870, 24950)
	second := bar(ts(0, 1), 24950, 24960, 24930, 24940)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS6, signal.SignalType)
	assert.Equal(t, zones.PrevWeekHigh, signal.StopLoss)
	assert.Equal(t, 0.73, signal.Confidence)
}

func TestEvaluateAll_S7_BreakoutConfirmed(t *testing.T) {
	// Neutral bias keeps the bias-gated signals out of the way
	zones := contracts.NewWeeklyZones(25500, 24500, 25000)

	first := bar(ts(0, 0), 25000, 25100, 24950, 25050)
	second := bar(ts(0, 1), 25050, 25160, 25040, 25150)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS7, signal.SignalType)
	assert.Equal(t, contracts.DirectionBullish, signal.Direction)
	assert.Equal(t, first.Low, signal.StopLoss)
	assert.Equal(t, 0.88, signal.Confidence)
}

func TestEvaluateAll_S7_BlockedJustUnderPrevHigh(t *testing.T) {
	// Breakout fires but price closes within 0.40% below the previous
	// week's high, which blocks the entry.
	zones := contracts.NewWeeklyZones(25500, 24500, 25000)

	first := bar(ts(0, 0), 25400, 25440, 25350, 25420)
	second := bar(ts(0, 1), 25420, 25495, 25410, 25490)

	ctx := weekCtx(zones, first, second)
	signal := evaluate(t, ctx)

	assert.False(t, signal.IsTriggered)
}

func TestEvaluateAll_S8_BreakdownConfirmed(t *testing.T) {
	zones := contracts.NewWeeklyZones(25500, 24500, 25000)

	first := bar(ts(0, 0), 25400, 25480, 25350, 25420)
	second := bar(ts(0, 1), 25420, 25430, 25290, 25300) // breaks first-hour low

	ctx := weekCtx(zones, first, second)
	ctx.HasTouchedUpperZoneThisWeek = true

	signal := evaluate(t, ctx)

	require.True(t, signal.IsTriggered)
	assert.Equal(t, contracts.SignalS8, signal.SignalType)
	assert.Equal(t, contracts.DirectionBearish, signal.Direction)
	assert.Equal(t, first.High, signal.StopLoss)
	assert.Equal(t, 0.87, signal.Confidence)
}

func TestEvaluateAll_S8_RequiresUpperZoneTouch(t *testing.T) {
	zones := contracts.NewWeeklyZones(25500, 24500, 25000)

	first := bar(ts(0, 0), 25400, 25480, 25350, 25420)
	second := bar(ts(0, 1), 25420, 25430, 25290, 25300)

	ctx := weekCtx(zones, first, second)
	ctx.HasTouchedUpperZoneThisWeek = false

	assert.False(t, evaluate(t, ctx).IsTriggered)
}

func TestEvaluateAll_Guards(t *testing.T) {
	e := NewEvaluator(logger.NewNop())
	zones := contracts.NewWeeklyZones(25500, 24500, 25000)

	empty := weekCtx(zones)
	assert.False(t, e.EvaluateAll(bar(ts(0, 0), 25000, 25010, 24990, 25005), empty).IsTriggered)

	triggered := weekCtx(zones, bar(ts(0, 0), 25000, 25010, 24990, 25005))
	triggered.SignalTriggeredThisWeek = true
	assert.False(t, e.EvaluateAll(triggered.WeeklyBars[0], triggered).IsTriggered)
}
