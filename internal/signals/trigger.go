package signals

import (
	"math"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/internal/weekly"
)

// Breakout/breakdown trigger state machine shared by S4/S7 and S8.
//
// The trigger state is re-derived from the full week of bars on every
// evaluation rather than cached incrementally. At most ~35 hourly bars
// exist in a week, so the quadratic cost is irrelevant next to the risk
// of an incremental tracker drifting from the reference walk.

// evalBreakout walks the week's bars chronologically and reports
// whether a breakout above the first-hour high has been confirmed.
// On the first-hour day a close above the first-hour high fires
// directly. On later days a bullish candle closing above the first-hour
// high with a high at or above the running max is recorded as the
// breakout candle; a later close above that candle's high fires.
func evalBreakout(bars []contracts.Bar, firstHour contracts.Bar) (fired bool, candleHigh *float64) {
	firstHourHigh := firstHour.High
	highestHigh := 0.0

	for _, bar := range bars {
		if fired {
			continue
		}

		highestHighBefore := highestHigh
		highestHigh = math.Max(highestHigh, bar.High)

		if weekly.SameDay(bar.Timestamp, firstHour.Timestamp) {
			if bar.Close > firstHourHigh {
				fired = true
			}
			continue
		}

		if candleHigh == nil {
			if bar.Close > bar.Open && bar.Close > firstHourHigh && bar.High >= highestHighBefore {
				h := bar.High
				candleHigh = &h
			}
		} else if bar.Close > *candleHigh {
			fired = true
		}
	}

	return fired, candleHigh
}

// evalBreakdown mirrors evalBreakout below the first-hour low
func evalBreakdown(bars []contracts.Bar, firstHour contracts.Bar) (fired bool, candleLow *float64) {
	firstHourLow := firstHour.Low
	lowestLow := math.Inf(1)

	for _, bar := range bars {
		if fired {
			continue
		}

		lowestLowBefore := lowestLow
		lowestLow = math.Min(lowestLow, bar.Low)

		if weekly.SameDay(bar.Timestamp, firstHour.Timestamp) {
			if bar.Close < firstHourLow {
				fired = true
			}
			continue
		}

		if candleLow == nil {
			if bar.Close < bar.Open && bar.Close < firstHourLow && bar.Low <= lowestLowBefore {
				l := bar.Low
				candleLow = &l
			}
		} else if bar.Close < *candleLow {
			fired = true
		}
	}

	return fired, candleLow
}

// breakoutJustFired reports whether the breakout condition transitioned
// false -> true on the latest bar. The transition test re-runs the same
// walk against all-but-the-last bar; a trigger that was already active
// one bar earlier does not fire again. The recorded breakout-candle
// high is persisted on the context for the rest of the week.
func breakoutJustFired(ctx *contracts.WeeklyContext) bool {
	bars := ctx.WeeklyBars
	if len(bars) == 0 || ctx.FirstHourBar == nil {
		return false
	}

	fired, candleHigh := evalBreakout(bars, *ctx.FirstHourBar)
	ctx.S4BreakoutCandleHigh = candleHigh

	if len(bars) >= 2 {
		prevFired, _ := evalBreakout(bars[:len(bars)-1], *ctx.FirstHourBar)
		return fired && !prevFired
	}

	return fired
}

// breakdownJustFired is the bearish mirror of breakoutJustFired
func breakdownJustFired(ctx *contracts.WeeklyContext) bool {
	bars := ctx.WeeklyBars
	if len(bars) == 0 || ctx.FirstHourBar == nil {
		return false
	}

	fired, candleLow := evalBreakdown(bars, *ctx.FirstHourBar)
	ctx.S8BreakdownCandleLow = candleLow

	if len(bars) >= 2 {
		prevFired, _ := evalBreakdown(bars[:len(bars)-1], *ctx.FirstHourBar)
		return fired && !prevFired
	}

	return fired
}
