package signals

import (
	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// Per-signal confidence scores. S3 and S6 carry two values because
// each has a rejection scenario and a breakdown scenario.
const (
	confidenceS1  = 0.85
	confidenceS2  = 0.80
	confidenceS3A = 0.75
	confidenceS3B = 0.78
	confidenceS4  = 0.82
	confidenceS5  = 0.80
	confidenceS6A = 0.73
	confidenceS6B = 0.75
	confidenceS7  = 0.88
	confidenceS8  = 0.87
)

// S7 is blocked when price closes under the previous week's high by
// less than this percentage gap.
const s7MinGapPct = 0.40

// Evaluator maps (current bar, weekly context) to at most one triggered
// signal among the eight, in strict priority order S1 -> S8.
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a signal evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{logger: log}
}

// EvaluateAll evaluates S1..S8 in priority order and returns the first
// signal to trigger. At most one signal fires per week: once a signal
// has triggered the context is marked and every later call this week
// returns no-signal. Marking the context is an intentional side effect;
// evaluation is not idempotent once a signal fires.
func (e *Evaluator) EvaluateAll(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	if ctx.SignalTriggeredThisWeek {
		return contracts.NoSignal()
	}

	if len(ctx.WeeklyBars) == 0 {
		return contracts.NoSignal()
	}

	evaluators := []func(contracts.Bar, *contracts.WeeklyContext) contracts.SignalResult{
		e.evaluateS1,
		e.evaluateS2,
		e.evaluateS3,
		e.evaluateS4,
		e.evaluateS5,
		e.evaluateS6,
		e.evaluateS7,
		e.evaluateS8,
	}

	for _, evaluate := range evaluators {
		signal := evaluate(current, ctx)
		if signal.IsTriggered {
			ctx.SignalTriggeredThisWeek = true
			ctx.TriggeredSignal = signal.SignalType
			ctx.TriggeredAt = signal.EntryTime

			e.logger.WithFields(map[string]interface{}{
				"signal":      string(signal.SignalType),
				"direction":   string(signal.Direction),
				"entry_time":  signal.EntryTime,
				"entry_price": signal.EntryPrice,
				"stop_loss":   signal.StopLoss,
			}).Info("Signal triggered")

			return signal
		}
	}

	return contracts.NoSignal()
}

// evaluateS1 detects a bear trap: the week opens at or above support,
// the first bar fakes a breakdown below it, and the second bar recovers
// above the first bar's low. Second bar only.
func (e *Evaluator) evaluateS1(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if !ctx.IsSecondBar() || first == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones

	openedAboveSupport := first.Open >= zones.LowerZoneBottom
	fakeBreakdown := first.Close < zones.LowerZoneBottom
	recovered := current.Close > first.Low

	if openedAboveSupport && fakeBreakdown && recovered {
		stopLoss := first.Low - first.BodyRange()
		return contracts.NewSignal(contracts.SignalS1, current.Timestamp, current.Close, stopLoss, confidenceS1)
	}

	return contracts.NoSignal()
}

// evaluateS2 detects support holding under a bullish bias: both the
// previous close and this week's open sit near the support band and the
// second bar confirms the hold. Second bar only.
func (e *Evaluator) evaluateS2(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if !ctx.IsSecondBar() || first == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones
	if !ctx.Bias.IsBullish() {
		return contracts.NoSignal()
	}

	closeToSupportPrev := zones.IsNearLowerZone(zones.PrevWeekClose)
	closeToSupportFirst := zones.IsNearLowerZone(first.Open)

	if first.Open > zones.PrevWeekLow &&
		closeToSupportPrev &&
		closeToSupportFirst &&
		first.Close >= zones.LowerZoneBottom &&
		first.Close >= zones.PrevWeekClose &&
		current.Close >= first.Low &&
		current.Close > zones.PrevWeekClose &&
		current.Close > zones.LowerZoneBottom {

		return contracts.NewSignal(contracts.SignalS2, current.Timestamp, current.Close, zones.LowerZoneBottom, confidenceS2)
	}

	return contracts.NoSignal()
}

// evaluateS3 detects resistance holding under a bearish bias. Two
// scenarios: (A) second-bar rejection after touching the resistance
// band, (B) a later breakdown below the week's lows.
func (e *Evaluator) evaluateS3(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if first == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones
	if !ctx.Bias.IsBearish() {
		return contracts.NoSignal()
	}

	closeToResistancePrev := zones.IsNearUpperZone(zones.PrevWeekClose)
	closeToResistanceFirst := zones.IsNearUpperZone(first.Open)

	if !(closeToResistancePrev && closeToResistanceFirst && first.Close <= zones.PrevWeekHigh) {
		return contracts.NoSignal()
	}

	// Scenario A: second-bar rejection
	if ctx.IsSecondBar() {
		touchedZone := first.High >= zones.UpperZoneBottom || current.High >= zones.UpperZoneBottom
		if current.Close < first.High &&
			current.Close < zones.UpperZoneBottom &&
			touchedZone {
			return contracts.NewSignal(contracts.SignalS3, current.Timestamp, current.Close, zones.PrevWeekHigh, confidenceS3A)
		}
	}

	// Scenario B: breakdown below the weekly lows (excluding the current bar)
	if len(ctx.WeeklyBars) > 1 {
		minLow, minClose := weeklyMinsExcludingLast(ctx.WeeklyBars)

		if current.Close < first.Low &&
			current.Close < zones.UpperZoneBottom &&
			current.Close < minLow &&
			current.Close < minClose {
			return contracts.NewSignal(contracts.SignalS3, current.Timestamp, current.Close, zones.PrevWeekHigh, confidenceS3B)
		}
	}

	return contracts.NoSignal()
}

// evaluateS4 detects a failing bearish bias: the week gaps open above
// the resistance band and the breakout trigger fires.
func (e *Evaluator) evaluateS4(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if first == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones
	if !ctx.Bias.IsBearish() {
		return contracts.NoSignal()
	}

	if first.Open <= zones.UpperZoneTop {
		return contracts.NoSignal()
	}

	if breakoutJustFired(ctx) {
		stopLoss := first.Low
		if ctx.FirstHourBar != nil {
			stopLoss = ctx.FirstHourBar.Low
		}
		return contracts.NewSignal(contracts.SignalS4, current.Timestamp, current.Close, stopLoss, confidenceS4)
	}

	return contracts.NoSignal()
}

// evaluateS5 detects a failing bullish bias: the week opens below the
// support band, the first hour closes below both support and the
// previous week's low, and price breaks the first-hour low.
func (e *Evaluator) evaluateS5(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if first == nil || ctx.FirstHourBar == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones
	if !ctx.Bias.IsBullish() {
		return contracts.NoSignal()
	}

	firstHour := ctx.FirstHourBar
	if first.Open < zones.LowerZoneBottom &&
		firstHour.Close < zones.LowerZoneBottom &&
		firstHour.Close < zones.PrevWeekLow &&
		current.Close < firstHour.Low {

		return contracts.NewSignal(contracts.SignalS5, current.Timestamp, current.Close, firstHour.High, confidenceS5)
	}

	return contracts.NoSignal()
}

// evaluateS6 confirms weakness under a bearish bias. Same two trigger
// scenarios as S3, but the base condition keys off the first bar's high
// touching the resistance band rather than open proximity.
func (e *Evaluator) evaluateS6(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	first := ctx.FirstBar()
	if first == nil {
		return contracts.NoSignal()
	}

	zones := ctx.Zones
	if !ctx.Bias.IsBearish() {
		return contracts.NoSignal()
	}

	if !(first.High >= zones.UpperZoneBottom &&
		first.Close <= zones.UpperZoneTop &&
		first.Close <= zones.PrevWeekHigh) {
		return contracts.NoSignal()
	}

	// Scenario A
	if ctx.IsSecondBar() {
		if current.Close < first.High && current.Close < zones.UpperZoneBottom {
			return contracts.NewSignal(contracts.SignalS6, current.Timestamp, current.Close, zones.PrevWeekHigh, confidenceS6A)
		}
	}

	// Scenario B
	if len(ctx.WeeklyBars) > 1 {
		minLow, minClose := weeklyMinsExcludingLast(ctx.WeeklyBars)

		if current.Close < first.Low &&
			current.Close < zones.UpperZoneBottom &&
			current.Close < minLow &&
			current.Close < minClose {
			return contracts.NewSignal(contracts.SignalS6, current.Timestamp, current.Close, zones.PrevWeekHigh, confidenceS6B)
		}
	}

	return contracts.NoSignal()
}

// evaluateS7 confirms the strongest breakout: the breakout trigger
// fires, price is not hovering just under the previous week's high, and
// the close clears every prior high and close of the week.
func (e *Evaluator) evaluateS7(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	zones := ctx.Zones

	if !breakoutJustFired(ctx) {
		return contracts.NoSignal()
	}

	// Too close below the previous week's high blocks the entry
	gapPct := (zones.PrevWeekHigh - current.Close) / current.Close * 100
	if current.Close < zones.PrevWeekHigh && gapPct < s7MinGapPct {
		return contracts.NoSignal()
	}

	if len(ctx.WeeklyBars) > 1 {
		maxHigh, maxClose := weeklyMaxesExcludingLast(ctx.WeeklyBars)

		if current.Close > maxHigh && current.Close > maxClose {
			stopLoss := ctx.WeeklyBars[0].Low
			if ctx.FirstHourBar != nil {
				stopLoss = ctx.FirstHourBar.Low
			}
			return contracts.NewSignal(contracts.SignalS7, current.Timestamp, current.Close, stopLoss, confidenceS7)
		}
	}

	return contracts.NoSignal()
}

// evaluateS8 confirms the strongest breakdown: the breakdown trigger
// fires after the resistance band was touched this week, and the close
// undercuts every prior low and close of the week.
func (e *Evaluator) evaluateS8(current contracts.Bar, ctx *contracts.WeeklyContext) contracts.SignalResult {
	zones := ctx.Zones

	if !breakdownJustFired(ctx) {
		return contracts.NoSignal()
	}

	if !ctx.HasTouchedUpperZoneThisWeek {
		return contracts.NoSignal()
	}

	if current.Close >= zones.UpperZoneBottom {
		return contracts.NoSignal()
	}

	if len(ctx.WeeklyBars) > 1 {
		minLow, minClose := weeklyMinsExcludingLast(ctx.WeeklyBars)

		if current.Close < minLow && current.Close < minClose {
			stopLoss := ctx.WeeklyBars[0].High
			if ctx.FirstHourBar != nil {
				stopLoss = ctx.FirstHourBar.High
			}
			return contracts.NewSignal(contracts.SignalS8, current.Timestamp, current.Close, stopLoss, confidenceS8)
		}
	}

	return contracts.NoSignal()
}

// weeklyMinsExcludingLast returns the lowest low and lowest close over
// all bars of the week except the current (last) one.
func weeklyMinsExcludingLast(bars []contracts.Bar) (minLow, minClose float64) {
	prior := bars[:len(bars)-1]
	minLow = prior[0].Low
	minClose = prior[0].Close
	for _, bar := range prior[1:] {
		if bar.Low < minLow {
			minLow = bar.Low
		}
		if bar.Close < minClose {
			minClose = bar.Close
		}
	}
	return minLow, minClose
}

// weeklyMaxesExcludingLast mirrors weeklyMinsExcludingLast for highs
func weeklyMaxesExcludingLast(bars []contracts.Bar) (maxHigh, maxClose float64) {
	prior := bars[:len(bars)-1]
	maxHigh = prior[0].High
	maxClose = prior[0].Close
	for _, bar := range prior[1:] {
		if bar.High > maxHigh {
			maxHigh = bar.High
		}
		if bar.Close > maxClose {
			maxClose = bar.Close
		}
	}
	return maxHigh, maxClose
}
