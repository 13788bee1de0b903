package contracts

import "time"

// WeeklyContext is the rolling per-week state consumed by the signal
// evaluator. One instance lives across the whole simulation, reset at
// each week boundary and mutated bar-by-bar in between. The simulation
// loop owns it exclusively; nothing here is safe for concurrent use.
type WeeklyContext struct {
	CurrentWeekStart time.Time
	Zones            WeeklyZones
	Bias             Bias

	// FirstHourBar is the first bar seen in this trading week
	FirstHourBar *Bar

	// WeeklyBars are the bars seen so far this week, in time order
	WeeklyBars []Bar

	// Signal state: at most one signal fires per week
	SignalTriggeredThisWeek bool
	TriggeredSignal         SignalType
	TriggeredAt             time.Time

	// Breakout/breakdown trigger state, reset at week boundary
	S4BreakoutCandleHigh *float64
	S8BreakdownCandleLow *float64

	HasTouchedUpperZoneThisWeek bool
	WeeklyMaxHigh               float64
	WeeklyMinLow                float64
}

// Reset clears all weekly state for a fresh trading week
func (c *WeeklyContext) Reset(weekStart time.Time, zones WeeklyZones, bias Bias) {
	c.CurrentWeekStart = weekStart
	c.Zones = zones
	c.Bias = bias
	c.FirstHourBar = nil
	c.WeeklyBars = c.WeeklyBars[:0]
	c.SignalTriggeredThisWeek = false
	c.TriggeredSignal = SignalNone
	c.TriggeredAt = time.Time{}
	c.S4BreakoutCandleHigh = nil
	c.S8BreakdownCandleLow = nil
	c.HasTouchedUpperZoneThisWeek = false
	c.WeeklyMaxHigh = 0
	c.WeeklyMinLow = 0
}

// FirstBar returns the first bar of the week, or nil if the week is empty
func (c *WeeklyContext) FirstBar() *Bar {
	if len(c.WeeklyBars) == 0 {
		return nil
	}
	return &c.WeeklyBars[0]
}

// IsSecondBar reports whether exactly two bars have been seen this week
func (c *WeeklyContext) IsSecondBar() bool {
	return len(c.WeeklyBars) == 2
}
