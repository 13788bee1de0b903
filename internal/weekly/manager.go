package weekly

import (
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// NSE session window for hourly bars, minutes from midnight.
// Bars are stamped at their open (09:15 .. 15:15).
const (
	sessionOpenMinute  = 9*60 + 15  // 09:15
	sessionCloseMinute = 15*60 + 30 // 15:30
)

// Manager maintains the rolling weekly context: zones, bias, first-hour
// bar and per-week trackers. The trading week is anchored on Monday
// 00:00 everywhere, including expiry math.
type Manager struct {
	logger *logger.Logger
	ctx    contracts.WeeklyContext
}

// NewManager creates a weekly context manager
func NewManager(log *logger.Logger) *Manager {
	return &Manager{logger: log}
}

// Context exposes the current weekly context for read access
func (m *Manager) Context() *contracts.WeeklyContext {
	return &m.ctx
}

// IsMarketHours reports whether ts falls inside the trading session
// (09:15-15:30) on a weekday.
func IsMarketHours(ts time.Time) bool {
	switch ts.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := ts.Hour()*60 + ts.Minute()
	return minute >= sessionOpenMinute && minute < sessionCloseMinute
}

// WeekStart maps any timestamp to Monday 00:00 of its trading week
func WeekStart(ts time.Time) time.Time {
	daysBack := (int(ts.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	return day.AddDate(0, 0, -daysBack)
}

// ExpiryForWeek returns the weekly option expiry for the week starting
// at weekStart: Thursday 15:30.
func ExpiryForWeek(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 3).Add(time.Duration(sessionCloseMinute) * time.Minute)
}

// NextExpiry returns the first weekly expiry at or after ts
func NextExpiry(ts time.Time) time.Time {
	expiry := ExpiryForWeek(WeekStart(ts))
	if !ts.After(expiry) {
		return expiry
	}
	return ExpiryForWeek(WeekStart(ts).AddDate(0, 0, 7))
}

// SameDay reports whether two timestamps fall on the same calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PreviousWeekBars returns the bars belonging to the week immediately
// before the week containing ts, or nil when that history is absent.
// Callers must skip evaluation for the bar in that case.
func PreviousWeekBars(ts time.Time, history []contracts.Bar) []contracts.Bar {
	weekStart := WeekStart(ts)
	prevStart := weekStart.AddDate(0, 0, -7)

	var bars []contracts.Bar
	for _, bar := range history {
		if !bar.Timestamp.Before(prevStart) && bar.Timestamp.Before(weekStart) {
			bars = append(bars, bar)
		}
	}
	return bars
}

// WeekAggregates reduces a week of bars to its high, low and final close
func WeekAggregates(bars []contracts.Bar) (high, low, close float64) {
	if len(bars) == 0 {
		return 0, 0, 0
	}

	high = bars[0].High
	low = bars[0].Low
	for _, bar := range bars[1:] {
		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}
	return high, low, bars[len(bars)-1].Close
}

// UpdateContext advances the weekly context with the next bar. On a week
// boundary the context is reset: zones and bias are recomputed from the
// previous week's bars and all per-week trackers are cleared. The same
// context instance is returned every call; the simulation loop owns it.
func (m *Manager) UpdateContext(bar contracts.Bar, prevWeekBars []contracts.Bar) *contracts.WeeklyContext {
	weekStart := WeekStart(bar.Timestamp)

	if !weekStart.Equal(m.ctx.CurrentWeekStart) {
		high, low, close := WeekAggregates(prevWeekBars)
		zones := contracts.NewWeeklyZones(high, low, close)
		bias := contracts.ClassifyBias(zones)

		m.ctx.Reset(weekStart, zones, bias)

		m.logger.WithFields(map[string]interface{}{
			"week_start":     weekStart.Format("2006-01-02"),
			"prev_high":      high,
			"prev_low":       low,
			"prev_close":     close,
			"bias":           string(bias.Direction),
			"support_bottom": zones.LowerZoneBottom,
			"resist_bottom":  zones.UpperZoneBottom,
		}).Debug("Weekly context reset")
	}

	if m.ctx.FirstHourBar == nil {
		first := bar
		m.ctx.FirstHourBar = &first
	}

	m.ctx.WeeklyBars = append(m.ctx.WeeklyBars, bar)

	if len(m.ctx.WeeklyBars) == 1 {
		m.ctx.WeeklyMaxHigh = bar.High
		m.ctx.WeeklyMinLow = bar.Low
	} else {
		if bar.High > m.ctx.WeeklyMaxHigh {
			m.ctx.WeeklyMaxHigh = bar.High
		}
		if bar.Low < m.ctx.WeeklyMinLow {
			m.ctx.WeeklyMinLow = bar.Low
		}
	}

	if bar.High >= m.ctx.Zones.UpperZoneBottom {
		m.ctx.HasTouchedUpperZoneThisWeek = true
	}

	return &m.ctx
}
