package contracts

// ZoneWidthPct is the width of each support/resistance band as a
// fraction of the previous week's range.
const ZoneWidthPct = 0.025

// WeeklyZones holds the support and resistance bands derived from the
// previous week's high/low/close. Recomputed once per week and frozen
// for that week's evaluation.
type WeeklyZones struct {
	PrevWeekHigh  float64 `json:"prev_week_high"`
	PrevWeekLow   float64 `json:"prev_week_low"`
	PrevWeekClose float64 `json:"prev_week_close"`

	// Resistance band: UpperZoneTop == PrevWeekHigh
	UpperZoneBottom float64 `json:"upper_zone_bottom"`
	UpperZoneTop    float64 `json:"upper_zone_top"`

	// Support band: LowerZoneBottom == PrevWeekLow
	LowerZoneBottom float64 `json:"lower_zone_bottom"`
	LowerZoneTop    float64 `json:"lower_zone_top"`
}

// NewWeeklyZones derives the zone bands from the previous week's aggregates
func NewWeeklyZones(weekHigh, weekLow, weekClose float64) WeeklyZones {
	zoneSize := (weekHigh - weekLow) * ZoneWidthPct

	return WeeklyZones{
		PrevWeekHigh:    weekHigh,
		PrevWeekLow:     weekLow,
		PrevWeekClose:   weekClose,
		UpperZoneBottom: weekHigh - zoneSize,
		UpperZoneTop:    weekHigh,
		LowerZoneBottom: weekLow,
		LowerZoneTop:    weekLow + zoneSize,
	}
}

// IsNearUpperZone reports whether price falls inside the resistance band (inclusive)
func (z WeeklyZones) IsNearUpperZone(price float64) bool {
	return price >= z.UpperZoneBottom && price <= z.UpperZoneTop
}

// IsNearLowerZone reports whether price falls inside the support band (inclusive)
func (z WeeklyZones) IsNearLowerZone(price float64) bool {
	return price >= z.LowerZoneBottom && price <= z.LowerZoneTop
}

// BiasDirection is the directional lean inferred from the previous week's close
type BiasDirection string

const (
	BiasBullish BiasDirection = "BULLISH"
	BiasBearish BiasDirection = "BEARISH"
	BiasNeutral BiasDirection = "NEUTRAL"
)

// Bias describes the market lean for the week, derived from where the
// previous week closed relative to the zones.
type Bias struct {
	Direction            BiasDirection `json:"direction"`
	Strength             float64       `json:"strength"` // 0..1, depth into the zone
	DistanceToResistance float64       `json:"distance_to_resistance"`
	DistanceToSupport    float64       `json:"distance_to_support"`
}

// IsBullish reports whether the bias leans bullish
func (b Bias) IsBullish() bool {
	return b.Direction == BiasBullish
}

// IsBearish reports whether the bias leans bearish
func (b Bias) IsBearish() bool {
	return b.Direction == BiasBearish
}

// ClassifyBias derives the weekly bias from the zones.
// A close inside or beyond the resistance band leans bearish (resistance
// expected to cap price), a close inside or beyond the support band leans
// bullish (support expected to hold), anything in between is neutral.
func ClassifyBias(z WeeklyZones) Bias {
	close := z.PrevWeekClose

	bias := Bias{
		Direction:            BiasNeutral,
		DistanceToResistance: z.UpperZoneBottom - close,
		DistanceToSupport:    close - z.LowerZoneTop,
	}

	switch {
	case close >= z.UpperZoneBottom:
		bias.Direction = BiasBearish
		bias.Strength = zoneDepth(close, z.UpperZoneBottom, z.UpperZoneTop)
	case close <= z.LowerZoneTop:
		bias.Direction = BiasBullish
		bias.Strength = zoneDepth(close, z.LowerZoneTop, z.LowerZoneBottom)
	}

	return bias
}

// zoneDepth normalizes how far price penetrated a band, clamped to [0,1].
// edge is the inner boundary, extreme the outer one.
func zoneDepth(price, edge, extreme float64) float64 {
	width := extreme - edge
	if width == 0 {
		return 1
	}

	depth := (price - edge) / width
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	return depth
}
