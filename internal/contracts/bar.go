package contracts

import (
	"math"
	"time"
)

// Bar is an immutable hourly OHLC record for the index.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// NewBar constructs a Bar from raw OHLC values
func NewBar(ts time.Time, open, high, low, close float64) Bar {
	return Bar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
	}
}

// BodyRange returns the absolute distance between open and close
func (b Bar) BodyRange() float64 {
	return math.Abs(b.Open - b.Close)
}

// IsBullish reports whether the bar closed above its open
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish reports whether the bar closed below its open
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}
