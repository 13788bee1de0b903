package contracts

import (
	"fmt"
	"math"
	"time"
)

// SignalType identifies one of the eight weekly trading signals
type SignalType string

const (
	SignalNone SignalType = ""
	SignalS1   SignalType = "S1" // Bear Trap (bullish)
	SignalS2   SignalType = "S2" // Support Hold (bullish)
	SignalS3   SignalType = "S3" // Resistance Hold (bearish)
	SignalS4   SignalType = "S4" // Bias Failure Bull (bullish)
	SignalS5   SignalType = "S5" // Bias Failure Bear (bearish)
	SignalS6   SignalType = "S6" // Weakness Confirmed (bearish)
	SignalS7   SignalType = "S7" // 1H Breakout Confirmed (bullish)
	SignalS8   SignalType = "S8" // 1H Breakdown Confirmed (bearish)
)

// AllSignalTypes lists the signals in strict priority order
var AllSignalTypes = []SignalType{
	SignalS1, SignalS2, SignalS3, SignalS4,
	SignalS5, SignalS6, SignalS7, SignalS8,
}

// ParseSignalTypes validates a list of signal names
func ParseSignalTypes(names []string) ([]SignalType, error) {
	valid := make(map[SignalType]bool, len(AllSignalTypes))
	for _, s := range AllSignalTypes {
		valid[s] = true
	}

	types := make([]SignalType, 0, len(names))
	for _, name := range names {
		st := SignalType(name)
		if !valid[st] {
			return nil, fmt.Errorf("unknown signal type: %q", name)
		}
		types = append(types, st)
	}
	return types, nil
}

// TradeDirection is the directional stance of a signal/trade
type TradeDirection string

const (
	DirectionBullish TradeDirection = "BULLISH"
	DirectionBearish TradeDirection = "BEARISH"
)

// OptionType distinguishes calls and puts
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// Direction returns the trade direction a signal implies.
// S1, S2, S4, S7 are bullish; S3, S5, S6, S8 are bearish.
func (s SignalType) Direction() TradeDirection {
	switch s {
	case SignalS1, SignalS2, SignalS4, SignalS7:
		return DirectionBullish
	default:
		return DirectionBearish
	}
}

// OptionToSell returns the option type sold for a signal: bullish
// signals sell puts, bearish signals sell calls.
func (s SignalType) OptionToSell() OptionType {
	if s.Direction() == DirectionBullish {
		return OptionPut
	}
	return OptionCall
}

// SignalResult is the immutable outcome of one evaluation pass.
// The zero value means "no signal".
type SignalResult struct {
	IsTriggered bool           `json:"is_triggered"`
	SignalType  SignalType     `json:"signal_type"`
	Direction   TradeDirection `json:"direction,omitempty"`
	EntryTime   time.Time      `json:"entry_time"`
	EntryPrice  float64        `json:"entry_price"`
	StopLoss    float64        `json:"stop_loss"`
	OptionType  OptionType     `json:"option_type,omitempty"`
	StrikePrice int            `json:"strike_price"`
	Confidence  float64        `json:"confidence"`
}

// NoSignal returns the inert result
func NoSignal() SignalResult {
	return SignalResult{}
}

// NewSignal builds a triggered result, deriving direction, option type
// and the ATM strike from the signal type and entry price.
func NewSignal(st SignalType, entryTime time.Time, entryPrice, stopLoss, confidence float64) SignalResult {
	return SignalResult{
		IsTriggered: true,
		SignalType:  st,
		Direction:   st.Direction(),
		EntryTime:   entryTime,
		EntryPrice:  entryPrice,
		StopLoss:    stopLoss,
		OptionType:  st.OptionToSell(),
		StrikePrice: ATMStrike(entryPrice, DefaultStrikeInterval),
		Confidence:  confidence,
	}
}

// DefaultStrikeInterval is the NIFTY weekly option strike spacing
const DefaultStrikeInterval = 50

// ATMStrike rounds spot to the nearest strike on the given interval
func ATMStrike(spot float64, interval int) int {
	if interval <= 0 {
		interval = DefaultStrikeInterval
	}
	return int(math.Round(spot/float64(interval))) * interval
}
