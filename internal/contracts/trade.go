package contracts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeOutcome is the lifecycle state of a simulated trade.
// OPEN is the only non-terminal state; transitions are one-way.
type TradeOutcome string

const (
	OutcomeOpen    TradeOutcome = "OPEN"
	OutcomeWin     TradeOutcome = "WIN"
	OutcomeLoss    TradeOutcome = "LOSS"
	OutcomeStopped TradeOutcome = "STOPPED"
	OutcomeExpired TradeOutcome = "EXPIRED"
)

// PositionType marks the role of a leg inside a trade
type PositionType string

const (
	PositionMain  PositionType = "MAIN"  // sold leg
	PositionHedge PositionType = "HEDGE" // bought leg
)

// Position is a single option leg owned by its Trade. Quantity is
// signed: negative means sold (short premium), positive means bought.
type Position struct {
	PositionType PositionType    `json:"position_type"`
	OptionType   OptionType      `json:"option_type"`
	StrikePrice  int             `json:"strike_price"`
	ExpiryDate   time.Time       `json:"expiry_date"`
	EntryTime    time.Time       `json:"entry_time"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	ExitTime     time.Time       `json:"exit_time,omitempty"`
	ExitPrice    decimal.Decimal `json:"exit_price"`
	Quantity     int             `json:"quantity"`

	GrossPnL   decimal.Decimal `json:"gross_pnl"`
	Commission decimal.Decimal `json:"commission"`
	NetPnL     decimal.Decimal `json:"net_pnl"`
}

// Settle fixes the exit price and computes gross, commission and net
// P&L for this leg. Sold legs profit when premium decays; bought legs
// profit when it expands. Commission is charged per lot, both sides.
func (p *Position) Settle(exitTime time.Time, exitPrice decimal.Decimal, lotSize int, commissionPerLot decimal.Decimal) {
	p.ExitTime = exitTime
	p.ExitPrice = exitPrice

	qty := decimal.NewFromInt(int64(abs(p.Quantity)))
	if p.Quantity < 0 {
		// Sold option: entry premium received, exit premium paid back
		p.GrossPnL = qty.Mul(p.EntryPrice.Sub(p.ExitPrice))
	} else {
		// Bought option
		p.GrossPnL = qty.Mul(p.ExitPrice.Sub(p.EntryPrice))
	}

	lots := abs(p.Quantity) / lotSize
	p.Commission = decimal.NewFromInt(int64(lots)).Mul(commissionPerLot).Mul(decimal.NewFromInt(2))
	p.NetPnL = p.GrossPnL.Sub(p.Commission)
}

// Trade records one signal-driven round trip through the market
type Trade struct {
	ID               string          `json:"id"`
	WeekStartDate    time.Time       `json:"week_start_date"`
	SignalType       SignalType      `json:"signal_type"`
	Direction        TradeDirection  `json:"direction"`
	EntryTime        time.Time       `json:"entry_time"`
	ExitTime         time.Time       `json:"exit_time,omitempty"`
	IndexPriceEntry  float64         `json:"index_price_at_entry"`
	IndexPriceExit   float64         `json:"index_price_at_exit"`
	StopLossPrice    float64         `json:"stop_loss_price"`
	Outcome          TradeOutcome    `json:"outcome"`
	ExitReason       string          `json:"exit_reason,omitempty"`
	Positions        []*Position     `json:"positions"`
	TotalPnL         decimal.Decimal `json:"total_pnl"`

	// Weekly context snapshot captured at entry
	ResistanceZoneTop    float64       `json:"resistance_zone_top"`
	ResistanceZoneBottom float64       `json:"resistance_zone_bottom"`
	SupportZoneTop       float64       `json:"support_zone_top"`
	SupportZoneBottom    float64       `json:"support_zone_bottom"`
	BiasDirection        BiasDirection `json:"bias_direction"`
	BiasStrength         float64       `json:"bias_strength"`
	WeeklyMaxHigh        float64       `json:"weekly_max_high"`
	WeeklyMinLow         float64       `json:"weekly_min_low"`
}

// IsOpen reports whether the trade is still live
func (t *Trade) IsOpen() bool {
	return t.Outcome == OutcomeOpen
}

// Close marks the trade terminal. Calling Close on an already closed
// trade is a programming error and is rejected.
func (t *Trade) Close(exitTime time.Time, indexPrice float64, outcome TradeOutcome, reason string) error {
	if !t.IsOpen() {
		return fmt.Errorf("trade %s already closed with outcome %s", t.ID, t.Outcome)
	}

	t.ExitTime = exitTime
	t.IndexPriceExit = indexPrice
	t.Outcome = outcome
	t.ExitReason = reason
	return nil
}

// FinalizePnL sums the settled legs into TotalPnL and flips the
// outcome to WIN or LOSS on the sign. A dead-even total keeps the
// outcome set at close time (STOPPED/EXPIRED).
func (t *Trade) FinalizePnL() {
	total := decimal.Zero
	for _, p := range t.Positions {
		total = total.Add(p.NetPnL)
	}
	t.TotalPnL = total

	if total.IsPositive() {
		t.Outcome = OutcomeWin
	} else if total.IsNegative() {
		t.Outcome = OutcomeLoss
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
