package contracts

import "time"

// OptionQuote is one historical option observation as stored by the
// collector. Bid/ask may be zero when the feed only carried trades.
type OptionQuote struct {
	Timestamp   time.Time  `json:"timestamp"`
	StrikePrice int        `json:"strike_price"`
	OptionType  OptionType `json:"option_type"`
	Expiry      time.Time  `json:"expiry"`
	BidPrice    float64    `json:"bid_price"`
	AskPrice    float64    `json:"ask_price"`
	LastPrice   float64    `json:"last_price"`
	OpenInterest int64     `json:"open_interest"`
	Volume       int64     `json:"volume"`
}

// Mid returns the usable price for the quote: the bid/ask midpoint when
// both sides exist, otherwise the last traded price.
func (q OptionQuote) Mid() float64 {
	if q.BidPrice > 0 && q.AskPrice > 0 {
		return (q.BidPrice + q.AskPrice) / 2
	}
	return q.LastPrice
}
