package options

import "github.com/naveenvino/breezepython/internal/contracts"

// StrikesForSignal resolves the main (sold) and hedge (bought) strikes
// for a signal at the given spot. The main leg sells ATM; the hedge
// buys further OTM on the same side, hedgeOffset points away.
func StrikesForSignal(spot float64, signalType contracts.SignalType, hedgeOffset int) (mainStrike, hedgeStrike int) {
	atm := contracts.ATMStrike(spot, contracts.DefaultStrikeInterval)

	if signalType.Direction() == contracts.DirectionBullish {
		return atm, atm - hedgeOffset
	}
	return atm, atm + hedgeOffset
}
