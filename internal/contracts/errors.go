package contracts

import "errors"

// Error taxonomy for the simulation core. Per-bar data and pricing
// gaps degrade gracefully inside the loop; only configuration and
// unexpected errors propagate to the caller.
var (
	// ErrDataUnavailable means no bars or no previous-week context
	// exist for a timestamp. The affected bar is skipped.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrPricingUnavailable means no option price could be resolved.
	// The main leg abandons the trade; other lookups fall back.
	ErrPricingUnavailable = errors.New("option price unavailable")
)
