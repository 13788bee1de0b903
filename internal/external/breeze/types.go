package breeze

import (
	"fmt"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// Wire formats used by the Breeze REST API. All numeric fields arrive
// as strings.
const (
	exchangeNSE = "NSE"
	exchangeNFO = "NFO"

	productCash    = "cash"
	productOptions = "options"

	intervalHourly = "1hour"

	apiTimeFormat = "2006-01-02T15:04:05.000Z"
)

// historicalBar is one OHLCV row from the historical data endpoint
type historicalBar struct {
	Datetime     string `json:"datetime"`
	Open         string `json:"open"`
	High         string `json:"high"`
	Low          string `json:"low"`
	Close        string `json:"close"`
	Volume       string `json:"volume"`
	OpenInterest string `json:"open_interest"`
}

// historicalDataResponse is the envelope around historical data rows
type historicalDataResponse struct {
	Success []historicalBar `json:"Success"`
	Status  int             `json:"Status"`
	Error   *string         `json:"Error"`
}

// customerDetailsResponse is the envelope for session validation
type customerDetailsResponse struct {
	Success struct {
		SessionToken string `json:"session_token"`
		IDirectUser  string `json:"idirect_user_name"`
	} `json:"Success"`
	Status int     `json:"Status"`
	Error  *string `json:"Error"`
}

// optionRight maps internal option types to the vendor's naming
func optionRight(optionType contracts.OptionType) string {
	if optionType == contracts.OptionCall {
		return "call"
	}
	return "put"
}

func parseAPITime(value string) (time.Time, error) {
	for _, layout := range []string{apiTimeFormat, "2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", value)
}
