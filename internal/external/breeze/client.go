package breeze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/config"
	"github.com/naveenvino/breezepython/pkg/httputil"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// Client handles communication with the ICICI Breeze REST API.
// All vendor calls go through this client; the limiter enforces the
// per-second request quota so bulk collection cannot trip the vendor.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.BreezeConfig
	limiter    *rate.Limiter

	indexCode string
}

// NewClient creates a new Breeze API client
func NewClient(cfg config.BreezeConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		indexCode:  "NIFTY",
	}
}

// ValidateSession verifies the configured session token against the
// customer details endpoint. Breeze session tokens expire daily.
func (c *Client) ValidateSession(ctx context.Context) error {
	payload := map[string]string{
		"SessionToken": c.cfg.SessionToken,
		"AppKey":       c.cfg.APIKey,
	}

	var result customerDetailsResponse
	if err := c.request(ctx, http.MethodGet, "/customerdetails", payload, &result); err != nil {
		return err
	}
	if result.Error != nil {
		return fmt.Errorf("session invalid: %s", *result.Error)
	}

	c.logger.WithField("user", result.Success.IDirectUser).Info("Breeze session validated")
	return nil
}

// IndexBars fetches hourly index bars for [from, to]
func (c *Client) IndexBars(ctx context.Context, from, to time.Time) ([]contracts.Bar, error) {
	payload := map[string]string{
		"interval":      intervalHourly,
		"from_date":     from.Format(apiTimeFormat),
		"to_date":       to.Format(apiTimeFormat),
		"stock_code":    c.indexCode,
		"exchange_code": exchangeNSE,
		"product_type":  productCash,
	}

	var result historicalDataResponse
	if err := c.request(ctx, http.MethodGet, "/historicalcharts", payload, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("historical data error: %s", *result.Error)
	}

	bars := make([]contracts.Bar, 0, len(result.Success))
	for _, row := range result.Success {
		bar, err := rowToBar(row)
		if err != nil {
			c.logger.WithError(err).Warn("Skipping malformed bar row")
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// OptionQuotes fetches hourly option bars for one contract in [from, to]
func (c *Client) OptionQuotes(ctx context.Context, from, to time.Time, strike int, optionType contracts.OptionType, expiry time.Time) ([]contracts.OptionQuote, error) {
	payload := map[string]string{
		"interval":      intervalHourly,
		"from_date":     from.Format(apiTimeFormat),
		"to_date":       to.Format(apiTimeFormat),
		"stock_code":    c.indexCode,
		"exchange_code": exchangeNFO,
		"product_type":  productOptions,
		"expiry_date":   expiry.Format(apiTimeFormat),
		"right":         optionRight(optionType),
		"strike_price":  strconv.Itoa(strike),
	}

	var result historicalDataResponse
	if err := c.request(ctx, http.MethodGet, "/historicalcharts", payload, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("option data error: %s", *result.Error)
	}

	quotes := make([]contracts.OptionQuote, 0, len(result.Success))
	for _, row := range result.Success {
		quote, err := rowToQuote(row, strike, optionType, expiry)
		if err != nil {
			c.logger.WithError(err).Warn("Skipping malformed option row")
			continue
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// request signs and executes one API call under the rate limiter
func (c *Client) request(ctx context.Context, method, path string, payload map[string]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	timestamp := time.Now().UTC().Format(apiTimeFormat)

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Checksum", "token "+c.checksum(timestamp, string(body)))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-AppKey", c.cfg.APIKey)
	req.Header.Set("X-SessionToken", c.cfg.SessionToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checksum computes the request signature the API expects:
// SHA256(timestamp + body + secret), hex encoded.
func (c *Client) checksum(timestamp, body string) string {
	sum := sha256.Sum256([]byte(timestamp + body + c.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}

func rowToBar(row historicalBar) (contracts.Bar, error) {
	ts, err := parseAPITime(row.Datetime)
	if err != nil {
		return contracts.Bar{}, err
	}

	open, err1 := strconv.ParseFloat(row.Open, 64)
	high, err2 := strconv.ParseFloat(row.High, 64)
	low, err3 := strconv.ParseFloat(row.Low, 64)
	close, err4 := strconv.ParseFloat(row.Close, 64)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return contracts.Bar{}, fmt.Errorf("parse OHLC: %w", err)
		}
	}

	return contracts.NewBar(ts, open, high, low, close), nil
}

func rowToQuote(row historicalBar, strike int, optionType contracts.OptionType, expiry time.Time) (contracts.OptionQuote, error) {
	ts, err := parseAPITime(row.Datetime)
	if err != nil {
		return contracts.OptionQuote{}, err
	}

	last, err := strconv.ParseFloat(row.Close, 64)
	if err != nil {
		return contracts.OptionQuote{}, fmt.Errorf("parse close: %w", err)
	}

	quote := contracts.OptionQuote{
		Timestamp:   ts,
		StrikePrice: strike,
		OptionType:  optionType,
		Expiry:      expiry,
		LastPrice:   last,
	}

	if row.Volume != "" {
		quote.Volume, _ = strconv.ParseInt(row.Volume, 10, 64)
	}
	if row.OpenInterest != "" {
		quote.OpenInterest, _ = strconv.ParseInt(row.OpenInterest, 10, 64)
	}
	return quote, nil
}
