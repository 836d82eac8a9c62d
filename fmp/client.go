// Package fmp is a minimal client for the Financial Modeling Prep end-of-day price API.
package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public FMP API host.
const DefaultBaseURL = "https://financialmodelingprep.com"

const eodPath = "/stable/historical-price-eod/full"

// DateLayout is the calendar-date format used in FMP queries and responses.
const DateLayout = "2006-01-02"

// ErrMissingAPIKey is returned before any request is made when no key is configured.
var ErrMissingAPIKey = errors.New("FMP API key not configured")

// EODBar is one daily bar exactly as FMP returns it.
type EODBar struct {
	Symbol        string  `json:"symbol"`
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	VWAP          float64 `json:"vwap"`
}

// Client handles FMP API operations
type Client struct {
	client *resty.Client
	apiKey string
}

// NewClient creates a new FMP client. timeout bounds every request; an empty
// baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{
		client: client,
		apiKey: apiKey,
	}
}

// FetchEOD returns the daily bars for symbol in [from, to].
func (c *Client) FetchEOD(ctx context.Context, symbol string, from, to time.Time) ([]EODBar, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format(DateLayout),
			"to":     to.Format(DateLayout),
			"apikey": c.apiKey,
		}).
		Get(eodPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EOD data for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{Symbol: symbol, StatusCode: resp.StatusCode()}
	}

	var bars []EODBar
	if err := json.Unmarshal(resp.Body(), &bars); err != nil {
		return nil, fmt.Errorf("failed to parse EOD response for %s: %w", symbol, err)
	}

	for _, b := range bars {
		if _, err := time.Parse(DateLayout, b.Date); err != nil {
			return nil, fmt.Errorf("malformed date %q for %s: %w", b.Date, symbol, err)
		}
	}

	return bars, nil
}

// StatusError reports a non-2xx response from FMP.
type StatusError struct {
	Symbol     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error %d for %s", e.StatusCode, e.Symbol)
}
