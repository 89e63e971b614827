// Package fxport is the HTTP-backed ExchangeRatePort (C14), grounded on the
// pack's exchange_rate_tool.go provider/client split — a small HTTP client
// fetching a base-currency rate table, reused here as the C4 currency
// converter's sole retryable dependency.
package fxport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"txledger/internal/money"
)

// Config points the client at a rates provider. BaseURL is expected to
// serve a JSON document shaped like {"base": "GBP", "rates": {"EUR": 1.17,
// ...}} — the common shape for public reference-rate APIs.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{BaseURL: "https://api.exchangerate.host/latest", Timeout: 10 * time.Second}
}

// Client implements ports.ExchangeRatePort over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// retryableHTTPError marks network failures and 5xx/429 responses as
// retryable for C13, leaving 4xx (bad currency code, auth) to surface
// immediately.
type retryableHTTPError struct {
	status int
	err    error
}

func (e *retryableHTTPError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("fxport: %v", e.err)
	}
	return fmt.Sprintf("fxport: provider returned status %d", e.status)
}
func (e *retryableHTTPError) Retryable() bool { return true }

// GetRate fetches the rate converting 1 unit of base into target. If
// target == base, it returns 1 without a round-trip.
func (c *Client) GetRate(ctx context.Context, base, target string) (money.Rate, error) {
	if base == target {
		return money.NewRate("1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return money.Rate{}, fmt.Errorf("fxport: building request: %w", err)
	}
	q := req.URL.Query()
	q.Set("base", base)
	q.Set("symbols", target)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return money.Rate{}, &retryableHTTPError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return money.Rate{}, &retryableHTTPError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return money.Rate{}, fmt.Errorf("fxport: provider returned status %d", resp.StatusCode)
	}

	var raw ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return money.Rate{}, fmt.Errorf("fxport: decoding provider response: %w", err)
	}

	rate, ok := raw.Rates[target]
	if !ok {
		return money.Rate{}, fmt.Errorf("fxport: provider response missing rate for %s", target)
	}

	return money.NewRate(fmt.Sprintf("%.6f", rate))
}
