// Package birdeye is the REST client for the Birdeye public API, used as the
// fallback price source and for pre-trade liquidity checks.
package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

// PriceData is the price endpoint payload: the spot price and the pool
// liquidity, both in quote-currency units.
type PriceData struct {
	Value     decimal.Decimal
	Liquidity decimal.Decimal
}

// Client talks to the Birdeye /defi endpoints. Every request carries the
// account API key in the X-API-KEY header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given API root and key.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With(slog.String("component", "birdeye")),
	}
}

// Price fetches the spot price and liquidity for mint.
func (c *Client) Price(ctx context.Context, mint string) (PriceData, error) {
	params := url.Values{}
	params.Set("address", mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/defi/price?"+params.Encode(), nil)
	if err != nil {
		return PriceData{}, fmt.Errorf("birdeye: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PriceData{}, fmt.Errorf("birdeye: price request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceData{}, fmt.Errorf("birdeye: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return PriceData{}, fmt.Errorf("birdeye: %w: %s", domain.ErrUnauthorized, string(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return PriceData{}, fmt.Errorf("birdeye: %w: %s", domain.ErrRateLimited, string(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return PriceData{}, fmt.Errorf("birdeye: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Value     json.Number `json:"value"`
			Liquidity json.Number `json:"liquidity"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return PriceData{}, fmt.Errorf("birdeye: decode response: %w", err)
	}
	if !payload.Success || payload.Data.Value == "" {
		return PriceData{}, fmt.Errorf("birdeye: no price data for %s: %w", mint, domain.ErrNotFound)
	}

	value, err := decimal.NewFromString(payload.Data.Value.String())
	if err != nil {
		return PriceData{}, fmt.Errorf("birdeye: parse price %q: %w", payload.Data.Value, err)
	}

	liquidity := decimal.Zero
	if payload.Data.Liquidity != "" {
		liquidity, err = decimal.NewFromString(payload.Data.Liquidity.String())
		if err != nil {
			return PriceData{}, fmt.Errorf("birdeye: parse liquidity %q: %w", payload.Data.Liquidity, err)
		}
	}

	return PriceData{Value: value, Liquidity: liquidity}, nil
}

// Liquidity returns just the pool liquidity, for pre-trade validation.
func (c *Client) Liquidity(ctx context.Context, mint string) (decimal.Decimal, error) {
	data, err := c.Price(ctx, mint)
	if err != nil {
		return decimal.Zero, err
	}
	return data.Liquidity, nil
}

// SpotPrice returns just the price, for use as a fallback price source.
func (c *Client) SpotPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	data, err := c.Price(ctx, mint)
	if err != nil {
		return decimal.Zero, err
	}
	return data.Value, nil
}
