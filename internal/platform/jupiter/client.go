// Package jupiter is the REST client for the Jupiter aggregator: price
// quotes, unsigned swap-transaction construction, and the free price API used
// for monitoring.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/solkit/sniperbot/internal/domain"
)

// Client talks to the Jupiter quote/swap API and the price API. Concurrency
// is capped with a weighted semaphore to stay inside the free-tier rate limit.
type Client struct {
	baseURL    string
	priceURL   string
	vsToken    string
	httpClient *http.Client
	sem        *semaphore.Weighted
	logger     *slog.Logger
}

// NewClient creates a Client. baseURL is the quote/swap API root, priceURL the
// price API root, and vsToken the mint prices are denominated in (wrapped
// SOL). maxConcurrent caps in-flight requests.
func NewClient(baseURL, priceURL, vsToken string, maxConcurrent int64, logger *slog.Logger) *Client {
	if maxConcurrent <= 0 {
		maxConcurrent = 30
	}
	return &Client{
		baseURL:  baseURL,
		priceURL: priceURL,
		vsToken:  vsToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger.With(slog.String("component", "jupiter")),
	}
}

// GetQuote requests a quote for converting amount (smallest units, decimal
// string) of inputMint into outputMint within the given slippage tolerance.
// The quote body is returned opaquely for the swap-build call.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (domain.SwapQuote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount)
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return domain.SwapQuote{}, fmt.Errorf("jupiter: quote %s->%s: %w", inputMint, outputMint, err)
	}

	var out quoteOutAmount
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.SwapQuote{}, fmt.Errorf("jupiter: decode quote: %w", err)
	}

	return domain.SwapQuote{Raw: body, OutAmount: out.OutAmount}, nil
}

// GetSwapTransaction asks the aggregator to build the unsigned transaction for
// a previously obtained quote. wrapUnwrapSol is set on the buy side so the
// spend amount is auto-wrapped from native SOL. The returned string is the
// base64-encoded unsigned transaction.
func (c *Client) GetSwapTransaction(ctx context.Context, quote domain.SwapQuote, userPublicKey string, wrapUnwrapSol bool) (string, error) {
	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             json.RawMessage(quote.Raw),
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          wrapUnwrapSol,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("jupiter: marshal swap request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/swap", reqBody)
	if err != nil {
		return "", fmt.Errorf("jupiter: build swap: %w", err)
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("jupiter: decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter: swap response carries no transaction")
	}

	return resp.SwapTransaction, nil
}

// Price returns the current price of mint denominated in the client's
// vsToken. It returns domain.ErrNotFound when the price API has no data for
// the mint.
func (c *Client) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", mint)
	params.Set("vsToken", c.vsToken)

	body, err := c.doRequest(ctx, http.MethodGet, c.priceURL+"?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("jupiter: price of %s: %w", mint, err)
	}

	var resp priceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("jupiter: decode price response: %w", err)
	}

	entry, ok := resp.Data[mint]
	if !ok || entry.Price == "" {
		return decimal.Zero, fmt.Errorf("jupiter: no price for %s: %w", mint, domain.ErrNotFound)
	}

	price, err := decimal.NewFromString(entry.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("jupiter: parse price %q: %w", entry.Price, err)
	}
	return price, nil
}

// doRequest acquires a rate-limit slot, performs the HTTP round trip, and
// returns the raw response body. Non-2xx responses are hard failures.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire rate-limit slot: %w", err)
	}
	defer c.sem.Release(1)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(respBody))
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
