// Package solana wraps the ledger's JSON-RPC interface: token-account balance
// reads, transaction submission, and settlement confirmation.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/solkit/sniperbot/internal/domain"
)

// Client is a minimal Solana JSON-RPC client. All reads use the configured
// commitment level (typically "confirmed").
type Client struct {
	rpcURL     string
	commitment string
	httpClient *http.Client
	logger     *slog.Logger

	// confirmPollInterval controls how often ConfirmTransaction re-queries
	// signature status. Overridable in tests.
	confirmPollInterval time.Duration
}

// NewClient creates a Client for the given RPC endpoint.
func NewClient(rpcURL, commitment string, logger *slog.Logger) *Client {
	return &Client{
		rpcURL:     rpcURL,
		commitment: commitment,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:              logger.With(slog.String("component", "solana_rpc")),
		confirmPollInterval: 500 * time.Millisecond,
	}
}

// TokenBalance returns the raw smallest-unit balance of mint held by owner, as
// the decimal string the RPC reports. It returns domain.ErrNotFound when the
// owner has no token account for the mint.
func (c *Client) TokenBalance(ctx context.Context, owner, mint string) (string, error) {
	var accounts tokenAccountsResult
	err := c.call(ctx, "getTokenAccountsByOwner", []any{
		owner,
		map[string]any{"mint": mint},
		map[string]any{"encoding": "jsonParsed", "commitment": c.commitment},
	}, &accounts)
	if err != nil {
		return "", fmt.Errorf("solana: get token accounts for %s: %w", mint, err)
	}
	if len(accounts.Value) == 0 {
		return "", fmt.Errorf("solana: no token account for mint %s: %w", mint, domain.ErrNotFound)
	}

	var balance tokenBalanceResult
	err = c.call(ctx, "getTokenAccountBalance", []any{
		accounts.Value[0].Pubkey,
		map[string]any{"commitment": c.commitment},
	}, &balance)
	if err != nil {
		return "", fmt.Errorf("solana: get balance of %s: %w", accounts.Value[0].Pubkey, err)
	}

	return balance.Value.Amount, nil
}

// SendTransaction submits a signed, base64-encoded transaction and returns its
// signature. The RPC performs preflight simulation; a rejected transaction
// surfaces here as an RPC error.
func (c *Client) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	var signature string
	err := c.call(ctx, "sendTransaction", []any{
		signedTxBase64,
		map[string]any{"encoding": "base64", "preflightCommitment": c.commitment},
	}, &signature)
	if err != nil {
		return "", fmt.Errorf("solana: send transaction: %w", err)
	}
	return signature, nil
}

// ConfirmTransaction polls signature status until the transaction reaches the
// client's commitment level (or better) or ctx is done. A transaction that
// settled with an on-chain error is reported as an error.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.confirmPollInterval)
	defer ticker.Stop()

	for {
		var statuses signatureStatusesResult
		err := c.call(ctx, "getSignatureStatuses", []any{
			[]string{signature},
			map[string]any{"searchTransactionHistory": true},
		}, &statuses)
		if err != nil {
			return fmt.Errorf("solana: signature status of %s: %w", signature, err)
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return fmt.Errorf("solana: transaction %s failed on chain: %v", signature, st.Err)
			}
			switch st.ConfirmationStatus {
			case "confirmed", "finalized":
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w: %s", method, domain.ErrRateLimited, string(respBody))
		}
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if out != nil {
		if envelope.Result == nil {
			return errors.New(method + ": empty result")
		}
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
