// Package executor orchestrates the swap pipeline: quote, build, sign, submit,
// confirm, and entry-price derivation. Buy and full-liquidation sell share one
// parameterized pipeline so both directions get identical error handling.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

// QuoteClient is the aggregator interface: priced quotes and unsigned swap
// transactions.
type QuoteClient interface {
	GetQuote(ctx context.Context, inputMint, outputMint, amount string, slippageBps int) (domain.SwapQuote, error)
	GetSwapTransaction(ctx context.Context, quote domain.SwapQuote, userPublicKey string, wrapUnwrapSol bool) (string, error)
}

// ChainClient is the ledger interface: balance reads, submission, settlement.
type ChainClient interface {
	TokenBalance(ctx context.Context, owner, mint string) (string, error)
	SendTransaction(ctx context.Context, signedTxBase64 string) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
}

// Signer signs swap transactions with the holder's credential.
type Signer interface {
	Address() string
	SignTransaction(txBase64 string) (string, error)
}

// Config holds the pipeline's design constants.
type Config struct {
	// SpendSOL is the fixed native amount spent on every buy.
	SpendSOL decimal.Decimal
	// BuySlippageBps / SellSlippageBps are the per-direction slippage
	// tolerances in basis points. The sell side is wider: full-liquidation
	// urgency outweighs price precision.
	BuySlippageBps  int
	SellSlippageBps int
	// TokenDecimals is the decimal precision of the traded asset family.
	TokenDecimals int
	// TakeProfitMult / StopLossMult derive the exit thresholds from the entry
	// price at position open.
	TakeProfitMult decimal.Decimal
	StopLossMult   decimal.Decimal
	// MaxDuration is the holding-time ceiling for opened positions.
	MaxDuration time.Duration
	// NativeMint is the wrapped-SOL mint, the quote side of every swap.
	NativeMint string
}

// TradeExecutor performs buys and full liquidations through the
// quote → build → sign → submit pipeline. No step is retried; every failure
// propagates immediately as a typed error with the cause attached.
type TradeExecutor struct {
	quotes QuoteClient
	chain  ChainClient
	signer Signer
	cfg    Config
	logger *slog.Logger

	// mu serializes pipelines so concurrent calls cannot interleave balance
	// reads and submissions against the single wallet.
	mu sync.Mutex
}

// New creates a TradeExecutor.
func New(quotes QuoteClient, chain ChainClient, signer Signer, cfg Config, logger *slog.Logger) *TradeExecutor {
	return &TradeExecutor{
		quotes: quotes,
		chain:  chain,
		signer: signer,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "executor")),
	}
}

// Buy spends the configured SOL amount on mint, waits for the transaction to
// settle, derives the realized entry price from the resulting balance, and
// returns the opened position.
//
// If the entry price cannot be derived after a successful submission, the
// tokens were still bought: Buy attempts a compensating SellAll before
// returning domain.ErrPriceDerivation so no unmanaged position is left behind.
func (e *TradeExecutor) Buy(ctx context.Context, mint string) (*domain.TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tradeID := uuid.New().String()
	log := e.logger.With(
		slog.String("trade_id", tradeID),
		slog.String("mint", mint),
	)
	log.InfoContext(ctx, "buy started",
		slog.String("spend_sol", e.cfg.SpendSOL.String()),
	)

	lamports := e.cfg.SpendSOL.Shift(9).Truncate(0).String()

	signature, err := e.swap(ctx, swapParams{
		inputMint:     e.cfg.NativeMint,
		outputMint:    mint,
		amount:        lamports,
		slippageBps:   e.cfg.BuySlippageBps,
		wrapUnwrapSol: true,
	})
	if err != nil {
		return nil, err
	}

	// Wait for settlement before reading the balance; an immediate read races
	// the cluster and can observe a zero balance for a successful buy.
	if err := e.chain.ConfirmTransaction(ctx, signature); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}

	entry, err := e.executionPriceLocked(ctx, mint)
	if err != nil {
		log.ErrorContext(ctx, "entry price derivation failed, liquidating",
			slog.String("error", err.Error()),
		)
		if _, sellErr := e.sellAllLocked(ctx, mint); sellErr != nil && !errors.Is(sellErr, domain.ErrNoPosition) {
			log.ErrorContext(ctx, "compensating sell failed",
				slog.String("error", sellErr.Error()),
			)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPriceDerivation, err)
	}

	pos, err := domain.NewPosition(
		mint,
		entry,
		entry.Mul(e.cfg.TakeProfitMult),
		entry.Mul(e.cfg.StopLossMult),
		e.cfg.MaxDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPriceDerivation, err)
	}

	log.InfoContext(ctx, "buy settled",
		slog.String("signature", signature),
		slog.String("entry_price", entry.String()),
		slog.String("take_profit", pos.TakeProfitPrice.String()),
		slog.String("stop_loss", pos.StopLossPrice.String()),
	)

	return &domain.TradeResult{
		ID:        tradeID,
		Mint:      mint,
		Signature: signature,
		Position:  pos,
	}, nil
}

// SellAll liquidates the wallet's entire balance of mint back to SOL and
// returns the submitted transaction signature. A missing or empty token
// account is domain.ErrNoPosition; callers that are defensively closing a
// possibly-already-empty position treat that as a no-op.
func (e *TradeExecutor) SellAll(ctx context.Context, mint string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sellAllLocked(ctx, mint)
}

func (e *TradeExecutor) sellAllLocked(ctx context.Context, mint string) (string, error) {
	raw, err := e.chain.TokenBalance(ctx, e.signer.Address(), mint)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", domain.ErrNoPosition, err)
		}
		return "", fmt.Errorf("executor: read balance of %s: %w", mint, err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("executor: parse balance %q: %w", raw, err)
	}
	if amount.IsZero() {
		return "", fmt.Errorf("%w: zero balance of %s", domain.ErrNoPosition, mint)
	}

	e.logger.InfoContext(ctx, "liquidating position",
		slog.String("mint", mint),
		slog.String("raw_amount", raw),
	)

	signature, err := e.swap(ctx, swapParams{
		inputMint:     mint,
		outputMint:    e.cfg.NativeMint,
		amount:        raw,
		slippageBps:   e.cfg.SellSlippageBps,
		wrapUnwrapSol: false,
	})
	if err != nil {
		return "", err
	}

	e.logger.InfoContext(ctx, "liquidation submitted",
		slog.String("mint", mint),
		slog.String("signature", signature),
	)
	return signature, nil
}

// ExecutionPrice computes the realized entry price from the settled token
// balance: fixed spend divided by received amount at the configured token
// precision. A zero received amount is domain.ErrZeroBalance, never an
// infinite price.
func (e *TradeExecutor) ExecutionPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executionPriceLocked(ctx, mint)
}

func (e *TradeExecutor) executionPriceLocked(ctx context.Context, mint string) (decimal.Decimal, error) {
	raw, err := e.chain.TokenBalance(ctx, e.signer.Address(), mint)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: no token account for %s", domain.ErrZeroBalance, mint)
		}
		return decimal.Zero, fmt.Errorf("executor: read balance of %s: %w", mint, err)
	}

	rawAmount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("executor: parse balance %q: %w", raw, err)
	}
	if rawAmount.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero balance of %s", domain.ErrZeroBalance, mint)
	}

	tokens := rawAmount.Shift(int32(-e.cfg.TokenDecimals))
	return e.cfg.SpendSOL.Div(tokens), nil
}

// swapParams parameterizes one pass through the shared pipeline.
type swapParams struct {
	inputMint     string
	outputMint    string
	amount        string
	slippageBps   int
	wrapUnwrapSol bool
}

// swap runs quote → build → sign → submit and returns the signature.
func (e *TradeExecutor) swap(ctx context.Context, p swapParams) (string, error) {
	quote, err := e.quotes.GetQuote(ctx, p.inputMint, p.outputMint, p.amount, p.slippageBps)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}

	unsigned, err := e.quotes.GetSwapTransaction(ctx, quote, e.signer.Address(), p.wrapUnwrapSol)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSwapBuild, err)
	}

	signed, err := e.signer.SignTransaction(unsigned)
	if err != nil {
		return "", fmt.Errorf("%w: signing: %v", domain.ErrSwapBuild, err)
	}

	signature, err := e.chain.SendTransaction(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}

	return signature, nil
}
