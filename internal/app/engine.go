package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
	"github.com/solkit/sniperbot/internal/notify"
)

// Trader executes buys and full liquidations.
type Trader interface {
	Buy(ctx context.Context, mint string) (*domain.TradeResult, error)
	SellAll(ctx context.Context, mint string) (string, error)
}

// Supervisor tracks one open position and reports its exit.
type Supervisor interface {
	Start(ctx context.Context, mint string, entry, takeProfit, stopLoss decimal.Decimal, maxDuration time.Duration) error
	Position() *domain.Position
	Results() <-chan domain.ExitReport
}

// Validator vets a mint before any SOL is committed.
type Validator interface {
	Validate(ctx context.Context, mint string) error
}

// FeedStarter begins streaming live prices for mint and returns a stop
// function. Optional; a nil FeedStarter leaves the monitor on REST polling.
type FeedStarter func(ctx context.Context, mint string) (stop func())

// Engine is the trading facade behind the intake layer: it vets the token,
// buys, hands the opened position to the monitor, and relays lifecycle events
// to the notifier.
type Engine struct {
	validator Validator // nil skips pre-trade vetting
	trader    Trader
	monitor   Supervisor
	notifier  *notify.Notifier
	startFeed FeedStarter
	logger    *slog.Logger

	mu       sync.Mutex
	stopFeed func()
}

// NewEngine creates an Engine. validator and startFeed may be nil.
func NewEngine(validator Validator, trader Trader, monitor Supervisor, notifier *notify.Notifier, startFeed FeedStarter, logger *slog.Logger) *Engine {
	return &Engine{
		validator: validator,
		trader:    trader,
		monitor:   monitor,
		notifier:  notifier,
		startFeed: startFeed,
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// RequestTrade runs the full entry sequence for mint: reject if a position is
// already open, vet the token, buy, and start monitoring. If monitoring cannot
// start after a settled buy the tokens are liquidated immediately so nothing
// is left unwatched. The returned TradeResult carries the signature and the
// opened position for the caller's reply.
func (e *Engine) RequestTrade(ctx context.Context, mint string) (*domain.TradeResult, error) {
	if pos := e.monitor.Position(); pos != nil && !pos.Status.Terminal() {
		err := fmt.Errorf("%w: position on %s is still open", domain.ErrAlreadyMonitoring, pos.Mint)
		e.notifier.TradeFailed(ctx, mint, err)
		return nil, err
	}

	if e.validator != nil {
		if err := e.validator.Validate(ctx, mint); err != nil {
			e.logger.WarnContext(ctx, "token refused",
				slog.String("mint", mint),
				slog.String("error", err.Error()),
			)
			e.notifier.TradeFailed(ctx, mint, err)
			return nil, err
		}
	}

	res, err := e.trader.Buy(ctx, mint)
	if err != nil {
		e.notifier.TradeFailed(ctx, mint, err)
		return nil, err
	}

	pos := res.Position
	if err := e.monitor.Start(ctx, mint, pos.EntryPrice, pos.TakeProfitPrice, pos.StopLossPrice, pos.MaxDuration); err != nil {
		// The buy settled but nothing is watching the position: liquidate
		// rather than hold unmanaged risk.
		e.logger.ErrorContext(ctx, "monitoring failed to start, liquidating",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
		if _, sellErr := e.trader.SellAll(ctx, mint); sellErr != nil && !errors.Is(sellErr, domain.ErrNoPosition) {
			e.logger.ErrorContext(ctx, "liquidation after failed start also failed",
				slog.String("mint", mint),
				slog.String("error", sellErr.Error()),
			)
		}
		e.notifier.TradeFailed(ctx, mint, err)
		return nil, err
	}

	if e.startFeed != nil {
		e.setFeedStop(e.startFeed(ctx, mint))
	}

	e.notifier.TradeOpened(ctx, res)
	return res, nil
}

// ForwardResults relays exit reports from the monitor to the notifier until
// ctx ends. The live price feed for the closed mint is stopped alongside.
func (e *Engine) ForwardResults(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.setFeedStop(nil)
			return ctx.Err()
		case report := <-e.monitor.Results():
			e.setFeedStop(nil)
			e.notifier.PositionClosed(ctx, report)
		}
	}
}

func (e *Engine) setFeedStop(stop func()) {
	e.mu.Lock()
	prev := e.stopFeed
	e.stopFeed = stop
	e.mu.Unlock()
	if prev != nil {
		prev()
	}
}
