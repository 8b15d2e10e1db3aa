// Package monitor supervises one open position at a time: it polls the price
// on a fixed interval and liquidates when the take-profit, stop-loss, or
// holding-time threshold fires. Exits are reported asynchronously on a result
// channel.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

// PriceSource resolves the current price of a mint.
type PriceSource interface {
	CurrentPrice(ctx context.Context, mint string) (decimal.Decimal, error)
}

// Liquidator sells the full balance of a mint and returns the transaction
// signature.
type Liquidator interface {
	SellAll(ctx context.Context, mint string) (string, error)
}

// Config holds the monitoring loop's timing knobs.
type Config struct {
	// PollInterval is the spacing between price checks.
	PollInterval time.Duration
	// MaxPriceRetries is how many consecutive price failures are tolerated
	// before the position is liquidated protectively.
	MaxPriceRetries int
}

// PositionMonitor tracks a single position. Starting a second position while
// one is open is rejected with domain.ErrAlreadyMonitoring; once the tracked
// position reaches a terminal status the slot frees and Start may be called
// again.
type PositionMonitor struct {
	prices  PriceSource
	liq     Liquidator
	cfg     Config
	logger  *slog.Logger
	results chan domain.ExitReport

	mu     sync.Mutex
	pos    *domain.Position
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a PositionMonitor.
func New(prices PriceSource, liq Liquidator, cfg Config, logger *slog.Logger) *PositionMonitor {
	return &PositionMonitor{
		prices:  prices,
		liq:     liq,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "monitor")),
		results: make(chan domain.ExitReport, 4),
	}
}

// Results delivers one ExitReport per terminal transition.
func (m *PositionMonitor) Results() <-chan domain.ExitReport {
	return m.results
}

// Position returns a copy of the tracked position, or nil when none has been
// started yet.
func (m *PositionMonitor) Position() *domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return nil
	}
	return m.pos.Clone()
}

// Start begins supervising a new position for mint with the given entry price
// and exit thresholds. The monitoring loop runs until a threshold fires, the
// context ends, or Stop is called.
func (m *PositionMonitor) Start(ctx context.Context, mint string, entry, takeProfit, stopLoss decimal.Decimal, maxDuration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos != nil && !m.pos.Status.Terminal() {
		return fmt.Errorf("%w: position %s on %s is still open", domain.ErrAlreadyMonitoring, m.pos.ID, m.pos.Mint)
	}

	pos, err := domain.NewPosition(mint, entry, takeProfit, stopLoss, maxDuration)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.pos = pos
	m.cancel = cancel
	m.done = done

	m.logger.InfoContext(ctx, "monitoring started",
		slog.String("position_id", pos.ID),
		slog.String("mint", pos.Mint),
		slog.String("entry_price", pos.EntryPrice.String()),
		slog.String("take_profit", pos.TakeProfitPrice.String()),
		slog.String("stop_loss", pos.StopLossPrice.String()),
		slog.Duration("max_duration", pos.MaxDuration),
	)

	go func() {
		defer cancel()
		m.loop(loopCtx, pos, done)
	}()
	return nil
}

// Stop cancels the monitoring loop and waits for it to finish. The tracked
// position closes as CLOSED_MANUAL without selling; the holder keeps the
// tokens. Stop is idempotent and a no-op when nothing is being monitored.
func (m *PositionMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *PositionMonitor) loop(ctx context.Context, pos *domain.Position, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			m.close(ctx, pos, domain.StatusClosedManual, decimal.Zero, "", nil)
			return
		case <-ticker.C:
		}

		price, err := m.prices.CurrentPrice(ctx, pos.Mint)
		if err != nil {
			if ctx.Err() != nil {
				m.close(ctx, pos, domain.StatusClosedManual, decimal.Zero, "", nil)
				return
			}
			failures++
			m.logger.WarnContext(ctx, "price check failed",
				slog.String("position_id", pos.ID),
				slog.String("mint", pos.Mint),
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()),
			)
			if failures >= m.cfg.MaxPriceRetries {
				// Flying blind: liquidate rather than hold an unpriceable token.
				m.exit(ctx, pos, domain.StatusClosedError, decimal.Zero,
					fmt.Errorf("monitor: %d consecutive price failures, last: %w", failures, err))
				return
			}
			continue
		}
		failures = 0

		// Take-profit wins when a single observation satisfies both thresholds.
		switch {
		case price.GreaterThanOrEqual(pos.TakeProfitPrice):
			m.exit(ctx, pos, domain.StatusClosedTakeProfit, price, nil)
			return
		case price.LessThanOrEqual(pos.StopLossPrice):
			m.exit(ctx, pos, domain.StatusClosedStopLoss, price, nil)
			return
		case !time.Now().Before(pos.Deadline()):
			m.exit(ctx, pos, domain.StatusClosedTimeout, price, nil)
			return
		}
	}
}

// exit liquidates the position and records the terminal status. A sell
// failure degrades the close to CLOSED_ERROR with the cause attached; an
// already-empty token account counts as sold.
func (m *PositionMonitor) exit(ctx context.Context, pos *domain.Position, status domain.PositionStatus, price decimal.Decimal, cause error) {
	signature, err := m.liq.SellAll(ctx, pos.Mint)
	if err != nil && !errors.Is(err, domain.ErrNoPosition) {
		status = domain.StatusClosedError
		if cause == nil {
			cause = err
		} else {
			cause = errors.Join(cause, err)
		}
	}
	m.close(ctx, pos, status, price, signature, cause)
}

// close transitions the position to a terminal status, first writer wins, and
// emits the exit report.
func (m *PositionMonitor) close(ctx context.Context, pos *domain.Position, status domain.PositionStatus, price decimal.Decimal, signature string, cause error) {
	m.mu.Lock()
	if pos.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	pos.Status = status
	snapshot := *pos
	m.mu.Unlock()

	log := m.logger.With(
		slog.String("position_id", pos.ID),
		slog.String("mint", pos.Mint),
		slog.String("status", string(status)),
	)
	if cause != nil {
		log.ErrorContext(ctx, "position closed with error",
			slog.String("error", cause.Error()),
		)
	} else {
		log.InfoContext(ctx, "position closed",
			slog.String("price", price.String()),
			slog.String("signature", signature),
		)
	}

	report := domain.ExitReport{
		Position:  snapshot,
		Signature: signature,
		Price:     price,
		Err:       cause,
	}
	select {
	case m.results <- report:
	default:
		log.WarnContext(ctx, "exit report dropped, channel full")
	}
}
