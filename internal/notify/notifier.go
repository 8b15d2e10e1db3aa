// Package notify delivers trade lifecycle alerts to the operator. Entries and
// exits are formatted here and pushed through a Sender (Telegram in
// production, a fake in tests).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solkit/sniperbot/internal/domain"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier formats trade events and dispatches them to its senders. Delivery
// is best effort; a sender failure is logged and does not affect trading.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. An empty sender list
// is valid and turns every notification into a no-op.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// TradeOpened announces a settled buy and the thresholds now being watched.
func (n *Notifier) TradeOpened(ctx context.Context, res *domain.TradeResult) {
	pos := res.Position
	msg := fmt.Sprintf(
		"mint: %s\nentry: %s\ntake profit: %s\nstop loss: %s\ntx: %s",
		res.Mint,
		pos.EntryPrice,
		pos.TakeProfitPrice,
		pos.StopLossPrice,
		res.Signature,
	)
	n.dispatch(ctx, "Position opened", msg)
}

// PositionClosed announces a terminal exit.
func (n *Notifier) PositionClosed(ctx context.Context, report domain.ExitReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "mint: %s\nstatus: %s\nentry: %s",
		report.Position.Mint, report.Position.Status, report.Position.EntryPrice)
	if report.Price.IsPositive() {
		fmt.Fprintf(&b, "\nexit price: %s", report.Price)
	}
	if report.Signature != "" {
		fmt.Fprintf(&b, "\ntx: %s", report.Signature)
	}
	if report.Err != nil {
		fmt.Fprintf(&b, "\nerror: %v", report.Err)
	}
	n.dispatch(ctx, "Position closed", b.String())
}

// TradeFailed announces a buy that did not open a position.
func (n *Notifier) TradeFailed(ctx context.Context, mint string, cause error) {
	n.dispatch(ctx, "Trade failed", fmt.Sprintf("mint: %s\nerror: %v", mint, cause))
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("title", title),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
