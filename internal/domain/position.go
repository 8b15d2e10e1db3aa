package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStatus tracks where a position is in its lifecycle. A position is
// created OPEN and moves to exactly one terminal CLOSED_* status.
type PositionStatus string

const (
	StatusOpen             PositionStatus = "OPEN"
	StatusClosedTakeProfit PositionStatus = "CLOSED_TAKE_PROFIT"
	StatusClosedStopLoss   PositionStatus = "CLOSED_STOP_LOSS"
	StatusClosedTimeout    PositionStatus = "CLOSED_TIMEOUT"
	StatusClosedManual     PositionStatus = "CLOSED_MANUAL"
	StatusClosedError      PositionStatus = "CLOSED_ERROR"
)

// Terminal reports whether the status is one of the CLOSED_* values.
func (s PositionStatus) Terminal() bool {
	return s != StatusOpen && s != ""
}

// Position is the unit of tracked risk: one token bought for a fixed SOL
// amount, supervised until an exit threshold fires. Exit thresholds are
// derived once at open and never change afterwards.
type Position struct {
	ID              string
	Mint            string
	EntryPrice      decimal.Decimal
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
	MaxDuration     time.Duration
	OpenedAt        time.Time
	Status          PositionStatus
}

// NewPosition creates an OPEN position for mint with the given entry price and
// exit thresholds. A non-positive entry price is a precondition failure, never
// silently accepted: a zero entry would make every stop-loss comparison true.
func NewPosition(mint string, entry, takeProfit, stopLoss decimal.Decimal, maxDuration time.Duration) (*Position, error) {
	if !entry.IsPositive() {
		return nil, fmt.Errorf("domain: entry price must be positive, got %s", entry)
	}
	if !takeProfit.IsPositive() || !stopLoss.IsPositive() {
		return nil, fmt.Errorf("domain: exit thresholds must be positive (tp=%s sl=%s)", takeProfit, stopLoss)
	}
	if maxDuration <= 0 {
		return nil, fmt.Errorf("domain: max duration must be positive, got %s", maxDuration)
	}

	return &Position{
		ID:              uuid.New().String(),
		Mint:            mint,
		EntryPrice:      entry,
		TakeProfitPrice: takeProfit,
		StopLossPrice:   stopLoss,
		MaxDuration:     maxDuration,
		OpenedAt:        time.Now().UTC(),
		Status:          StatusOpen,
	}, nil
}

// Deadline returns the instant at which the holding-time ceiling elapses.
func (p *Position) Deadline() time.Time {
	return p.OpenedAt.Add(p.MaxDuration)
}

// Clone returns a copy of the position so callers outside the monitor cannot
// mutate the tracked instance.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}
