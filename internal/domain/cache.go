package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCache provides fast access to the latest observed price per mint.
// Implementations return ErrNotFound when no price has been stored.
type PriceCache interface {
	SetPrice(ctx context.Context, mint string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, mint string) (decimal.Decimal, time.Time, error)
}
