package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// LiquiditySource reports pool liquidity for a mint, in quote-currency units.
type LiquiditySource interface {
	Liquidity(ctx context.Context, mint string) (decimal.Decimal, error)
}

// TokenValidator refuses tokens whose pool liquidity is below a floor, so the
// bot does not buy into a pool it cannot exit.
type TokenValidator struct {
	source LiquiditySource
	min    decimal.Decimal
	logger *slog.Logger
}

// NewTokenValidator creates a validator with the given minimum liquidity.
func NewTokenValidator(source LiquiditySource, min decimal.Decimal, logger *slog.Logger) *TokenValidator {
	return &TokenValidator{
		source: source,
		min:    min,
		logger: logger.With(slog.String("component", "token_validator")),
	}
}

// Validate returns nil when mint's liquidity meets the floor.
func (v *TokenValidator) Validate(ctx context.Context, mint string) error {
	liq, err := v.source.Liquidity(ctx, mint)
	if err != nil {
		return fmt.Errorf("token_validator: liquidity of %s: %w", mint, err)
	}
	if liq.LessThan(v.min) {
		return fmt.Errorf("token_validator: liquidity %s below minimum %s", liq, v.min)
	}
	return nil
}
