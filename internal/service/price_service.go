// Package service holds the thin coordination layer between the platform
// clients and the trading engine: price resolution with fallback and caching,
// and pre-trade token validation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

// PriceFetcher is a REST price source (Jupiter price API, Birdeye).
type PriceFetcher interface {
	Price(ctx context.Context, mint string) (decimal.Decimal, error)
}

// PriceFetcherFunc adapts a function to the PriceFetcher interface.
type PriceFetcherFunc func(ctx context.Context, mint string) (decimal.Decimal, error)

// Price calls f.
func (f PriceFetcherFunc) Price(ctx context.Context, mint string) (decimal.Decimal, error) {
	return f(ctx, mint)
}

// PriceService resolves the current price of a mint: cache first (when fresh),
// then the primary source, then the fallback. Successful lookups are written
// through to the cache.
type PriceService struct {
	cache    domain.PriceCache // nil disables caching
	primary  PriceFetcher
	fallback PriceFetcher // nil disables the fallback
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewPriceService creates a PriceService. cache and fallback may be nil.
// maxAge bounds how old a cached price may be before the REST sources are
// consulted.
func NewPriceService(cache domain.PriceCache, primary, fallback PriceFetcher, maxAge time.Duration, logger *slog.Logger) *PriceService {
	return &PriceService{
		cache:    cache,
		primary:  primary,
		fallback: fallback,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "price_service")),
		now:      time.Now,
	}
}

// CurrentPrice returns the freshest known price for mint.
func (s *PriceService) CurrentPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	if s.cache != nil {
		price, ts, err := s.cache.GetPrice(ctx, mint)
		if err == nil && s.now().Sub(ts) <= s.maxAge {
			return price, nil
		}
	}

	price, err := s.primary.Price(ctx, mint)
	if err != nil && s.fallback != nil {
		s.logger.WarnContext(ctx, "primary price source failed, trying fallback",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
		price, err = s.fallback.Price(ctx, mint)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price_service: price of %s: %w", mint, err)
	}

	s.store(ctx, mint, price)
	return price, nil
}

// HandleFeedPrice records a price pushed by the websocket feed.
func (s *PriceService) HandleFeedPrice(ctx context.Context, mint string, price decimal.Decimal) {
	s.store(ctx, mint, price)
}

// store writes a price into the cache, best effort.
func (s *PriceService) store(ctx context.Context, mint string, price decimal.Decimal) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPrice(ctx, mint, price, s.now()); err != nil {
		s.logger.WarnContext(ctx, "price cache write failed",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
	}
}
