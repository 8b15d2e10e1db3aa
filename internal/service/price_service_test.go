package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgpump"

type memCache struct {
	price  decimal.Decimal
	ts     time.Time
	getErr error
	sets   int
}

func (m *memCache) SetPrice(_ context.Context, _ string, price decimal.Decimal, ts time.Time) error {
	m.price, m.ts = price, ts
	m.sets++
	return nil
}

func (m *memCache) GetPrice(context.Context, string) (decimal.Decimal, time.Time, error) {
	if m.getErr != nil {
		return decimal.Zero, time.Time{}, m.getErr
	}
	return m.price, m.ts, nil
}

type countingFetcher struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *countingFetcher) Price(context.Context, string) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func TestCurrentPrice_FreshCacheSkipsREST(t *testing.T) {
	cache := &memCache{price: decimal.RequireFromString("0.002"), ts: time.Now()}
	primary := &countingFetcher{price: decimal.RequireFromString("0.003")}
	svc := NewPriceService(cache, primary, nil, 10*time.Second, slog.Default())

	price, err := svc.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice() error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("price = %s, want cached 0.002", price)
	}
	if primary.calls != 0 {
		t.Errorf("primary calls = %d, want 0", primary.calls)
	}
}

func TestCurrentPrice_StaleCacheHitsPrimary(t *testing.T) {
	cache := &memCache{price: decimal.RequireFromString("0.002"), ts: time.Now().Add(-time.Minute)}
	primary := &countingFetcher{price: decimal.RequireFromString("0.003")}
	svc := NewPriceService(cache, primary, nil, 10*time.Second, slog.Default())

	price, err := svc.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice() error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("price = %s, want primary 0.003", price)
	}
	if cache.sets != 1 {
		t.Errorf("cache writes = %d, want 1 write-through", cache.sets)
	}
}

func TestCurrentPrice_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &countingFetcher{err: errors.New("rate limited")}
	fallback := &countingFetcher{price: decimal.RequireFromString("0.004")}
	svc := NewPriceService(nil, primary, fallback, 10*time.Second, slog.Default())

	price, err := svc.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice() error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.004")) {
		t.Errorf("price = %s, want fallback 0.004", price)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = primary %d / fallback %d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestCurrentPrice_AllSourcesFail(t *testing.T) {
	primary := &countingFetcher{err: errors.New("down")}
	fallback := &countingFetcher{err: errors.New("also down")}
	svc := NewPriceService(nil, primary, fallback, 10*time.Second, slog.Default())

	if _, err := svc.CurrentPrice(context.Background(), testMint); err == nil {
		t.Fatal("CurrentPrice() expected error when every source fails, got nil")
	}
}

func TestHandleFeedPrice_WritesCache(t *testing.T) {
	cache := &memCache{getErr: errors.New("empty")}
	primary := &countingFetcher{price: decimal.RequireFromString("0.003")}
	svc := NewPriceService(cache, primary, nil, 10*time.Second, slog.Default())

	pushed := decimal.RequireFromString("0.0021")
	svc.HandleFeedPrice(context.Background(), testMint, pushed)

	if cache.sets != 1 || !cache.price.Equal(pushed) {
		t.Errorf("cache = %s after %d writes, want 0.0021 after 1", cache.price, cache.sets)
	}

	// The pushed price now serves lookups without a REST call.
	cache.getErr = nil
	price, err := svc.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice() error: %v", err)
	}
	if !price.Equal(pushed) {
		t.Errorf("price = %s, want fed 0.0021", price)
	}
	if primary.calls != 0 {
		t.Errorf("primary calls = %d, want 0", primary.calls)
	}
}

func TestTokenValidator(t *testing.T) {
	tests := []struct {
		name      string
		liquidity string
		min       string
		srcErr    error
		wantErr   bool
	}{
		{"above floor", "5000", "1000", nil, false},
		{"at floor", "1000", "1000", nil, false},
		{"below floor", "999.99", "1000", nil, true},
		{"source error", "0", "1000", errors.New("no data"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := liquidityFunc(func(context.Context, string) (decimal.Decimal, error) {
				if tt.srcErr != nil {
					return decimal.Zero, tt.srcErr
				}
				return decimal.RequireFromString(tt.liquidity), nil
			})
			v := NewTokenValidator(src, decimal.RequireFromString(tt.min), slog.Default())
			err := v.Validate(context.Background(), testMint)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type liquidityFunc func(ctx context.Context, mint string) (decimal.Decimal, error)

func (f liquidityFunc) Liquidity(ctx context.Context, mint string) (decimal.Decimal, error) {
	return f(ctx, mint)
}
