package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/cache/redis"
	"github.com/solkit/sniperbot/internal/config"
	"github.com/solkit/sniperbot/internal/crypto"
	"github.com/solkit/sniperbot/internal/domain"
	"github.com/solkit/sniperbot/internal/executor"
	"github.com/solkit/sniperbot/internal/feed"
	"github.com/solkit/sniperbot/internal/monitor"
	"github.com/solkit/sniperbot/internal/notify"
	"github.com/solkit/sniperbot/internal/platform/birdeye"
	"github.com/solkit/sniperbot/internal/platform/jupiter"
	"github.com/solkit/sniperbot/internal/platform/solana"
	"github.com/solkit/sniperbot/internal/service"
)

// Dependencies bundles everything the running bot needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Wallet   *crypto.Wallet
	Prices   *service.PriceService
	Executor *executor.TradeExecutor
	Monitor  *monitor.PositionMonitor
	Notifier *notify.Notifier
	Engine   *Engine
}

// Wire constructs the concrete dependency graph from the configuration and
// returns it with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Wallet ---
	material, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: load key: %w", err)
	}
	wallet, err := crypto.NewWallet(material)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}

	// --- Platform clients ---
	chain := solana.NewClient(cfg.Solana.RPCURL, cfg.Solana.Commitment, logger)
	quotes := jupiter.NewClient(cfg.Jupiter.BaseURL, cfg.Jupiter.PriceURL, config.WrappedSOLMint, cfg.Jupiter.MaxConcurrent, logger)

	var birdeyeClient *birdeye.Client
	if cfg.Birdeye.APIKey != "" {
		birdeyeClient = birdeye.NewClient(cfg.Birdeye.BaseURL, cfg.Birdeye.APIKey, logger)
	}

	// --- Price cache (optional) ---
	var priceCache domain.PriceCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		priceCache = redis.NewPriceCache(redisClient, cfg.PriceTTL())
	}

	// --- Price resolution ---
	var fallback service.PriceFetcher
	if birdeyeClient != nil {
		fallback = service.PriceFetcherFunc(birdeyeClient.SpotPrice)
	}
	prices := service.NewPriceService(priceCache, quotes, fallback, cfg.PriceTTL(), logger)

	// --- Pre-trade vetting (optional, needs Birdeye) ---
	var validator Validator
	if birdeyeClient != nil && cfg.Birdeye.MinLiquidity > 0 {
		validator = service.NewTokenValidator(
			birdeyeClient,
			decimal.NewFromFloat(cfg.Birdeye.MinLiquidity),
			logger,
		)
	}

	// --- Executor and monitor ---
	exec := executor.New(quotes, chain, wallet, executor.Config{
		SpendSOL:        decimal.NewFromFloat(cfg.Trading.SpendSOL),
		BuySlippageBps:  cfg.Trading.BuySlippageBps,
		SellSlippageBps: cfg.Trading.SellSlippageBps,
		TokenDecimals:   cfg.Trading.TokenDecimals,
		TakeProfitMult:  decimal.NewFromFloat(cfg.Monitor.TakeProfitMult),
		StopLossMult:    decimal.NewFromFloat(cfg.Monitor.StopLossMult),
		MaxDuration:     cfg.MaxDuration(),
		NativeMint:      config.WrappedSOLMint,
	}, logger)

	mon := monitor.New(prices, exec, monitor.Config{
		PollInterval:    cfg.PollInterval(),
		MaxPriceRetries: cfg.Monitor.MaxPriceRetries,
	}, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	notifier := notify.NewNotifier(senders, logger)

	// --- Live price feed (optional, needs Birdeye websocket) ---
	var startFeed FeedStarter
	if cfg.Birdeye.APIKey != "" && cfg.Birdeye.WSURL != "" {
		wsURL, apiKey := cfg.Birdeye.WSURL, cfg.Birdeye.APIKey
		startFeed = func(ctx context.Context, mint string) func() {
			f := feed.NewBirdeyeWSFeed(wsURL, apiKey, mint, prices.HandleFeedPrice, logger)
			go func() {
				if err := f.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("price feed stopped",
						slog.String("mint", mint),
						slog.String("error", err.Error()),
					)
				}
			}()
			return f.Close
		}
	}

	engine := NewEngine(validator, exec, mon, notifier, startFeed, logger)
	closers = append(closers, mon.Stop)

	return &Dependencies{
		Wallet:   wallet,
		Prices:   prices,
		Executor: exec,
		Monitor:  mon,
		Notifier: notifier,
		Engine:   engine,
	}, cleanup, nil
}
