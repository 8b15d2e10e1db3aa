// Package app owns the top-level lifecycle of the sniper bot: it wires the
// dependency graph, runs the Telegram intake and the exit-report forwarder,
// and tears everything down in reverse order on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/solkit/sniperbot/internal/config"
	"github.com/solkit/sniperbot/internal/intake"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	base    *slog.Logger // threaded into Wire and the components
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		base:   logger,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the intake listener and the exit-report
// forwarder, and blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting sniper bot",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.base)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "wallet loaded",
		slog.String("address", deps.Wallet.Address()),
	)

	listener := intake.NewTelegramListener(
		a.cfg.Telegram.BotToken,
		a.cfg.Telegram.AllowedUserIDs,
		deps.Engine,
		a.base,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return deps.Engine.ForwardResults(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
