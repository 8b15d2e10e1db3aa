// Package feed streams live prices over the Birdeye websocket and pushes them
// into the price cache, so the monitor's poll loop usually finds a fresh
// cached price instead of hitting the REST APIs.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// PriceHandler is invoked for each streamed price update.
type PriceHandler func(ctx context.Context, mint string, price decimal.Decimal)

// subscribeMsg is the Birdeye price-channel subscription request.
type subscribeMsg struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Channel string `json:"channel"`
}

// priceMsg is an inbound price-channel message.
type priceMsg struct {
	Channel string `json:"channel"`
	Address string `json:"address"`
	Data    struct {
		Price json.Number `json:"price"`
	} `json:"data"`
}

// BirdeyeWSFeed connects to the Birdeye websocket, subscribes to the price
// channel for one mint, and invokes the handler on each update. It reconnects
// on disconnect until the context is cancelled or Close is called.
type BirdeyeWSFeed struct {
	wsURL     string
	apiKey    string
	mint      string
	onPrice   PriceHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBirdeyeWSFeed creates a feed for the given mint.
func NewBirdeyeWSFeed(wsURL, apiKey, mint string, onPrice PriceHandler, logger *slog.Logger) *BirdeyeWSFeed {
	return &BirdeyeWSFeed{
		wsURL:   wsURL,
		apiKey:  apiKey,
		mint:    mint,
		onPrice: onPrice,
		logger:  logger.With(slog.String("component", "birdeye_ws_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects, subscribes, and reads until ctx is cancelled. Reconnects with
// a short delay on disconnect.
func (f *BirdeyeWSFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("birdeye ws disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func (f *BirdeyeWSFeed) runConnection(ctx context.Context) error {
	header := http.Header{}
	header.Set("X-API-KEY", f.apiKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the connection when the context ends so the blocking read below
	// unblocks promptly.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-f.done:
			_ = conn.Close()
		case <-stop:
		}
	}()

	sub := subscribeMsg{Type: "subscribe", Address: f.mint, Channel: "price"}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.logger.Info("birdeye ws subscribed", slog.String("mint", f.mint))

	for {
		var msg priceMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Channel != "price" || msg.Data.Price == "" {
			continue
		}
		price, err := decimal.NewFromString(msg.Data.Price.String())
		if err != nil {
			f.logger.Warn("birdeye ws malformed price",
				slog.String("raw", msg.Data.Price.String()),
			)
			continue
		}
		mint := msg.Address
		if mint == "" {
			mint = f.mint
		}
		if f.onPrice != nil {
			f.onPrice(ctx, mint, price)
		}
	}
}

// Close stops the feed.
func (f *BirdeyeWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
