// Package intake turns inbound Telegram messages into trade requests. A
// long-poll loop reads bot updates, drops messages from senders outside the
// allow-list, extracts a mint address from the text, and hands it to the
// trading engine. Every message gets an answer in its own chat: a refusal, the
// failure cause, or the trade signature.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solkit/sniperbot/internal/domain"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TradeRequester receives the mint extracted from an authorized message and
// returns the opened trade.
type TradeRequester interface {
	RequestTrade(ctx context.Context, mint string) (*domain.TradeResult, error)
}

// update mirrors the slice of the Bot API getUpdates payload we consume.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// TelegramListener long-polls the Bot API and forwards mints from authorized
// senders to the trader. An empty allow-list authorizes nobody; the listener
// still drains updates so the queue does not back up.
type TelegramListener struct {
	apiBase string
	token   string
	allowed map[int64]bool
	trader  TradeRequester
	client  *http.Client
	logger  *slog.Logger
	offset  int64
}

// NewTelegramListener creates a listener. allowedUserIDs are decimal Telegram
// user IDs; entries that do not parse are skipped with a warning.
func NewTelegramListener(token string, allowedUserIDs []string, trader TradeRequester, logger *slog.Logger) *TelegramListener {
	log := logger.With(slog.String("component", "telegram_intake"))
	allowed := make(map[int64]bool, len(allowedUserIDs))
	for _, raw := range allowedUserIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			log.Warn("skipping malformed allow-list entry", slog.String("entry", raw))
			continue
		}
		allowed[id] = true
	}
	return &TelegramListener{
		apiBase: defaultTelegramAPI,
		token:   token,
		allowed: allowed,
		trader:  trader,
		client:  &http.Client{Timeout: 40 * time.Second},
		logger:  log,
	}
}

// SetAPIBase overrides the Telegram API root, for tests.
func (l *TelegramListener) SetAPIBase(base string) {
	l.apiBase = base
}

// Run polls getUpdates until ctx is cancelled. Transient polling errors are
// logged and retried after a short delay.
func (l *TelegramListener) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "telegram intake started",
		slog.Int("allowed_users", len(l.allowed)),
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := l.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.WarnContext(ctx, "poll failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= l.offset {
				l.offset = u.UpdateID + 1
			}
			l.handle(ctx, u)
		}
	}
}

func (l *TelegramListener) poll(ctx context.Context) ([]update, error) {
	params := url.Values{}
	params.Set("timeout", "30")
	params.Set("allowed_updates", `["message"]`)
	if l.offset > 0 {
		params.Set("offset", strconv.FormatInt(l.offset, 10))
	}

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", l.apiBase, l.token, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("intake: create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intake: getUpdates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("intake: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("intake: getUpdates HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("intake: decode response: %w", err)
	}
	if !payload.OK {
		return nil, fmt.Errorf("intake: getUpdates returned ok=false")
	}
	return payload.Result, nil
}

func (l *TelegramListener) handle(ctx context.Context, u update) {
	if u.Message == nil || u.Message.From == nil {
		return
	}
	senderID := u.Message.From.ID
	chatID := u.Message.Chat.ID
	if !l.allowed[senderID] {
		l.logger.WarnContext(ctx, "message from unauthorized sender dropped",
			slog.Int64("user_id", senderID),
		)
		l.reply(ctx, chatID, "Unauthorized access")
		return
	}

	mint, ok := ExtractMint(u.Message.Text)
	if !ok {
		l.logger.DebugContext(ctx, "no mint in message",
			slog.Int64("user_id", senderID),
		)
		l.reply(ctx, chatID, "Invalid token: no mint address found in message")
		return
	}

	l.logger.InfoContext(ctx, "trade request received",
		slog.Int64("user_id", senderID),
		slog.String("mint", mint),
	)
	res, err := l.trader.RequestTrade(ctx, mint)
	if err != nil {
		l.logger.ErrorContext(ctx, "trade request rejected",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
		l.reply(ctx, chatID, fmt.Sprintf("Trade failed: %v", err))
		return
	}
	l.reply(ctx, chatID, fmt.Sprintf("Trade completed: bought %s\nentry price: %s\ntx: %s",
		res.Mint, res.Position.EntryPrice, res.Signature))
}

// reply answers the requester in the chat the command came from. Delivery is
// best effort; a failed reply never affects the trade.
func (l *TelegramListener) reply(ctx context.Context, chatID int64, text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"text":    text,
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "marshal reply", slog.String("error", err.Error()))
		return
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", l.apiBase, l.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		l.logger.ErrorContext(ctx, "create reply request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.WarnContext(ctx, "reply delivery failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		l.logger.WarnContext(ctx, "reply rejected",
			slog.Int64("chat_id", chatID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
	}
}

// ExtractMint scans message text for a Solana mint address. Launchpad mints
// carry a "pump" suffix and are preferred; otherwise the first base58-looking
// token of plausible length is used.
func ExtractMint(text string) (string, bool) {
	var first string
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,;:!?()[]<>\"'")
		if !plausibleMint(field) {
			continue
		}
		if strings.HasSuffix(field, "pump") {
			return field, true
		}
		if first == "" {
			first = field
		}
	}
	return first, first != ""
}

// plausibleMint reports whether s has the length and alphabet of a base58
// Solana address.
func plausibleMint(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '1' && r <= '9':
		case r >= 'A' && r <= 'H':
		case r >= 'J' && r <= 'N':
		case r >= 'P' && r <= 'Z':
		case r >= 'a' && r <= 'k':
		case r >= 'm' && r <= 'z':
		default:
			return false
		}
	}
	return true
}
