package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

const (
	pumpMint  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgpump"
	plainMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestExtractMint(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare address", pumpMint, pumpMint, true},
		{"address in sentence", "ape this: " + pumpMint + " now!", pumpMint, true},
		{"pump suffix preferred", plainMint + " " + pumpMint, pumpMint, true},
		{"plain address", "buy " + plainMint, plainMint, true},
		{"trailing punctuation", "check " + plainMint + ".", plainMint, true},
		{"too short", "buy abc123", "", false},
		{"bad alphabet", "buy " + "O0Il" + plainMint[4:], "", false},
		{"empty", "", "", false},
		{"no address", "gm everyone", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractMint(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractMint(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

type recordingTrader struct {
	mu    sync.Mutex
	err   error
	mints []string
}

func (r *recordingTrader) RequestTrade(_ context.Context, mint string) (*domain.TradeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mints = append(r.mints, mint)
	if r.err != nil {
		return nil, r.err
	}
	pos, err := domain.NewPosition(mint,
		decimal.RequireFromString("0.002"),
		decimal.RequireFromString("0.0024"),
		decimal.RequireFromString("0.0018"),
		30*time.Minute,
	)
	if err != nil {
		return nil, err
	}
	return &domain.TradeResult{ID: "trade-1", Mint: mint, Signature: "sig123", Position: pos}, nil
}

func (r *recordingTrader) requested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.mints...)
}

// botServer fakes the slice of the Bot API the listener talks to: getUpdates
// served from a script keyed by offset, sendMessage bodies recorded.
type botServer struct {
	srv     *httptest.Server
	mu      sync.Mutex
	updates map[string]string // offset -> result array JSON
	replies []string          // sendMessage text fields
	chatIDs []string
	offsets []string
}

func newBotServer(t *testing.T, updates map[string]string) *botServer {
	t.Helper()
	b := &botServer{updates: updates}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			var body struct {
				ChatID string `json:"chat_id"`
				Text   string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode sendMessage body: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			b.replies = append(b.replies, body.Text)
			b.chatIDs = append(b.chatIDs, body.ChatID)
			b.mu.Unlock()
			fmt.Fprint(w, `{"ok":true}`)
			return
		}

		offset := r.URL.Query().Get("offset")
		b.mu.Lock()
		b.offsets = append(b.offsets, offset)
		result, scripted := b.updates[offset]
		delete(b.updates, offset)
		b.mu.Unlock()
		if !scripted {
			// Past the script: behave like an idle long poll.
			time.Sleep(10 * time.Millisecond)
			result = ""
		}
		fmt.Fprintf(w, `{"ok":true,"result":[%s]}`, result)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *botServer) sentReplies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.replies...)
}

func (b *botServer) polledOffsets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.offsets...)
}

func messageUpdate(updateID, userID int64, text string) string {
	return fmt.Sprintf(`{"update_id":%d,"message":{"from":{"id":%d},"chat":{"id":%d},"text":"%s"}}`,
		updateID, userID, userID, text)
}

func runListener(t *testing.T, b *botServer, trader TradeRequester, allowed []string, d time.Duration) {
	t.Helper()
	l := NewTelegramListener("tok", allowed, trader, slog.Default())
	l.SetAPIBase(b.srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_ = l.Run(ctx)
}

func TestRun_ForwardsAuthorizedMintsAndReplies(t *testing.T) {
	b := newBotServer(t, map[string]string{
		"": messageUpdate(10, 1001, "ape "+pumpMint) + "," +
			messageUpdate(11, 9999, "ignore "+plainMint),
	})
	trader := &recordingTrader{}

	runListener(t, b, trader, []string{"1001"}, 500*time.Millisecond)

	got := trader.requested()
	if len(got) != 1 || got[0] != pumpMint {
		t.Fatalf("requested mints = %v, want only %s from the authorized sender", got, pumpMint)
	}

	replies := b.sentReplies()
	if len(replies) != 2 {
		t.Fatalf("replies = %v, want one completion and one refusal", replies)
	}
	for _, want := range []string{"Trade completed", pumpMint, "sig123", "0.002"} {
		if !strings.Contains(replies[0], want) {
			t.Errorf("completion reply missing %q: %s", want, replies[0])
		}
	}
	if replies[1] != "Unauthorized access" {
		t.Errorf("unauthorized reply = %q, want %q", replies[1], "Unauthorized access")
	}
	// Each reply lands in the requester's own chat.
	if b.chatIDs[0] != "1001" || b.chatIDs[1] != "9999" {
		t.Errorf("reply chat ids = %v, want [1001 9999]", b.chatIDs)
	}
}

func TestRun_RepliesWithFailureCause(t *testing.T) {
	b := newBotServer(t, map[string]string{
		"": messageUpdate(10, 1001, pumpMint),
	})
	trader := &recordingTrader{err: errors.New("no route for token")}

	runListener(t, b, trader, []string{"1001"}, 300*time.Millisecond)

	replies := b.sentReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %v, want exactly one failure reply", replies)
	}
	if !strings.Contains(replies[0], "Trade failed") || !strings.Contains(replies[0], "no route for token") {
		t.Errorf("failure reply = %q, want kind and cause", replies[0])
	}
}

func TestRun_RepliesToMessageWithoutMint(t *testing.T) {
	b := newBotServer(t, map[string]string{
		"": messageUpdate(10, 1001, "gm"),
	})
	trader := &recordingTrader{}

	runListener(t, b, trader, []string{"1001"}, 300*time.Millisecond)

	if got := trader.requested(); len(got) != 0 {
		t.Fatalf("requested mints = %v, want none", got)
	}
	replies := b.sentReplies()
	if len(replies) != 1 || !strings.Contains(replies[0], "Invalid token") {
		t.Fatalf("replies = %v, want one invalid-token reply", replies)
	}
}

func TestRun_EmptyAllowListDeniesEveryone(t *testing.T) {
	b := newBotServer(t, map[string]string{
		"": messageUpdate(10, 1001, pumpMint),
	})
	trader := &recordingTrader{}

	runListener(t, b, trader, nil, 300*time.Millisecond)

	if got := trader.requested(); len(got) != 0 {
		t.Fatalf("requested mints = %v, want none with an empty allow-list", got)
	}
	replies := b.sentReplies()
	if len(replies) != 1 || replies[0] != "Unauthorized access" {
		t.Fatalf("replies = %v, want one unauthorized refusal", replies)
	}
}

func TestRun_AdvancesOffset(t *testing.T) {
	b := newBotServer(t, map[string]string{
		"": messageUpdate(41, 1001, "gm"),
	})

	runListener(t, b, &recordingTrader{}, []string{"1001"}, 300*time.Millisecond)

	offsets := b.polledOffsets()
	if len(offsets) < 2 {
		t.Fatalf("polls = %d, want at least 2", len(offsets))
	}
	if offsets[1] != "42" {
		t.Errorf("second poll offset = %q, want 42 (last update id + 1)", offsets[1])
	}
}
