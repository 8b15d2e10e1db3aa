package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/solkit/sniperbot/internal/domain"
)

const (
	testMint   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgpump"
	solMint    = "So11111111111111111111111111111111111111112"
	testAmount = "100000000"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, srv.URL+"/price", solMint, 30, slog.Default())
}

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %s, want /quote", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != solMint || q.Get("outputMint") != testMint {
			t.Errorf("mints = %s->%s", q.Get("inputMint"), q.Get("outputMint"))
		}
		if q.Get("amount") != testAmount {
			t.Errorf("amount = %s, want %s", q.Get("amount"), testAmount)
		}
		if q.Get("slippageBps") != "500" {
			t.Errorf("slippageBps = %s, want 500", q.Get("slippageBps"))
		}
		fmt.Fprint(w, `{"inputMint":"`+solMint+`","outAmount":"50000000","routePlan":[]}`)
	}))
	defer srv.Close()

	quote, err := newTestClient(srv).GetQuote(context.Background(), solMint, testMint, testAmount, 500)
	if err != nil {
		t.Fatalf("GetQuote() error: %v", err)
	}
	if quote.OutAmount != "50000000" {
		t.Errorf("OutAmount = %s, want 50000000", quote.OutAmount)
	}
	if len(quote.Raw) == 0 {
		t.Error("Raw quote body is empty")
	}
}

func TestGetSwapTransaction_ForwardsQuoteVerbatim(t *testing.T) {
	rawQuote := json.RawMessage(`{"inputMint":"` + solMint + `","outAmount":"50000000"}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" || r.Method != http.MethodPost {
			t.Errorf("got %s %s, want POST /swap", r.Method, r.URL.Path)
		}
		var body struct {
			QuoteResponse    json.RawMessage `json:"quoteResponse"`
			UserPublicKey    string          `json:"userPublicKey"`
			WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode swap request: %v", err)
		}
		if string(body.QuoteResponse) != string(rawQuote) {
			t.Errorf("quoteResponse = %s, want verbatim quote", body.QuoteResponse)
		}
		if body.UserPublicKey != "owner-address" {
			t.Errorf("userPublicKey = %s", body.UserPublicKey)
		}
		if !body.WrapAndUnwrapSol {
			t.Error("wrapAndUnwrapSol = false, want true")
		}
		fmt.Fprint(w, `{"swapTransaction":"dW5zaWduZWQ="}`)
	}))
	defer srv.Close()

	tx, err := newTestClient(srv).GetSwapTransaction(context.Background(), domain.SwapQuote{Raw: rawQuote}, "owner-address", true)
	if err != nil {
		t.Fatalf("GetSwapTransaction() error: %v", err)
	}
	if tx != "dW5zaWduZWQ=" {
		t.Errorf("swapTransaction = %s", tx)
	}
}

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("ids") != testMint {
			t.Errorf("ids = %s, want %s", q.Get("ids"), testMint)
		}
		if q.Get("vsToken") != solMint {
			t.Errorf("vsToken = %s, want %s", q.Get("vsToken"), solMint)
		}
		fmt.Fprintf(w, `{"data":{"%s":{"price":"0.00215"}}}`, testMint)
	}))
	defer srv.Close()

	price, err := newTestClient(srv).Price(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Price() error: %v", err)
	}
	if want := decimal.RequireFromString("0.00215"); !price.Equal(want) {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestPrice_UnknownMint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Price(context.Background(), testMint)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Price() error = %v, want ErrNotFound", err)
	}
}

func TestDoRequest_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetQuote(context.Background(), solMint, testMint, testAmount, 500)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("GetQuote() error = %v, want ErrRateLimited", err)
	}
}
