package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/outcome-exchange/internal/config"
	"github.com/rickgao/outcome-exchange/internal/engine"
	"github.com/rickgao/outcome-exchange/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	eng := engine.New(engine.DefaultConfig(), mem, nil, testLogger())
	srv := NewServer(config.APIConfig{Port: 0}, eng, mem, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mem
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createMarket(t *testing.T, ts *httptest.Server) marketJSON {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/markets", createMarketRequest{Title: "Will it rain tomorrow"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create market status = %d, want 201", resp.StatusCode)
	}
	return decodeJSON[marketJSON](t, resp)
}

func submit(t *testing.T, ts *httptest.Server, req submitOrderRequest) (*http.Response, submitOrderResponse) {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/orders", req)
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("submit status = %d, body %s", resp.StatusCode, body)
	}
	return resp, decodeJSON[submitOrderResponse](t, resp)
}

func TestCreateMarket(t *testing.T) {
	ts, _ := newTestServer(t)

	m := createMarket(t, ts)
	if m.Status != "active" {
		t.Errorf("Status = %q, want active", m.Status)
	}
	if m.YesProbability != 50 {
		t.Errorf("YesProbability = %d, want 50", m.YesProbability)
	}
	if m.Volume != "0" {
		t.Errorf("Volume = %q, want 0", m.Volume)
	}

	resp, err := http.Get(ts.URL + "/v1/markets/" + m.ID)
	if err != nil {
		t.Fatalf("GET market: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get market status = %d, want 200", resp.StatusCode)
	}
	got := decodeJSON[marketJSON](t, resp)
	if got.Title != "Will it rain tomorrow" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestCreateMarketRequiresTitle(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/markets", createMarketRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitOrderMatches(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createMarket(t, ts)

	// Rest a sell, then cross it with a buy.
	_, rested := submit(t, ts, submitOrderRequest{
		MarketID: m.ID, Side: "yes", Action: "sell", Type: "limit",
		Price: 40, Quantity: "10", Owner: "bob",
	})
	if rested.Rested == nil {
		t.Fatal("sell did not rest")
	}

	_, bought := submit(t, ts, submitOrderRequest{
		MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit",
		Price: 45, Quantity: "4", Owner: "alice",
	})
	if len(bought.Trades) != 1 {
		t.Fatalf("len(trades) = %d, want 1", len(bought.Trades))
	}
	if bought.Trades[0].Price != 40 {
		t.Errorf("trade price = %d, want maker price 40", bought.Trades[0].Price)
	}
	if bought.Trades[0].Shares != "4" {
		t.Errorf("trade shares = %q, want 4", bought.Trades[0].Shares)
	}
	if bought.Remaining != "0" {
		t.Errorf("remaining = %q, want 0", bought.Remaining)
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createMarket(t, ts)

	tests := []struct {
		name string
		req  submitOrderRequest
	}{
		{"bad market id", submitOrderRequest{MarketID: "nope", Side: "yes", Action: "buy", Type: "limit", Price: 50, Quantity: "1", Owner: "a"}},
		{"unknown market", submitOrderRequest{MarketID: "00000000-0000-0000-0000-000000000001", Side: "yes", Action: "buy", Type: "limit", Price: 50, Quantity: "1", Owner: "a"}},
		{"bad side", submitOrderRequest{MarketID: m.ID, Side: "maybe", Action: "buy", Type: "limit", Price: 50, Quantity: "1", Owner: "a"}},
		{"bad quantity", submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 50, Quantity: "abc", Owner: "a"}},
		{"zero quantity", submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 50, Quantity: "0", Owner: "a"}},
		{"price out of range", submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 101, Quantity: "1", Owner: "a"}},
		{"sell without position", submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "sell", Type: "limit", Price: 50, Quantity: "1", Owner: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/v1/orders", tt.req)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetBook(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createMarket(t, ts)

	submit(t, ts, submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 35, Quantity: "5", Owner: "carol"})
	submit(t, ts, submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 30, Quantity: "5", Owner: "carol"})
	submit(t, ts, submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "sell", Type: "limit", Price: 45, Quantity: "3", Owner: "bob"})

	resp, err := http.Get(fmt.Sprintf("%s/v1/markets/%s/book?side=yes", ts.URL, m.ID))
	if err != nil {
		t.Fatalf("GET book: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("book status = %d, want 200", resp.StatusCode)
	}
	bk := decodeJSON[bookJSON](t, resp)

	if bk.BestBid != 35 || bk.BestAsk != 45 {
		t.Errorf("best bid/ask = %d/%d, want 35/45", bk.BestBid, bk.BestAsk)
	}
	if bk.Spread != 10 || bk.Probability != 40 {
		t.Errorf("spread/probability = %d/%d, want 10/40", bk.Spread, bk.Probability)
	}
	if len(bk.Bids) != 2 || bk.Bids[0].Price != 35 || bk.Bids[1].Price != 30 {
		t.Errorf("bids not best-first: %+v", bk.Bids)
	}
	if len(bk.Asks) != 1 || bk.Asks[0].Price != 45 || bk.Asks[0].Shares != "3" {
		t.Errorf("asks wrong: %+v", bk.Asks)
	}
}

func TestGetBookRejectsBadSide(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createMarket(t, ts)

	resp, err := http.Get(fmt.Sprintf("%s/v1/markets/%s/book?side=maybe", ts.URL, m.ID))
	if err != nil {
		t.Fatalf("GET book: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListTradesAndPositions(t *testing.T) {
	ts, _ := newTestServer(t)
	m := createMarket(t, ts)

	submit(t, ts, submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "sell", Type: "limit", Price: 40, Quantity: "10", Owner: "bob"})
	submit(t, ts, submitOrderRequest{MarketID: m.ID, Side: "yes", Action: "buy", Type: "limit", Price: 40, Quantity: "4", Owner: "alice"})

	resp, err := http.Get(fmt.Sprintf("%s/v1/markets/%s/trades", ts.URL, m.ID))
	if err != nil {
		t.Fatalf("GET trades: %v", err)
	}
	trades := decodeJSON[[]tradeJSON](t, resp)
	if len(trades) != 1 || trades[0].Shares != "4" || trades[0].Price != 40 {
		t.Errorf("trades = %+v", trades)
	}

	resp, err = http.Get(ts.URL + "/v1/positions?owner=alice")
	if err != nil {
		t.Fatalf("GET positions: %v", err)
	}
	positions := decodeJSON[[]positionJSON](t, resp)
	if len(positions) != 1 || positions[0].Shares != "4" || positions[0].AvgPrice != "40" {
		t.Errorf("positions = %+v", positions)
	}

	resp, err = http.Get(ts.URL + "/v1/positions")
	if err != nil {
		t.Fatalf("GET positions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing owner status = %d, want 400", resp.StatusCode)
	}
}

func TestGetMarketNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/markets/00000000-0000-0000-0000-000000000001")
	if err != nil {
		t.Fatalf("GET market: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
