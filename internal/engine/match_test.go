package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/book"
	"github.com/rickgao/outcome-exchange/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func maker(price int, qty, filled string, seq int64) model.Order {
	o := model.Order{
		ID:             uuid.New(),
		Price:          price,
		Quantity:       dec(qty),
		FilledQuantity: dec(filled),
		Status:         model.OrderStatusOpen,
		Seq:            seq,
		CreatedAt:      time.Unix(1700000000+seq, 0),
	}
	if o.FilledQuantity.IsPositive() {
		o.Status = model.OrderStatusPartial
	}
	return o
}

func taker(action model.Action, otype model.OrderType, price int, qty string) model.Order {
	return model.Order{
		MarketID: uuid.New(),
		Side:     model.SideYes,
		Action:   action,
		Type:     otype,
		Price:    price,
		Quantity: dec(qty),
		Owner:    "alice",
	}
}

// Scenario 1: limit buy 15 @ 45 against a resting ask of 10 @ 40 fills the
// ask completely and leaves 5 unfilled.
func TestMatchLimitBuyPartialFill(t *testing.T) {
	ask := maker(40, "10", "0", 1)
	view := book.Build([]model.Order{ask}, model.ActionBuy)

	plan := Match(taker(model.ActionBuy, model.OrderTypeLimit, 45, "15"), view)

	if len(plan.Trades) != 1 {
		t.Fatalf("len(trades) = %d, want 1", len(plan.Trades))
	}
	tr := plan.Trades[0]
	if !tr.Shares.Equal(dec("10")) {
		t.Errorf("trade shares = %s, want 10", tr.Shares)
	}
	if tr.Price != 40 {
		t.Errorf("trade price = %d, want maker's 40", tr.Price)
	}
	if !tr.Total.Equal(dec("4")) {
		t.Errorf("trade total = %s, want 4.00", tr.Total)
	}
	if tr.MakerOrderID != ask.ID {
		t.Error("trade not paired with the resting ask")
	}

	if len(plan.Resting) != 1 {
		t.Fatalf("len(resting) = %d, want 1", len(plan.Resting))
	}
	if plan.Resting[0].Status != model.OrderStatusFilled {
		t.Errorf("resting status = %q, want filled", plan.Resting[0].Status)
	}
	if !plan.Resting[0].FilledQuantity.Equal(dec("10")) {
		t.Errorf("resting filled = %s, want 10", plan.Resting[0].FilledQuantity)
	}
	if !plan.Remaining.Equal(dec("5")) {
		t.Errorf("remaining = %s, want 5", plan.Remaining)
	}
}

// Scenario 2: market sell 5 against a resting bid of 5 @ 60 fills exactly.
func TestMatchMarketSellExactFill(t *testing.T) {
	bid := maker(60, "5", "0", 1)
	view := book.Build([]model.Order{bid}, model.ActionSell)

	plan := Match(taker(model.ActionSell, model.OrderTypeMarket, 0, "5"), view)

	if len(plan.Trades) != 1 {
		t.Fatalf("len(trades) = %d, want 1", len(plan.Trades))
	}
	if plan.Trades[0].Price != 60 {
		t.Errorf("trade price = %d, want 60", plan.Trades[0].Price)
	}
	if !plan.Trades[0].Total.Equal(dec("3")) {
		t.Errorf("trade total = %s, want 3.00", plan.Trades[0].Total)
	}
	if !plan.Remaining.IsZero() {
		t.Errorf("remaining = %s, want 0", plan.Remaining)
	}
	if plan.Resting[0].Status != model.OrderStatusFilled {
		t.Errorf("resting status = %q, want filled", plan.Resting[0].Status)
	}
}

// Scenario 3: limit buy at 30 cannot cross an ask at 50.
func TestMatchLimitBuyNoCross(t *testing.T) {
	view := book.Build([]model.Order{maker(50, "10", "0", 1)}, model.ActionBuy)

	plan := Match(taker(model.ActionBuy, model.OrderTypeLimit, 30, "10"), view)

	if len(plan.Trades) != 0 {
		t.Fatalf("len(trades) = %d, want 0", len(plan.Trades))
	}
	if !plan.Remaining.Equal(dec("10")) {
		t.Errorf("remaining = %s, want 10", plan.Remaining)
	}
}

func TestMatchLimitSellCrossRule(t *testing.T) {
	tests := []struct {
		name      string
		sellPrice int
		bidPrice  int
		wantMatch bool
	}{
		{"sell below bid crosses", 55, 60, true},
		{"sell at bid crosses", 60, 60, true},
		{"sell above bid does not cross", 65, 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := book.Build([]model.Order{maker(tt.bidPrice, "5", "0", 1)}, model.ActionSell)
			plan := Match(taker(model.ActionSell, model.OrderTypeLimit, tt.sellPrice, "5"), view)

			if got := len(plan.Trades) > 0; got != tt.wantMatch {
				t.Errorf("matched = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestMatchWalksMultipleLevels(t *testing.T) {
	asks := []model.Order{
		maker(40, "4", "0", 1),
		maker(42, "4", "0", 2),
		maker(45, "4", "0", 3),
		maker(50, "4", "0", 4), // beyond the limit, must not trade
	}
	view := book.Build(asks, model.ActionBuy)

	plan := Match(taker(model.ActionBuy, model.OrderTypeLimit, 45, "20"), view)

	if len(plan.Trades) != 3 {
		t.Fatalf("len(trades) = %d, want 3", len(plan.Trades))
	}
	// Prices must be non-decreasing for a buyer walking the book.
	prev := 0
	for _, tr := range plan.Trades {
		if tr.Price < prev {
			t.Errorf("trade prices out of priority order: %d after %d", tr.Price, prev)
		}
		prev = tr.Price
	}
	if !plan.Remaining.Equal(dec("8")) {
		t.Errorf("remaining = %s, want 8", plan.Remaining)
	}
}

func TestMatchRespectsPartialFills(t *testing.T) {
	// 10 quoted but 6 already filled; only 4 available.
	ask := maker(40, "10", "6", 1)
	view := book.Build([]model.Order{ask}, model.ActionBuy)

	plan := Match(taker(model.ActionBuy, model.OrderTypeLimit, 45, "10"), view)

	if !plan.Trades[0].Shares.Equal(dec("4")) {
		t.Errorf("trade shares = %s, want 4", plan.Trades[0].Shares)
	}
	if !plan.Resting[0].FilledQuantity.Equal(dec("10")) {
		t.Errorf("resting filled = %s, want 10", plan.Resting[0].FilledQuantity)
	}
	if plan.Resting[0].Status != model.OrderStatusFilled {
		t.Errorf("resting status = %q, want filled", plan.Resting[0].Status)
	}
	if !plan.Remaining.Equal(dec("6")) {
		t.Errorf("remaining = %s, want 6", plan.Remaining)
	}
}

func TestMatchMarketOrderSweepsBook(t *testing.T) {
	bids := []model.Order{
		maker(60, "3", "0", 1),
		maker(55, "3", "0", 2),
	}
	view := book.Build(bids, model.ActionSell)

	plan := Match(taker(model.ActionSell, model.OrderTypeMarket, 0, "10"), view)

	if len(plan.Trades) != 2 {
		t.Fatalf("len(trades) = %d, want 2", len(plan.Trades))
	}
	if plan.Trades[0].Price != 60 || plan.Trades[1].Price != 55 {
		t.Errorf("trade prices = %d, %d; want 60, 55", plan.Trades[0].Price, plan.Trades[1].Price)
	}
	if !plan.Remaining.Equal(dec("4")) {
		t.Errorf("remaining = %s, want 4", plan.Remaining)
	}
}

// Conservation: total traded shares plus the remainder always equals the
// incoming quantity, and each resting update adds exactly its fill.
func TestMatchConservation(t *testing.T) {
	tests := []struct {
		name   string
		qty    string
		price  int
		otype  model.OrderType
		action model.Action
		book   []model.Order
	}{
		{"full fill", "5", 50, model.OrderTypeLimit, model.ActionBuy, []model.Order{maker(45, "9", "0", 1)}},
		{"partial fill", "20", 50, model.OrderTypeLimit, model.ActionBuy, []model.Order{maker(45, "9", "0", 1)}},
		{"no fill", "7", 40, model.OrderTypeLimit, model.ActionBuy, []model.Order{maker(45, "9", "0", 1)}},
		{"multi level sweep", "11.5", 0, model.OrderTypeMarket, model.ActionSell, []model.Order{
			maker(60, "4", "1", 1), maker(58, "2.5", "0", 2), maker(51, "3", "0", 3),
		}},
		{"empty book", "3", 50, model.OrderTypeLimit, model.ActionSell, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := book.Build(tt.book, tt.action)
			incoming := taker(tt.action, tt.otype, tt.price, tt.qty)
			plan := Match(incoming, view)

			traded := decimal.Zero
			for _, tr := range plan.Trades {
				traded = traded.Add(tr.Shares)
			}
			if !traded.Add(plan.Remaining).Equal(incoming.Quantity) {
				t.Errorf("traded %s + remaining %s != quantity %s", traded, plan.Remaining, incoming.Quantity)
			}

			byID := make(map[uuid.UUID]model.Order)
			for _, o := range tt.book {
				byID[o.ID] = o
			}
			for i, u := range plan.Resting {
				before := byID[u.OrderID]
				gain := u.FilledQuantity.Sub(before.FilledQuantity)
				if !gain.Equal(plan.Trades[i].Shares) {
					t.Errorf("resting %d gained %s, want trade fill %s", i, gain, plan.Trades[i].Shares)
				}
				if u.FilledQuantity.GreaterThan(before.Quantity) {
					t.Errorf("resting %d filled %s exceeds quantity %s", i, u.FilledQuantity, before.Quantity)
				}
			}
		})
	}
}

func TestMatchIsPureOverInputs(t *testing.T) {
	asks := []model.Order{maker(40, "10", "0", 1), maker(45, "5", "0", 2)}
	view := book.Build(asks, model.ActionBuy)
	incoming := taker(model.ActionBuy, model.OrderTypeLimit, 45, "12")

	a := Match(incoming, view)
	b := Match(incoming, view)

	if len(a.Trades) != len(b.Trades) || !a.Remaining.Equal(b.Remaining) {
		t.Error("Match is not deterministic over identical inputs")
	}
	// The view's orders must be untouched.
	if !asks[0].FilledQuantity.IsZero() {
		t.Error("Match mutated a resting order")
	}
}
