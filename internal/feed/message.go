package feed

import (
	"time"

	"github.com/rickgao/outcome-exchange/internal/engine"
)

// Message is the wire form of a committed settlement unit. Decimal
// quantities travel as strings so clients never lose precision to float
// decoding; prices stay integer cents.
type Message struct {
	Type     string `json:"type"`
	MarketID string `json:"market_id"`
	Side     string `json:"side"`

	Trades    []TradeMessage `json:"trades"`
	Remaining string         `json:"remaining"`
	Rested    *OrderMessage  `json:"rested,omitempty"`

	BestBid     int `json:"best_bid"`
	BestAsk     int `json:"best_ask"`
	Spread      int `json:"spread"`
	Probability int `json:"probability"`

	Volume string `json:"volume"`
}

// TradeMessage is one execution inside a settlement.
type TradeMessage struct {
	ID           string    `json:"id"`
	MakerOrderID string    `json:"maker_order_id"`
	Side         string    `json:"side"`
	Action       string    `json:"action"`
	Shares       string    `json:"shares"`
	Price        int       `json:"price"`
	Total        string    `json:"total"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderMessage is the leftover order rested on the book, if any.
type OrderMessage struct {
	ID        string    `json:"id"`
	Side      string    `json:"side"`
	Action    string    `json:"action"`
	Price     int       `json:"price"`
	Quantity  string    `json:"quantity"`
	Filled    string    `json:"filled"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Encode converts a settlement event to its wire form. Owner identities
// stay server-side; the feed carries market data only.
func Encode(ev engine.SettlementEvent) Message {
	msg := Message{
		Type:        "settlement",
		MarketID:    ev.MarketID.String(),
		Side:        string(ev.Side),
		Trades:      make([]TradeMessage, 0, len(ev.Trades)),
		Remaining:   ev.Remaining.String(),
		BestBid:     ev.Book.BestBid,
		BestAsk:     ev.Book.BestAsk,
		Spread:      ev.Book.Spread(),
		Probability: ev.Book.MidProbability(),
		Volume:      ev.Volume.String(),
	}
	for _, t := range ev.Trades {
		msg.Trades = append(msg.Trades, TradeMessage{
			ID:           t.ID.String(),
			MakerOrderID: t.MakerOrderID.String(),
			Side:         string(t.Side),
			Action:       string(t.Action),
			Shares:       t.Shares.String(),
			Price:        t.Price,
			Total:        t.Total.String(),
			CreatedAt:    t.CreatedAt,
		})
	}
	if ev.Rested != nil {
		msg.Rested = &OrderMessage{
			ID:        ev.Rested.ID.String(),
			Side:      string(ev.Rested.Side),
			Action:    string(ev.Rested.Action),
			Price:     ev.Rested.Price,
			Quantity:  ev.Rested.Quantity.String(),
			Filled:    ev.Rested.FilledQuantity.String(),
			Status:    string(ev.Rested.Status),
			CreatedAt: ev.Rested.CreatedAt,
		}
	}
	return msg
}
