package api

import (
	"time"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// submitOrderRequest is the POST /v1/orders body.
type submitOrderRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Action   string `json:"action"`
	Type     string `json:"type"`
	Price    int    `json:"price,omitempty"`
	Quantity string `json:"quantity"`
	Owner    string `json:"owner"`
}

// submitOrderResponse reports the settled outcome of a submission.
type submitOrderResponse struct {
	Trades    []tradeJSON `json:"trades"`
	Remaining string      `json:"remaining"`
	Rested    *orderJSON  `json:"rested,omitempty"`
}

// createMarketRequest is the POST /v1/markets body.
type createMarketRequest struct {
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
}

type marketJSON struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category,omitempty"`
	Status         string    `json:"status"`
	YesProbability int       `json:"yes_probability"`
	Volume         string    `json:"volume"`
	CreatedAt      time.Time `json:"created_at"`
}

type orderJSON struct {
	ID        string    `json:"id"`
	MarketID  string    `json:"market_id"`
	Side      string    `json:"side"`
	Action    string    `json:"action"`
	Type      string    `json:"type"`
	Price     int       `json:"price"`
	Quantity  string    `json:"quantity"`
	Filled    string    `json:"filled"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type tradeJSON struct {
	ID           string    `json:"id"`
	MarketID     string    `json:"market_id"`
	MakerOrderID string    `json:"maker_order_id"`
	Side         string    `json:"side"`
	Action       string    `json:"action"`
	Shares       string    `json:"shares"`
	Price        int       `json:"price"`
	Total        string    `json:"total"`
	CreatedAt    time.Time `json:"created_at"`
}

type positionJSON struct {
	ID           string    `json:"id"`
	MarketID     string    `json:"market_id"`
	Side         string    `json:"side"`
	Owner        string    `json:"owner"`
	Shares       string    `json:"shares"`
	AvgPrice     string    `json:"avg_price"`
	CurrentValue string    `json:"current_value"`
	CreatedAt    time.Time `json:"created_at"`
}

// bookJSON is one side's order book: aggregate bid/ask levels plus the
// derived summary figures.
type bookJSON struct {
	MarketID    string      `json:"market_id"`
	Side        string      `json:"side"`
	Bids        []levelJSON `json:"bids"`
	Asks        []levelJSON `json:"asks"`
	BestBid     int         `json:"best_bid"`
	BestAsk     int         `json:"best_ask"`
	Spread      int         `json:"spread"`
	Probability int         `json:"probability"`
}

type levelJSON struct {
	Price  int    `json:"price"`
	Shares string `json:"shares"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toMarketJSON(m model.Market) marketJSON {
	return marketJSON{
		ID:             m.ID.String(),
		Title:          m.Title,
		Category:       m.Category,
		Status:         m.Status,
		YesProbability: m.YesProbability,
		Volume:         m.Volume.String(),
		CreatedAt:      m.CreatedAt,
	}
}

func toOrderJSON(o model.Order) orderJSON {
	return orderJSON{
		ID:        o.ID.String(),
		MarketID:  o.MarketID.String(),
		Side:      string(o.Side),
		Action:    string(o.Action),
		Type:      string(o.Type),
		Price:     o.Price,
		Quantity:  o.Quantity.String(),
		Filled:    o.FilledQuantity.String(),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

func toTradeJSON(t model.Trade) tradeJSON {
	return tradeJSON{
		ID:           t.ID.String(),
		MarketID:     t.MarketID.String(),
		MakerOrderID: t.MakerOrderID.String(),
		Side:         string(t.Side),
		Action:       string(t.Action),
		Shares:       t.Shares.String(),
		Price:        t.Price,
		Total:        t.Total.String(),
		CreatedAt:    t.CreatedAt,
	}
}

func toPositionJSON(p model.Position) positionJSON {
	return positionJSON{
		ID:           p.ID.String(),
		MarketID:     p.MarketID.String(),
		Side:         string(p.Side),
		Owner:        p.Owner,
		Shares:       p.Shares.String(),
		AvgPrice:     p.AvgPrice.String(),
		CurrentValue: p.CurrentValue.String(),
		CreatedAt:    p.CreatedAt,
	}
}
