package book

import (
	"sort"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// Level is the FIFO queue of resting orders at one price.
type Level struct {
	Price  int
	Orders []model.Order
}

// View is one side's resting liquidity ordered for a given taker. For a
// taker buying, levels ascend in price (cheapest ask first); for a taker
// selling, levels descend (highest bid first). Within a level, earliest
// arrival matches first.
type View struct {
	levels []Level
}

// Build indexes resting contra-side orders into a priority-ordered View.
// Orders that are not open or have no unfilled quantity are skipped.
func Build(resting []model.Order, taker model.Action) View {
	byPrice := make(map[int][]model.Order)
	for _, o := range resting {
		if !o.IsOpen() || !o.Remaining().IsPositive() {
			continue
		}
		byPrice[o.Price] = append(byPrice[o.Price], o)
	}

	levels := make([]Level, 0, len(byPrice))
	for price, orders := range byPrice {
		sort.Slice(orders, func(i, j int) bool {
			if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
				return orders[i].CreatedAt.Before(orders[j].CreatedAt)
			}
			return orders[i].Seq < orders[j].Seq
		})
		levels = append(levels, Level{Price: price, Orders: orders})
	}

	if taker == model.ActionBuy {
		// Buyer wants the lowest ask first.
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	} else {
		// Seller wants the highest bid first.
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	}

	return View{levels: levels}
}

// Orders returns the resting orders flattened in matching priority.
func (v View) Orders() []model.Order {
	var out []model.Order
	for _, lvl := range v.levels {
		out = append(out, lvl.Orders...)
	}
	return out
}

// Levels returns the price levels in priority order.
func (v View) Levels() []Level {
	return v.levels
}

// BestPrice returns the top-of-book price, or ok=false for an empty view.
func (v View) BestPrice() (int, bool) {
	if len(v.levels) == 0 {
		return 0, false
	}
	return v.levels[0].Price, true
}

// Empty reports whether the view has no resting liquidity.
func (v View) Empty() bool { return len(v.levels) == 0 }

// Summary is the display top-of-book for one (market, side): best bid,
// best ask, and their spread. Bounds default to 0 and 100 cents when a
// side is empty.
type Summary struct {
	BestBid int
	BestAsk int
}

// Summarize computes the top-of-book from open bids and asks.
func Summarize(bids, asks []model.Order) Summary {
	s := Summary{BestBid: 0, BestAsk: 100}
	for _, o := range bids {
		if o.IsOpen() && o.Remaining().IsPositive() && o.Price > s.BestBid {
			s.BestBid = o.Price
		}
	}
	for _, o := range asks {
		if o.IsOpen() && o.Remaining().IsPositive() && o.Price < s.BestAsk {
			s.BestAsk = o.Price
		}
	}
	return s
}

// Spread returns the bid-ask spread in cents.
func (s Summary) Spread() int { return s.BestAsk - s.BestBid }

// MidProbability derives the display probability from the mid-price.
func (s Summary) MidProbability() int { return (s.BestBid + s.BestAsk) / 2 }
