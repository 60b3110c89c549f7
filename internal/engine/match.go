package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/book"
	"github.com/rickgao/outcome-exchange/internal/model"
)

// RestingUpdate is the fill-state mutation for one matched resting order.
type RestingUpdate struct {
	OrderID        uuid.UUID
	FilledQuantity decimal.Decimal
	Status         model.OrderStatus
}

// FillPlan is the outcome of one matching pass: trades to record, resting
// orders to mutate, and the incoming order's unfilled remainder. Trades
// carry no ID or timestamp; the settlement step assigns those.
type FillPlan struct {
	Trades    []model.Trade
	Resting   []RestingUpdate
	Remaining decimal.Decimal
}

// Match walks the contra-side view in priority order and consumes liquidity
// until the incoming order is filled or no resting order crosses. Pure and
// deterministic: no I/O, no clock, no randomness. Callers validate the
// incoming order first; Match assumes quantity > 0 and, for limit orders, a
// price in (0, 100].
//
// Execution price is always the resting (maker) order's price. A market
// order crosses unconditionally; a limit buy crosses while its price is at
// or above the maker's, a limit sell while at or below. The first failed
// cross ends the pass, since every later order is priced worse.
func Match(incoming model.Order, contra book.View) FillPlan {
	plan := FillPlan{Remaining: incoming.Quantity}

	for _, maker := range contra.Orders() {
		if !plan.Remaining.IsPositive() {
			break
		}
		if incoming.Type == model.OrderTypeLimit && !crosses(incoming, maker.Price) {
			break
		}

		available := maker.Remaining()
		fill := decimal.Min(plan.Remaining, available)

		plan.Trades = append(plan.Trades, model.Trade{
			MarketID:     incoming.MarketID,
			MakerOrderID: maker.ID,
			Side:         incoming.Side,
			Action:       incoming.Action,
			Shares:       fill,
			Price:        maker.Price,
			Total:        model.Notional(fill, maker.Price),
			Owner:        incoming.Owner,
		})

		newFilled := maker.FilledQuantity.Add(fill)
		status := model.OrderStatusPartial
		if newFilled.GreaterThanOrEqual(maker.Quantity) {
			status = model.OrderStatusFilled
		}
		plan.Resting = append(plan.Resting, RestingUpdate{
			OrderID:        maker.ID,
			FilledQuantity: newFilled,
			Status:         status,
		})

		plan.Remaining = plan.Remaining.Sub(fill)
	}

	return plan
}

func crosses(incoming model.Order, makerPrice int) bool {
	if incoming.Action == model.ActionBuy {
		return incoming.Price >= makerPrice
	}
	return incoming.Price <= makerPrice
}
