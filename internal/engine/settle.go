package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/model"
	"github.com/rickgao/outcome-exchange/internal/store"
)

// settle applies a fill plan inside an open settlement transaction:
// trades, the taker's position, resting-order fills, market volume, and the
// leftover order. makers holds the resting orders as read by this pass,
// keyed by ID, for the fill-overrun guard.
//
// A market-order remainder is never rested; it is reported back as unfilled.
func settle(ctx context.Context, tx store.View, incoming model.Order, plan FillPlan, makers map[uuid.UUID]model.Order) ([]model.Trade, *model.Order, error) {
	trades := make([]model.Trade, 0, len(plan.Trades))

	pos, exists, err := tx.GetPosition(ctx, incoming.MarketID, incoming.Side, incoming.Owner)
	if err != nil {
		return nil, nil, &StorageError{Err: err}
	}
	created := false

	for _, t := range plan.Trades {
		t.ID = uuid.New()
		if err := tx.CreateTrade(ctx, &t); err != nil {
			return nil, nil, &StorageError{Err: err}
		}
		trades = append(trades, t)

		var wasNew bool
		pos, wasNew, err = applyFill(pos, exists, t)
		if err != nil {
			return nil, nil, err
		}
		exists = true
		created = created || wasNew
	}

	if len(plan.Trades) > 0 {
		if created {
			if err := tx.CreatePosition(ctx, &pos); err != nil {
				return nil, nil, &StorageError{Err: err}
			}
		} else {
			if err := tx.UpdatePosition(ctx, pos.ID, pos.Shares, pos.AvgPrice, pos.CurrentValue); err != nil {
				return nil, nil, &StorageError{Err: err}
			}
		}
	}

	for _, u := range plan.Resting {
		maker, ok := makers[u.OrderID]
		if !ok {
			return nil, nil, &ConsistencyError{
				Detail: fmt.Sprintf("fill update for order %s not in this pass's book", u.OrderID),
			}
		}
		if u.FilledQuantity.GreaterThan(maker.Quantity) {
			return nil, nil, &ConsistencyError{
				Detail: fmt.Sprintf("order %s filled %s exceeds quantity %s",
					u.OrderID, u.FilledQuantity, maker.Quantity),
			}
		}
		if err := tx.UpdateOrderFill(ctx, u.OrderID, u.FilledQuantity, u.Status); err != nil {
			return nil, nil, &StorageError{Err: err}
		}
	}

	notional := decimal.Zero
	for _, t := range trades {
		notional = notional.Add(t.Total)
	}
	if notional.IsPositive() {
		if err := tx.AddMarketVolume(ctx, incoming.MarketID, notional); err != nil {
			return nil, nil, &StorageError{Err: err}
		}
	}

	var rested *model.Order
	if plan.Remaining.IsPositive() && incoming.Type == model.OrderTypeLimit {
		leftover := model.Order{
			ID:             uuid.New(),
			MarketID:       incoming.MarketID,
			Side:           incoming.Side,
			Action:         incoming.Action,
			Type:           incoming.Type,
			Price:          incoming.Price,
			Quantity:       plan.Remaining,
			FilledQuantity: decimal.Zero,
			Status:         model.OrderStatusOpen,
			Owner:          incoming.Owner,
		}
		if err := tx.CreateOrder(ctx, &leftover); err != nil {
			return nil, nil, &StorageError{Err: err}
		}
		rested = &leftover
	}

	return trades, rested, nil
}
