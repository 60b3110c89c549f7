package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// applyFill folds one trade into the taker's position and reports whether
// the returned position is newly created. Weighted-average-cost accounting:
// buys move the average entry price, sells never do.
func applyFill(pos model.Position, exists bool, t model.Trade) (model.Position, bool, error) {
	execPrice := decimal.NewFromInt(int64(t.Price))

	if !exists {
		if t.Action != model.ActionBuy {
			// Sells are rejected upstream unless the trader holds shares,
			// so a sell with no position means serialization broke.
			return model.Position{}, false, &ConsistencyError{
				Detail: "sell fill for " + t.Owner + " with no position",
			}
		}
		return model.Position{
			ID:           uuid.New(),
			MarketID:     t.MarketID,
			Side:         t.Side,
			Owner:        t.Owner,
			Shares:       t.Shares,
			AvgPrice:     execPrice,
			CurrentValue: model.Notional(t.Shares, t.Price),
		}, true, nil
	}

	switch t.Action {
	case model.ActionBuy:
		newShares := pos.Shares.Add(t.Shares)
		// avg' = (shares*avg + fill*exec) / (shares + fill)
		cost := pos.Shares.Mul(pos.AvgPrice).Add(t.Shares.Mul(execPrice))
		pos.AvgPrice = cost.Div(newShares)
		pos.Shares = newShares
	case model.ActionSell:
		newShares := pos.Shares.Sub(t.Shares)
		if newShares.IsNegative() {
			return model.Position{}, false, &ConsistencyError{
				Detail: "sell fill would short " + t.Owner + " by " + newShares.Abs().String() + " shares",
			}
		}
		pos.Shares = newShares
	}
	pos.CurrentValue = model.Notional(pos.Shares, t.Price)

	return pos, false, nil
}
