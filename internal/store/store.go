package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// LockKey identifies one side of one market's book. Matching passes for the
// same key must run strictly sequentially; different keys may run in parallel.
type LockKey struct {
	MarketID uuid.UUID
	Side     model.Side
}

// View is the set of storage operations available both directly and inside
// a settlement transaction.
type View interface {
	// ListOpenOrders returns open/partial orders with unfilled quantity for
	// (market, side, action), in arrival order. Priority ordering is the
	// book's concern.
	ListOpenOrders(ctx context.Context, marketID uuid.UUID, side model.Side, action model.Action) ([]model.Order, error)

	// CreateOrder persists a new order and assigns its arrival sequence.
	CreateOrder(ctx context.Context, o *model.Order) error

	// UpdateOrderFill sets a resting order's fill state.
	UpdateOrderFill(ctx context.Context, id uuid.UUID, filled decimal.Decimal, status model.OrderStatus) error

	// CreateTrade persists an executed trade.
	CreateTrade(ctx context.Context, t *model.Trade) error

	// GetPosition returns the unique position for (market, side, owner),
	// or ok=false when the trader holds none.
	GetPosition(ctx context.Context, marketID uuid.UUID, side model.Side, owner string) (model.Position, bool, error)

	// CreatePosition persists a trader's first position on a side.
	CreatePosition(ctx context.Context, p *model.Position) error

	// UpdatePosition sets a position's holding state.
	UpdatePosition(ctx context.Context, id uuid.UUID, shares, avgPrice, currentValue decimal.Decimal) error

	// AddMarketVolume increments a market's cumulative volume.
	AddMarketVolume(ctx context.Context, marketID uuid.UUID, delta decimal.Decimal) error

	// GetMarket returns a market by ID, or ok=false when unknown.
	GetMarket(ctx context.Context, id uuid.UUID) (model.Market, bool, error)

	// CreateMarket persists a new market.
	CreateMarket(ctx context.Context, m *model.Market) error

	// ListMarkets returns markets ordered by volume descending.
	ListMarkets(ctx context.Context, limit int) ([]model.Market, error)

	// ListTrades returns a market's most recent trades, newest first.
	ListTrades(ctx context.Context, marketID uuid.UUID, limit int) ([]model.Trade, error)

	// ListPositions returns a trader's positions, newest first.
	ListPositions(ctx context.Context, owner string) ([]model.Position, error)
}

// Store is the full storage contract. InTx runs fn against a transactional
// view while holding the exclusive lock for key; either every write in fn
// commits or none do.
type Store interface {
	View
	InTx(ctx context.Context, key LockKey, fn func(tx View) error) error
}
