package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// Memory is an in-memory Store for tests and local development. A single
// mutex serializes all transactions, which trivially satisfies the per-key
// serialization requirement; InTx snapshots state so a failing settlement
// rolls back completely.
type Memory struct {
	mu        sync.Mutex
	seq       int64
	markets   map[uuid.UUID]model.Market
	orders    map[uuid.UUID]model.Order
	trades    []model.Trade
	positions map[uuid.UUID]model.Position
	failOn    map[string]error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		markets:   make(map[uuid.UUID]model.Market),
		orders:    make(map[uuid.UUID]model.Order),
		positions: make(map[uuid.UUID]model.Position),
		failOn:    make(map[string]error),
	}
}

// FailNext makes the next write of the named kind return err. Kinds:
// create_order, update_order, create_trade, create_position,
// update_position, add_volume. Test hook.
func (m *Memory) FailNext(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[kind] = err
}

func (m *Memory) takeFailure(kind string) error {
	if err, ok := m.failOn[kind]; ok {
		delete(m.failOn, kind)
		return err
	}
	return nil
}

// InTx runs fn under the store mutex against a snapshot-protected view.
func (m *Memory) InTx(ctx context.Context, key LockKey, fn func(tx View) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Snapshot for rollback.
	seq := m.seq
	markets := make(map[uuid.UUID]model.Market, len(m.markets))
	for k, v := range m.markets {
		markets[k] = v
	}
	orders := make(map[uuid.UUID]model.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	trades := make([]model.Trade, len(m.trades))
	copy(trades, m.trades)
	positions := make(map[uuid.UUID]model.Position, len(m.positions))
	for k, v := range m.positions {
		positions[k] = v
	}

	if err := fn(memView{m}); err != nil {
		m.seq = seq
		m.markets = markets
		m.orders = orders
		m.trades = trades
		m.positions = positions
		return err
	}
	return nil
}

// View methods on *Memory lock and delegate to the unlocked view, so the
// same code path serves direct reads and transactional access.

func (m *Memory) ListOpenOrders(ctx context.Context, marketID uuid.UUID, side model.Side, action model.Action) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.ListOpenOrders(ctx, marketID, side, action)
}

func (m *Memory) CreateOrder(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.CreateOrder(ctx, o)
}

func (m *Memory) UpdateOrderFill(ctx context.Context, id uuid.UUID, filled decimal.Decimal, status model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.UpdateOrderFill(ctx, id, filled, status)
}

func (m *Memory) CreateTrade(ctx context.Context, t *model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.CreateTrade(ctx, t)
}

func (m *Memory) GetPosition(ctx context.Context, marketID uuid.UUID, side model.Side, owner string) (model.Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.GetPosition(ctx, marketID, side, owner)
}

func (m *Memory) CreatePosition(ctx context.Context, p *model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.CreatePosition(ctx, p)
}

func (m *Memory) UpdatePosition(ctx context.Context, id uuid.UUID, shares, avgPrice, currentValue decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.UpdatePosition(ctx, id, shares, avgPrice, currentValue)
}

func (m *Memory) AddMarketVolume(ctx context.Context, marketID uuid.UUID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.AddMarketVolume(ctx, marketID, delta)
}

func (m *Memory) GetMarket(ctx context.Context, id uuid.UUID) (model.Market, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.GetMarket(ctx, id)
}

func (m *Memory) CreateMarket(ctx context.Context, mk *model.Market) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.CreateMarket(ctx, mk)
}

func (m *Memory) ListMarkets(ctx context.Context, limit int) ([]model.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.ListMarkets(ctx, limit)
}

func (m *Memory) ListTrades(ctx context.Context, marketID uuid.UUID, limit int) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.ListTrades(ctx, marketID, limit)
}

func (m *Memory) ListPositions(ctx context.Context, owner string) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memView{m}.ListPositions(ctx, owner)
}

// memView implements View without locking; the caller holds the mutex.
type memView struct {
	m *Memory
}

func (v memView) ListOpenOrders(_ context.Context, marketID uuid.UUID, side model.Side, action model.Action) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range v.m.orders {
		if o.MarketID == marketID && o.Side == side && o.Action == action &&
			o.IsOpen() && o.Remaining().IsPositive() {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Seq < orders[j].Seq })
	return orders, nil
}

func (v memView) CreateOrder(_ context.Context, o *model.Order) error {
	if err := v.m.takeFailure("create_order"); err != nil {
		return err
	}
	v.m.seq++
	o.Seq = v.m.seq
	o.CreatedAt = time.Now().UTC()
	v.m.orders[o.ID] = *o
	return nil
}

func (v memView) UpdateOrderFill(_ context.Context, id uuid.UUID, filled decimal.Decimal, status model.OrderStatus) error {
	if err := v.m.takeFailure("update_order"); err != nil {
		return err
	}
	o, ok := v.m.orders[id]
	if !ok {
		return &NotFoundError{Kind: "order", ID: id.String()}
	}
	o.FilledQuantity = filled
	o.Status = status
	v.m.orders[id] = o
	return nil
}

func (v memView) CreateTrade(_ context.Context, t *model.Trade) error {
	if err := v.m.takeFailure("create_trade"); err != nil {
		return err
	}
	t.CreatedAt = time.Now().UTC()
	v.m.trades = append(v.m.trades, *t)
	return nil
}

func (v memView) GetPosition(_ context.Context, marketID uuid.UUID, side model.Side, owner string) (model.Position, bool, error) {
	for _, p := range v.m.positions {
		if p.MarketID == marketID && p.Side == side && p.Owner == owner {
			return p, true, nil
		}
	}
	return model.Position{}, false, nil
}

func (v memView) CreatePosition(_ context.Context, p *model.Position) error {
	if err := v.m.takeFailure("create_position"); err != nil {
		return err
	}
	p.CreatedAt = time.Now().UTC()
	v.m.positions[p.ID] = *p
	return nil
}

func (v memView) UpdatePosition(_ context.Context, id uuid.UUID, shares, avgPrice, currentValue decimal.Decimal) error {
	if err := v.m.takeFailure("update_position"); err != nil {
		return err
	}
	p, ok := v.m.positions[id]
	if !ok {
		return &NotFoundError{Kind: "position", ID: id.String()}
	}
	p.Shares = shares
	p.AvgPrice = avgPrice
	p.CurrentValue = currentValue
	v.m.positions[id] = p
	return nil
}

func (v memView) AddMarketVolume(_ context.Context, marketID uuid.UUID, delta decimal.Decimal) error {
	if err := v.m.takeFailure("add_volume"); err != nil {
		return err
	}
	mk, ok := v.m.markets[marketID]
	if !ok {
		return &NotFoundError{Kind: "market", ID: marketID.String()}
	}
	mk.Volume = mk.Volume.Add(delta)
	v.m.markets[marketID] = mk
	return nil
}

func (v memView) GetMarket(_ context.Context, id uuid.UUID) (model.Market, bool, error) {
	mk, ok := v.m.markets[id]
	return mk, ok, nil
}

func (v memView) CreateMarket(_ context.Context, mk *model.Market) error {
	mk.CreatedAt = time.Now().UTC()
	v.m.markets[mk.ID] = *mk
	return nil
}

func (v memView) ListMarkets(_ context.Context, limit int) ([]model.Market, error) {
	markets := make([]model.Market, 0, len(v.m.markets))
	for _, mk := range v.m.markets {
		markets = append(markets, mk)
	}
	sort.Slice(markets, func(i, j int) bool {
		if !markets[i].Volume.Equal(markets[j].Volume) {
			return markets[i].Volume.GreaterThan(markets[j].Volume)
		}
		return markets[i].CreatedAt.After(markets[j].CreatedAt)
	})
	if limit > 0 && len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

func (v memView) ListTrades(_ context.Context, marketID uuid.UUID, limit int) ([]model.Trade, error) {
	var trades []model.Trade
	for i := len(v.m.trades) - 1; i >= 0; i-- {
		if v.m.trades[i].MarketID == marketID {
			trades = append(trades, v.m.trades[i])
			if limit > 0 && len(trades) == limit {
				break
			}
		}
	}
	return trades, nil
}

func (v memView) ListPositions(_ context.Context, owner string) ([]model.Position, error) {
	var positions []model.Position
	for _, p := range v.m.positions {
		if p.Owner == owner {
			positions = append(positions, p)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.After(positions[j].CreatedAt)
	})
	return positions, nil
}
