package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// statement set serves direct reads and settlement transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the pgx-backed Store.
type Postgres struct {
	pgView
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		pgView: pgView{q: pool},
		pool:   pool,
		logger: logger,
	}
}

// InTx begins a transaction, acquires the advisory lock for key, runs fn,
// and commits. Any error rolls the whole unit back. The advisory lock is
// transaction-scoped, so it releases on commit or rollback.
func (s *Postgres) InTx(ctx context.Context, key LockKey, fn func(tx View) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("settlement rollback failed", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID(key)); err != nil {
		return fmt.Errorf("acquire book lock: %w", err)
	}

	if err := fn(pgView{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement tx: %w", err)
	}
	return nil
}

// lockID hashes a book key into the 64-bit advisory lock space.
func lockID(key LockKey) int64 {
	h := fnv.New64a()
	h.Write(key.MarketID[:])
	h.Write([]byte(key.Side))
	return int64(h.Sum64())
}

// pgView implements View against either the pool or a transaction.
type pgView struct {
	q querier
}

func (v pgView) ListOpenOrders(ctx context.Context, marketID uuid.UUID, side model.Side, action model.Action) ([]model.Order, error) {
	rows, err := v.q.Query(ctx, `
		SELECT id, market_id, side, action, order_type, price, quantity,
		       filled_quantity, status, owner_id, seq, created_at
		FROM orders
		WHERE market_id = $1 AND side = $2 AND action = $3
		  AND status IN ('open', 'partial')
		  AND quantity > filled_quantity
		ORDER BY seq
	`, marketID, side, action)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.MarketID, &o.Side, &o.Action, &o.Type, &o.Price,
			&o.Quantity, &o.FilledQuantity, &o.Status, &o.Owner, &o.Seq, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	return orders, nil
}

func (v pgView) CreateOrder(ctx context.Context, o *model.Order) error {
	err := v.q.QueryRow(ctx, `
		INSERT INTO orders (id, market_id, side, action, order_type, price,
		                    quantity, filled_quantity, status, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq, created_at
	`, o.ID, o.MarketID, o.Side, o.Action, o.Type, o.Price,
		o.Quantity, o.FilledQuantity, o.Status, o.Owner).Scan(&o.Seq, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (v pgView) UpdateOrderFill(ctx context.Context, id uuid.UUID, filled decimal.Decimal, status model.OrderStatus) error {
	ct, err := v.q.Exec(ctx, `
		UPDATE orders SET filled_quantity = $2, status = $3 WHERE id = $1
	`, id, filled, status)
	if err != nil {
		return fmt.Errorf("update order fill: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Kind: "order", ID: id.String()}
	}
	return nil
}

func (v pgView) CreateTrade(ctx context.Context, t *model.Trade) error {
	err := v.q.QueryRow(ctx, `
		INSERT INTO trades (id, market_id, maker_order_id, side, action,
		                    shares, price, total, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, t.ID, t.MarketID, t.MakerOrderID, t.Side, t.Action,
		t.Shares, t.Price, t.Total, t.Owner).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create trade: %w", err)
	}
	return nil
}

func (v pgView) GetPosition(ctx context.Context, marketID uuid.UUID, side model.Side, owner string) (model.Position, bool, error) {
	var p model.Position
	err := v.q.QueryRow(ctx, `
		SELECT id, market_id, side, owner_id, shares, avg_price, current_value, created_at
		FROM positions
		WHERE market_id = $1 AND side = $2 AND owner_id = $3
	`, marketID, side, owner).Scan(&p.ID, &p.MarketID, &p.Side, &p.Owner,
		&p.Shares, &p.AvgPrice, &p.CurrentValue, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Position{}, false, nil
	}
	if err != nil {
		return model.Position{}, false, fmt.Errorf("get position: %w", err)
	}
	return p, true, nil
}

func (v pgView) CreatePosition(ctx context.Context, p *model.Position) error {
	err := v.q.QueryRow(ctx, `
		INSERT INTO positions (id, market_id, side, owner_id, shares, avg_price, current_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.MarketID, p.Side, p.Owner, p.Shares, p.AvgPrice, p.CurrentValue).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

func (v pgView) UpdatePosition(ctx context.Context, id uuid.UUID, shares, avgPrice, currentValue decimal.Decimal) error {
	ct, err := v.q.Exec(ctx, `
		UPDATE positions SET shares = $2, avg_price = $3, current_value = $4 WHERE id = $1
	`, id, shares, avgPrice, currentValue)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Kind: "position", ID: id.String()}
	}
	return nil
}

func (v pgView) AddMarketVolume(ctx context.Context, marketID uuid.UUID, delta decimal.Decimal) error {
	ct, err := v.q.Exec(ctx, `
		UPDATE markets SET volume = volume + $2 WHERE id = $1
	`, marketID, delta)
	if err != nil {
		return fmt.Errorf("add market volume: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Kind: "market", ID: marketID.String()}
	}
	return nil
}

func (v pgView) GetMarket(ctx context.Context, id uuid.UUID) (model.Market, bool, error) {
	var m model.Market
	err := v.q.QueryRow(ctx, `
		SELECT id, title, category, status, yes_probability, volume, created_at
		FROM markets WHERE id = $1
	`, id).Scan(&m.ID, &m.Title, &m.Category, &m.Status, &m.YesProbability, &m.Volume, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Market{}, false, nil
	}
	if err != nil {
		return model.Market{}, false, fmt.Errorf("get market: %w", err)
	}
	return m, true, nil
}

func (v pgView) CreateMarket(ctx context.Context, m *model.Market) error {
	err := v.q.QueryRow(ctx, `
		INSERT INTO markets (id, title, category, status, yes_probability, volume)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.Title, m.Category, m.Status, m.YesProbability, m.Volume).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create market: %w", err)
	}
	return nil
}

func (v pgView) ListMarkets(ctx context.Context, limit int) ([]model.Market, error) {
	rows, err := v.q.Query(ctx, `
		SELECT id, title, category, status, yes_probability, volume, created_at
		FROM markets
		ORDER BY volume DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		if err := rows.Scan(&m.ID, &m.Title, &m.Category, &m.Status,
			&m.YesProbability, &m.Volume, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	return markets, nil
}

func (v pgView) ListTrades(ctx context.Context, marketID uuid.UUID, limit int) ([]model.Trade, error) {
	rows, err := v.q.Query(ctx, `
		SELECT id, market_id, maker_order_id, side, action, shares, price, total, owner_id, created_at
		FROM trades
		WHERE market_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.MarketID, &t.MakerOrderID, &t.Side, &t.Action,
			&t.Shares, &t.Price, &t.Total, &t.Owner, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

func (v pgView) ListPositions(ctx context.Context, owner string) ([]model.Position, error) {
	rows, err := v.q.Query(ctx, `
		SELECT id, market_id, side, owner_id, shares, avg_price, current_value, created_at
		FROM positions
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.MarketID, &p.Side, &p.Owner,
			&p.Shares, &p.AvgPrice, &p.CurrentValue, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}
