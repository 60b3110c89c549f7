package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the idempotent DDL for exchange state.
//
// orders.seq is the arrival sequence used for time-priority tie-breaks;
// the partial index covers the book read in every matching pass.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS markets (
		id              UUID PRIMARY KEY,
		title           TEXT NOT NULL,
		category        TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'active',
		yes_probability INT NOT NULL DEFAULT 50,
		volume          NUMERIC NOT NULL DEFAULT 0 CHECK (volume >= 0),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id              UUID PRIMARY KEY,
		market_id       UUID NOT NULL REFERENCES markets(id),
		side            TEXT NOT NULL CHECK (side IN ('yes', 'no')),
		action          TEXT NOT NULL CHECK (action IN ('buy', 'sell')),
		order_type      TEXT NOT NULL CHECK (order_type IN ('limit', 'market')),
		price           INT NOT NULL CHECK (price >= 0 AND price <= 100),
		quantity        NUMERIC NOT NULL CHECK (quantity > 0),
		filled_quantity NUMERIC NOT NULL DEFAULT 0
			CHECK (filled_quantity >= 0 AND filled_quantity <= quantity),
		status          TEXT NOT NULL CHECK (status IN ('open', 'partial', 'filled')),
		owner_id        TEXT NOT NULL,
		seq             BIGINT GENERATED ALWAYS AS IDENTITY,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_book
		ON orders (market_id, side, action, seq)
		WHERE status IN ('open', 'partial')`,
	`CREATE TABLE IF NOT EXISTS trades (
		id             UUID PRIMARY KEY,
		market_id      UUID NOT NULL REFERENCES markets(id),
		maker_order_id UUID NOT NULL REFERENCES orders(id),
		side           TEXT NOT NULL CHECK (side IN ('yes', 'no')),
		action         TEXT NOT NULL CHECK (action IN ('buy', 'sell')),
		shares         NUMERIC NOT NULL CHECK (shares > 0),
		price          INT NOT NULL CHECK (price >= 0 AND price <= 100),
		total          NUMERIC NOT NULL,
		owner_id       TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_market_time
		ON trades (market_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id            UUID PRIMARY KEY,
		market_id     UUID NOT NULL REFERENCES markets(id),
		side          TEXT NOT NULL CHECK (side IN ('yes', 'no')),
		owner_id      TEXT NOT NULL,
		shares        NUMERIC NOT NULL,
		avg_price     NUMERIC NOT NULL,
		current_value NUMERIC NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (market_id, side, owner_id)
	)`,
}

// EnsureSchema applies the DDL. Safe to run on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
