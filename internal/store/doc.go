// Package store persists exchange state (markets, orders, trades, positions).
//
// Two implementations share one contract:
//   - Postgres: pgx-backed, uses transactions plus per-(market, side)
//     advisory locks so settlement units commit atomically and matching
//     passes for the same book key serialize across processes.
//   - Memory: mutex-backed with snapshot rollback, for tests and local runs.
package store
