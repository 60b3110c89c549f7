// Package database provides PostgreSQL connection pool management.
//
// All exchange state (markets, orders, trades, positions) lives in a single
// PostgreSQL database; settlement transactions and advisory locks run
// against this pool.
package database
