// Package api serves the trading HTTP API: order submission plus read
// endpoints for markets, order books, trades, and positions.
//
// All writes flow through the engine so the matching and settlement
// guarantees apply; the read endpoints query the store directly. Decimal
// quantities are serialized as strings.
package api
