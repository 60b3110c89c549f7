// Package model defines shared data types for the outcome exchange.
//
// Conventions:
//   - Prices: integer cents (0-100 = $0.00-$1.00 per share)
//   - Quantities, notionals and average prices: decimal.Decimal
//   - Timestamps: time.Time in UTC
//   - IDs: uuid.UUID
package model
