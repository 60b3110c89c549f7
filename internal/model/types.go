package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// Side is the binary outcome being traded within a market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// ParseSide converts a string to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideYes, SideNo:
		return Side(s), nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// Valid reports whether the side is a known value.
func (s Side) Valid() bool { return s == SideYes || s == SideNo }

// Action is the direction of an order.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ParseAction converts a string to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionBuy, ActionSell:
		return Action(s), nil
	}
	return "", fmt.Errorf("invalid action %q", s)
}

// Valid reports whether the action is a known value.
func (a Action) Valid() bool { return a == ActionBuy || a == ActionSell }

// Opposite returns the contra action (the side of the book an order matches against).
func (a Action) Opposite() Action {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// ParseOrderType converts a string to an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeLimit, OrderTypeMarket:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("invalid order type %q", s)
}

// Valid reports whether the order type is a known value.
func (t OrderType) Valid() bool { return t == OrderTypeLimit || t == OrderTypeMarket }

// OrderStatus is the fill state of an order.
type OrderStatus string

const (
	OrderStatusOpen    OrderStatus = "open"
	OrderStatusPartial OrderStatus = "partial"
	OrderStatusFilled  OrderStatus = "filled"
)

// -----------------------------------------------------------------------------
// Entities
// -----------------------------------------------------------------------------

// Order is a request to trade shares of one outcome side.
//
// Invariants: 0 <= FilledQuantity <= Quantity; Status is Filled iff
// FilledQuantity == Quantity, Partial iff 0 < FilledQuantity < Quantity;
// Price is always in [0,100].
type Order struct {
	ID             uuid.UUID       // Primary key
	MarketID       uuid.UUID       // Market this order trades
	Side           Side            // Outcome side (yes/no)
	Action         Action          // buy or sell
	Type           OrderType       // limit or market
	Price          int             // Limit price in cents (0-100); ignored for market orders
	Quantity       decimal.Decimal // Total shares requested (positive)
	FilledQuantity decimal.Decimal // Shares executed so far
	Status         OrderStatus     // open, partial, filled
	Owner          string          // Trader identity
	Seq            int64           // Arrival sequence (assigned by the store)
	CreatedAt      time.Time       // Submission time
}

// Remaining returns the unfilled share quantity.
func (o Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsOpen reports whether the order still has matchable quantity.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartial
}

// Trade records one maker/taker pairing from a matching pass. Immutable.
type Trade struct {
	ID           uuid.UUID       // Primary key
	MarketID     uuid.UUID       // Market traded
	MakerOrderID uuid.UUID       // Resting order consumed
	Side         Side            // Taker's outcome side
	Action       Action          // Taker's action
	Shares       decimal.Decimal // Executed quantity
	Price        int             // Execution price in cents (maker's quote)
	Total        decimal.Decimal // Notional: Shares * Price / 100
	Owner        string          // Taker identity
	CreatedAt    time.Time       // Execution time
}

// Notional computes the dollar value of shares traded at a price in cents.
func Notional(shares decimal.Decimal, price int) decimal.Decimal {
	return shares.Mul(decimal.New(int64(price), -2))
}

// Position is a trader's holding on one outcome side of one market.
// Unique per (MarketID, Side, Owner). Zero shares is a valid terminal
// state; positions are never deleted.
type Position struct {
	ID           uuid.UUID       // Primary key
	MarketID     uuid.UUID       // Market held
	Side         Side            // Outcome side held
	Owner        string          // Trader identity
	Shares       decimal.Decimal // Shares held
	AvgPrice     decimal.Decimal // Weighted-average entry price in cents
	CurrentValue decimal.Decimal // Shares * last execution price / 100
	CreatedAt    time.Time       // First fill time
}

// Market is a tradeable binary-outcome market.
type Market struct {
	ID             uuid.UUID       // Primary key
	Title          string          // Display title
	Category       string          // Category (e.g. "technology")
	Status         string          // "active" or "closed"
	YesProbability int             // Display-only probability, derived from mid-price
	Volume         decimal.Decimal // Cumulative traded notional; monotonically non-decreasing
	CreatedAt      time.Time       // Creation time
}
