package engine

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/outcome-exchange/internal/book"
	"github.com/rickgao/outcome-exchange/internal/model"
	"github.com/rickgao/outcome-exchange/internal/store"
)

// SubmitRequest is an incoming order submission.
type SubmitRequest struct {
	MarketID uuid.UUID
	Side     model.Side
	Action   model.Action
	Type     model.OrderType
	Price    int // Cents; ignored for market orders
	Quantity decimal.Decimal
	Owner    string
}

// SubmitResult reports the outcome of one matching pass.
type SubmitResult struct {
	Trades    []model.Trade
	Remaining decimal.Decimal
	// Rested is the leftover resting order, nil when the order filled
	// completely or a market-order remainder went unfilled.
	Rested *model.Order
}

// SettlementEvent describes one committed settlement unit, published after
// the transaction commits so subscribers never observe a torn state.
type SettlementEvent struct {
	MarketID  uuid.UUID
	Side      model.Side
	Trades    []model.Trade
	Remaining decimal.Decimal
	Rested    *model.Order
	Book      book.Summary
	Volume    decimal.Decimal
}

// SettlementHandler receives committed settlement events.
type SettlementHandler interface {
	HandleSettlement(ev SettlementEvent)
}

// SettlementHandlerFunc is a function adapter for SettlementHandler.
type SettlementHandlerFunc func(SettlementEvent)

func (f SettlementHandlerFunc) HandleSettlement(ev SettlementEvent) { f(ev) }

// Config holds engine configuration.
type Config struct {
	SubmitTimeout time.Duration // Bound on one submit-match-settle pass
	LockStripes   int           // In-process per-key lock table size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubmitTimeout: 10 * time.Second,
		LockStripes:   64,
	}
}

// Engine is the order-matching and settlement coordinator. Submissions for
// the same (market, side) run strictly sequentially: a striped in-process
// mutex keeps local contention out of the database, and the store's per-key
// lock serializes across processes.
type Engine struct {
	cfg     Config
	store   store.Store
	handler SettlementHandler
	logger  *slog.Logger
	locks   []sync.Mutex
}

// New creates an Engine. handler may be nil.
func New(cfg Config, st store.Store, handler SettlementHandler, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultConfig().SubmitTimeout
	}
	if cfg.LockStripes < 1 {
		cfg.LockStripes = DefaultConfig().LockStripes
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		handler: handler,
		logger:  logger,
		locks:   make([]sync.Mutex, cfg.LockStripes),
	}
}

// SubmitOrder validates req, matches it against the opposing book, and
// settles the result as one atomic unit. On success the caller receives the
// executed trades and the unfilled remainder; on a storage failure nothing
// was applied and the whole call may be retried.
func (e *Engine) SubmitOrder(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := validate(req); err != nil {
		return SubmitResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	defer cancel()

	market, ok, err := e.store.GetMarket(ctx, req.MarketID)
	if err != nil {
		return SubmitResult{}, &StorageError{Err: err}
	}
	if !ok {
		return SubmitResult{}, &ValidationError{Field: "market_id", Reason: "unknown market"}
	}
	if market.Status != "active" {
		return SubmitResult{}, &ValidationError{Field: "market_id", Reason: "market is not open for trading"}
	}

	key := store.LockKey{MarketID: req.MarketID, Side: req.Side}
	stripe := &e.locks[stripeFor(key, len(e.locks))]
	stripe.Lock()
	defer stripe.Unlock()

	var (
		result SubmitResult
		ev     SettlementEvent
	)
	err = e.store.InTx(ctx, key, func(tx store.View) error {
		// Sells require held shares; checked under the lock so a concurrent
		// pass cannot drain the position between check and fill.
		if req.Action == model.ActionSell {
			pos, held, err := tx.GetPosition(ctx, req.MarketID, req.Side, req.Owner)
			if err != nil {
				return &StorageError{Err: err}
			}
			if !held || pos.Shares.LessThan(req.Quantity) {
				return &ValidationError{Field: "quantity", Reason: "insufficient position to sell"}
			}
		}

		contra, err := tx.ListOpenOrders(ctx, req.MarketID, req.Side, req.Action.Opposite())
		if err != nil {
			return &StorageError{Err: err}
		}
		view := book.Build(contra, req.Action)

		incoming := model.Order{
			MarketID: req.MarketID,
			Side:     req.Side,
			Action:   req.Action,
			Type:     req.Type,
			Price:    req.Price,
			Quantity: req.Quantity,
			Status:   model.OrderStatusOpen,
			Owner:    req.Owner,
		}
		plan := Match(incoming, view)

		makers := make(map[uuid.UUID]model.Order, len(contra))
		for _, o := range contra {
			makers[o.ID] = o
		}
		trades, rested, err := settle(ctx, tx, incoming, plan, makers)
		if err != nil {
			return err
		}

		result = SubmitResult{
			Trades:    trades,
			Remaining: plan.Remaining,
			Rested:    rested,
		}

		if e.handler != nil {
			ev, err = e.buildEvent(ctx, tx, req, result)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var se *StorageError
		var ve *ValidationError
		var ce *ConsistencyError
		if errors.As(err, &ce) {
			e.logger.Error("settlement aborted on consistency violation",
				"market_id", req.MarketID,
				"side", req.Side,
				"error", err,
			)
			return SubmitResult{}, err
		}
		if errors.As(err, &se) || errors.As(err, &ve) {
			return SubmitResult{}, err
		}
		return SubmitResult{}, &StorageError{Err: err}
	}

	e.logger.Info("order settled",
		"market_id", req.MarketID,
		"side", req.Side,
		"action", req.Action,
		"type", req.Type,
		"trades", len(result.Trades),
		"remaining", result.Remaining,
		"rested", result.Rested != nil,
	)

	if e.handler != nil {
		e.handler.HandleSettlement(ev)
	}

	return result, nil
}

// buildEvent assembles the post-settlement snapshot inside the transaction,
// so the published top-of-book matches the committed state exactly.
func (e *Engine) buildEvent(ctx context.Context, tx store.View, req SubmitRequest, result SubmitResult) (SettlementEvent, error) {
	bids, err := tx.ListOpenOrders(ctx, req.MarketID, req.Side, model.ActionBuy)
	if err != nil {
		return SettlementEvent{}, &StorageError{Err: err}
	}
	asks, err := tx.ListOpenOrders(ctx, req.MarketID, req.Side, model.ActionSell)
	if err != nil {
		return SettlementEvent{}, &StorageError{Err: err}
	}
	market, _, err := tx.GetMarket(ctx, req.MarketID)
	if err != nil {
		return SettlementEvent{}, &StorageError{Err: err}
	}

	return SettlementEvent{
		MarketID:  req.MarketID,
		Side:      req.Side,
		Trades:    result.Trades,
		Remaining: result.Remaining,
		Rested:    result.Rested,
		Book:      book.Summarize(bids, asks),
		Volume:    market.Volume,
	}, nil
}

func validate(req SubmitRequest) error {
	if !req.Side.Valid() {
		return &ValidationError{Field: "side", Reason: "must be yes or no"}
	}
	if !req.Action.Valid() {
		return &ValidationError{Field: "action", Reason: "must be buy or sell"}
	}
	if !req.Type.Valid() {
		return &ValidationError{Field: "order_type", Reason: "must be limit or market"}
	}
	if req.Owner == "" {
		return &ValidationError{Field: "owner", Reason: "is required"}
	}
	if !req.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if req.Type == model.OrderTypeLimit && (req.Price <= 0 || req.Price > 100) {
		return &ValidationError{Field: "price", Reason: "must be between 1 and 100 cents"}
	}
	return nil
}

// stripeFor maps a book key onto the in-process lock table.
func stripeFor(key store.LockKey, stripes int) int {
	h := fnv.New32a()
	h.Write(key.MarketID[:])
	h.Write([]byte(key.Side))
	return int(h.Sum32() % uint32(stripes))
}
