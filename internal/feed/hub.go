package feed

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/outcome-exchange/internal/engine"
)

const (
	defaultQueueSize = 16
	// lagLimit is the buffered-message count past which a subscriber is
	// considered stuck and disconnected.
	lagLimit = 1024
)

// Subscription is one subscriber's view of the feed. A zero MarketID
// receives every market.
type Subscription struct {
	id       int64
	marketID uuid.UUID
	queue    *eventBuffer
}

// Next blocks until a message is available or the subscription is closed.
func (s *Subscription) Next() (Message, bool) { return s.queue.pop() }

// TryNext returns a message if one is buffered, without blocking.
func (s *Subscription) TryNext() (Message, bool) { return s.queue.tryPop() }

// Hub fans committed settlement events out to subscribers. It implements
// engine.SettlementHandler, so wiring it into the engine is all the feed
// needs to go live.
type Hub struct {
	logger    *slog.Logger
	queueSize int

	mu   sync.RWMutex
	subs map[int64]*Subscription
	seq  atomic.Int64
}

// NewHub creates a hub. queueSize sizes each subscriber's initial buffer;
// zero or negative uses the default.
func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		subs:      make(map[int64]*Subscription),
	}
}

// Subscribe registers a subscriber. Pass uuid.Nil to receive all markets.
func (h *Hub) Subscribe(marketID uuid.UUID) *Subscription {
	sub := &Subscription{
		id:       h.seq.Add(1),
		marketID: marketID,
		queue:    newEventBuffer(h.queueSize),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its queue.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		sub.queue.close()
	}
	h.mu.Unlock()
}

// HandleSettlement encodes the event once and delivers it to every
// subscriber whose market filter matches. Called by the engine after the
// settlement transaction commits.
func (h *Hub) HandleSettlement(ev engine.SettlementEvent) {
	msg := Encode(ev)

	var lagging []*Subscription

	h.mu.RLock()
	for _, sub := range h.subs {
		if sub.marketID != uuid.Nil && sub.marketID != ev.MarketID {
			continue
		}
		sub.queue.push(msg)
		if sub.queue.len() > lagLimit {
			lagging = append(lagging, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range lagging {
		h.logger.Warn("disconnecting lagging feed subscriber",
			"subscriber_id", sub.id,
			"queued", sub.queue.len(),
		)
		h.Unsubscribe(sub)
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.queue.close()
	}
	h.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
