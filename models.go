package clob

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the counter side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderInput carries the caller-supplied fields of a limit order.
type OrderInput struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Side     Side            `json:"side"`
	Trader   string          `json:"trader"`
}

// Order represents the state of a limit order in the book.
// Orders are never deleted: a filled order stays queryable by ID but is
// excluded from matching and aggregation once QuantityRemaining reaches zero.
type Order struct {
	ID                string          `json:"id"`
	Side              Side            `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          decimal.Decimal `json:"quantity"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	Trader            string          `json:"trader"`
	TradeIDs          []string        `json:"trade_ids"`
	CreatedAt         time.Time       `json:"created_at"`

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// IsFilled reports whether the order has no quantity left to match.
func (o *Order) IsFilled() bool {
	return o.QuantityRemaining.IsZero()
}

// clone returns a detached copy that is safe to hand outside the engine.
// The engine keeps mutating its own instance as later trades execute, so the
// public surface only ever returns clones; re-fetch by ID for a current view.
func (o *Order) clone() *Order {
	cpy := *o
	cpy.next = nil
	cpy.prev = nil
	cpy.TradeIDs = make([]string, len(o.TradeIDs))
	copy(cpy.TradeIDs, o.TradeIDs)
	return &cpy
}

// Trade records a single match execution. Immutable once recorded.
// BuyOrderID and SellOrderID are references, not ownership.
type Trade struct {
	ID          string          `json:"id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PriceLevel is the aggregate of all resting orders sharing one price on one
// side. Quantity sums the original order quantities, not the remainders.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AggregatedBook is the public view of resting liquidity.
// Bids are sorted by price descending, asks ascending.
type AggregatedBook struct {
	Bids []*PriceLevel `json:"bids"`
	Asks []*PriceLevel `json:"asks"`
}

type LogType string

const (
	LogTypeOpen  LogType = "open"
	LogTypeMatch LogType = "match"
)

// BookLog represents an event in the order book.
// SequenceID is a per-book increasing ID for every event, used for ordering,
// deduplication, and rebuild synchronization in downstream systems.
type BookLog struct {
	SequenceID   uint64          `json:"seq_id"`
	Type         LogType         `json:"type"`
	Side         Side            `json:"side"` // taker side for match events
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	OrderID      string          `json:"order_id"`
	Trader       string          `json:"trader"`
	TradeID      string          `json:"trade_id,omitempty"`       // only set for match events
	MakerOrderID string          `json:"maker_order_id,omitempty"` // only set for match events
	MakerTrader  string          `json:"maker_trader,omitempty"`   // only set for match events
	CreatedAt    time.Time       `json:"created_at"`
}

// BookStats contains counters for the resting side queues.
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}
