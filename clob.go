package clob

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Clob is a single-instrument central limit order book with price-time
// priority matching and self-trade prevention. It owns every order ever
// accepted, the append-only trade ledger, and the two resting side queues.
//
// Clob is a single logical state machine and is not safe for concurrent use.
// Wrap it in an OrderBook to serialize access from multiple goroutines.
type Clob struct {
	bidQueue   *queue
	askQueue   *queue
	orders     map[string]*Order
	trades     map[string]*Trade
	seqID      uint64
	publishLog PublishLog
}

// NewClob creates an empty order book. A nil publishLog discards events.
func NewClob(publishLog PublishLog) *Clob {
	if publishLog == nil {
		publishLog = NewDiscardPublishLog()
	}

	return &Clob{
		bidQueue:   newBuyerQueue(),
		askQueue:   newSellerQueue(),
		orders:     make(map[string]*Order),
		trades:     make(map[string]*Trade),
		publishLog: publishLog,
	}
}

// CreateOrder validates the input, assigns identity and creation time, matches
// the order against the opposite side, and rests any unfilled remainder in the
// book. It returns the detached post-match state of the order; re-fetch via
// Order for a current view after later executions.
//
// Validation is all-or-nothing: an invalid input never mutates book state.
func (c *Clob) CreateOrder(input *OrderInput) (*Order, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	order := &Order{
		ID:                xid.New().String(),
		Side:              input.Side,
		Price:             input.Price,
		Quantity:          input.Quantity,
		QuantityRemaining: input.Quantity,
		Trader:            input.Trader,
		TradeIDs:          make([]string, 0, 4),
		CreatedAt:         time.Now().UTC(),
	}

	logger.Debug("matching order",
		"order_id", order.ID,
		"trader", order.Trader,
		"side", order.Side.String())

	c.orders[order.ID] = order
	c.match(order)

	return order.clone(), nil
}

func validateOrderInput(input *OrderInput) error {
	if input == nil {
		return fmt.Errorf("%w: input is required", ErrInvalidParam)
	}
	if input.Side != Buy && input.Side != Sell {
		return fmt.Errorf("%w: side must be buy or sell", ErrInvalidParam)
	}
	if !input.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParam)
	}
	if !input.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidParam)
	}
	if len(input.Trader) == 0 {
		return fmt.Errorf("%w: trader is required", ErrInvalidParam)
	}
	return nil
}

// match executes the incoming order against the opposite queue until it is
// filled or no eligible maker remains, then rests any remainder on its own
// side. Each execution uses the maker's price: the order already resting in
// the book is never disadvantaged by a more aggressive incoming price.
func (c *Clob) match(order *Order) {
	myQueue, targetQueue := c.bidQueue, c.askQueue
	if order.Side == Sell {
		myQueue, targetQueue = c.askQueue, c.bidQueue
	}

	logs := make([]*BookLog, 0, 8)
	now := time.Now().UTC()

	for order.QuantityRemaining.IsPositive() {
		maker := targetQueue.bestEligible(order.Trader, order.Price)
		if maker == nil {
			// No eligible counter-order is the normal "order rests" outcome,
			// not an error.
			break
		}

		qty := order.QuantityRemaining
		if maker.QuantityRemaining.LessThan(qty) {
			qty = maker.QuantityRemaining
		}

		trade := &Trade{
			ID:        xid.New().String(),
			Price:     maker.Price,
			Quantity:  qty,
			CreatedAt: now,
		}
		if order.Side == Buy {
			trade.BuyOrderID = order.ID
			trade.SellOrderID = maker.ID
		} else {
			trade.BuyOrderID = maker.ID
			trade.SellOrderID = order.ID
		}
		c.trades[trade.ID] = trade

		order.QuantityRemaining = order.QuantityRemaining.Sub(qty)
		maker.QuantityRemaining = maker.QuantityRemaining.Sub(qty)
		order.TradeIDs = append(order.TradeIDs, trade.ID)
		maker.TradeIDs = append(maker.TradeIDs, trade.ID)

		if maker.IsFilled() {
			targetQueue.removeOrder(maker.Price, maker.ID)
		}

		logger.Debug("trade executed",
			"trade_id", trade.ID,
			"price", trade.Price.String(),
			"quantity", trade.Quantity.String())

		c.seqID++
		logs = append(logs, &BookLog{
			SequenceID:   c.seqID,
			Type:         LogTypeMatch,
			Side:         order.Side,
			Price:        trade.Price,
			Quantity:     qty,
			OrderID:      order.ID,
			Trader:       order.Trader,
			TradeID:      trade.ID,
			MakerOrderID: maker.ID,
			MakerTrader:  maker.Trader,
			CreatedAt:    now,
		})
	}

	if order.QuantityRemaining.IsPositive() {
		myQueue.insertOrder(order)

		c.seqID++
		logs = append(logs, &BookLog{
			SequenceID: c.seqID,
			Type:       LogTypeOpen,
			Side:       order.Side,
			Price:      order.Price,
			Quantity:   order.QuantityRemaining,
			OrderID:    order.ID,
			Trader:     order.Trader,
			CreatedAt:  now,
		})
	}

	if len(logs) > 0 {
		c.publishLog.Publish(logs...)
	}
}

// Order returns a detached copy of the order with the given ID, filled orders
// included.
func (c *Clob) Order(id string) (*Order, error) {
	order, ok := c.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return order.clone(), nil
}

// Trade returns a copy of the trade with the given ID.
func (c *Clob) Trade(id string) (*Trade, error) {
	trade, ok := c.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: trade %s", ErrNotFound, id)
	}
	cpy := *trade
	return &cpy, nil
}

// AggregatedBook aggregates resting orders into price levels for public
// consumption. It is a pure projection computed fresh on every call: bids
// sorted descending, asks ascending, each level summing the original
// quantities of its resting orders.
func (c *Clob) AggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		Bids: c.bidQueue.levels(0),
		Asks: c.askQueue.levels(0),
	}
}

// Depth returns the aggregated view truncated to the given number of levels
// per side.
func (c *Clob) Depth(limit int) (*AggregatedBook, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidParam)
	}
	return &AggregatedBook{
		Bids: c.bidQueue.levels(limit),
		Asks: c.askQueue.levels(limit),
	}, nil
}

// SequenceID returns the sequence ID of the last published book event.
func (c *Clob) SequenceID() uint64 {
	return c.seqID
}

// Stats returns usage statistics for the resting side queues.
func (c *Clob) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: c.askQueue.depthCount(),
		AskOrderCount: c.askQueue.orderCount(),
		BidDepthCount: c.bidQueue.depthCount(),
		BidOrderCount: c.bidQueue.orderCount(),
	}
}
