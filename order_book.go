package clob

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// CommandType represents the type of command sent to the order book.
type CommandType int

const (
	CmdCreateOrder CommandType = iota
	CmdGetOrder
	CmdGetTrade
	CmdAggregatedBook
	CmdGetStats
)

type Response struct {
	Error error
	Data  any
}

// Command represents a unified command sent to the order book loop.
// A single channel keeps processing deterministic: every operation observes
// the book state left by the immediately preceding one.
type Command struct {
	Type    CommandType
	Payload any
	Resp    chan *Response
}

// OrderBook serializes access to a Clob behind a single-goroutine command
// loop. All state-mutating operations and all queries run to completion
// atomically with respect to each other, so every query observes a consistent
// snapshot.
type OrderBook struct {
	isShutdown       atomic.Bool
	clob             *Clob
	cmdChan          chan Command
	done             chan struct{}
	shutdownComplete chan struct{}
}

// NewOrderBook creates a new order book instance. Call Start to begin
// processing commands.
func NewOrderBook(publishLog PublishLog) *OrderBook {
	return &OrderBook{
		clob:             NewClob(publishLog),
		cmdChan:          make(chan Command, 32768),
		done:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
	}
}

// Start runs the order book loop to process orders and queries.
// Returns nil when Shutdown() is called and all pending commands are drained.
func (book *OrderBook) Start() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-book.done:
			return book.drain()
		case cmd := <-book.cmdChan:
			book.process(cmd)
		}
	}
}

// Shutdown signals the order book to stop accepting new commands and waits
// for all pending commands to be processed. Returns nil if shutdown completed,
// or ctx.Err() if the context was cancelled first.
func (book *OrderBook) Shutdown(ctx context.Context) error {
	if book.isShutdown.CompareAndSwap(false, true) {
		close(book.done)
	}

	select {
	case <-book.shutdownComplete:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes all remaining commands in the channel before returning, so
// callers still blocked on a response are not left hanging.
func (book *OrderBook) drain() error {
	defer close(book.shutdownComplete)

	for {
		select {
		case cmd := <-book.cmdChan:
			book.process(cmd)
		default:
			return nil
		}
	}
}

func (book *OrderBook) process(cmd Command) {
	var resp *Response

	switch cmd.Type {
	case CmdCreateOrder:
		input, ok := cmd.Payload.(*OrderInput)
		if !ok {
			resp = &Response{Error: ErrInvalidParam}
			break
		}
		order, err := book.clob.CreateOrder(input)
		resp = &Response{Error: err, Data: order}
	case CmdGetOrder:
		id, ok := cmd.Payload.(string)
		if !ok {
			resp = &Response{Error: ErrInvalidParam}
			break
		}
		order, err := book.clob.Order(id)
		resp = &Response{Error: err, Data: order}
	case CmdGetTrade:
		id, ok := cmd.Payload.(string)
		if !ok {
			resp = &Response{Error: ErrInvalidParam}
			break
		}
		trade, err := book.clob.Trade(id)
		resp = &Response{Error: err, Data: trade}
	case CmdAggregatedBook:
		resp = &Response{Data: book.clob.AggregatedBook()}
	case CmdGetStats:
		resp = &Response{Data: book.clob.Stats()}
	}

	if cmd.Resp != nil && resp != nil {
		select {
		case cmd.Resp <- resp:
		default:
			// Non-blocking send, if no one is listening, just drop it
		}
	}
}

// call submits a command and waits for its response.
func (book *OrderBook) call(ctx context.Context, cmd Command) (*Response, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	respChan := make(chan *Response, 1)
	cmd.Resp = respChan

	select {
	case book.cmdChan <- cmd:
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// CreateOrder submits an order and blocks until matching has run to its
// deterministic conclusion, returning the post-match order state.
// Returns ErrShutdown if the order book is shutting down.
func (book *OrderBook) CreateOrder(ctx context.Context, input *OrderInput) (*Order, error) {
	resp, err := book.call(ctx, Command{Type: CmdCreateOrder, Payload: input})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	order, _ := resp.Data.(*Order)
	return order, nil
}

// GetOrder returns the current state of the order with the given ID.
func (book *OrderBook) GetOrder(ctx context.Context, id string) (*Order, error) {
	if len(id) == 0 {
		return nil, ErrInvalidParam
	}

	resp, err := book.call(ctx, Command{Type: CmdGetOrder, Payload: id})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	order, _ := resp.Data.(*Order)
	return order, nil
}

// GetTrade returns the trade with the given ID.
func (book *OrderBook) GetTrade(ctx context.Context, id string) (*Trade, error) {
	if len(id) == 0 {
		return nil, ErrInvalidParam
	}

	resp, err := book.call(ctx, Command{Type: CmdGetTrade, Payload: id})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	trade, _ := resp.Data.(*Trade)
	return trade, nil
}

// GetAggregatedBook returns the aggregated price-level view of the book.
// It has no side effects on book state.
func (book *OrderBook) GetAggregatedBook(ctx context.Context) (*AggregatedBook, error) {
	resp, err := book.call(ctx, Command{Type: CmdAggregatedBook})
	if err != nil {
		return nil, err
	}

	aggregated, _ := resp.Data.(*AggregatedBook)
	return aggregated, nil
}

// GetStats returns usage statistics for the order book.
func (book *OrderBook) GetStats() (*BookStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := book.call(ctx, Command{Type: CmdGetStats})
	if err != nil {
		return nil, err
	}

	stats, _ := resp.Data.(*BookStats)
	return stats, nil
}
