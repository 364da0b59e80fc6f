package clob

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceUnit is one price level: a FIFO doubly-linked list of resting orders
// plus running totals. totalQuantity sums the original order quantities, which
// is what the aggregated view reports.
type priceUnit struct {
	totalQuantity decimal.Decimal
	head          *Order
	tail          *Order
	count         int64
}

type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[string]*skiplist.Element
	orders      map[string]*Order
}

// newBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func newBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// newSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func newSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// order finds a resting order by its ID.
func (q *queue) order(id string) *Order {
	return q.orders[id]
}

// insertOrder appends an order to the tail of its price level, creating the
// level if needed. Tail insertion is what gives strict time priority within a
// level.
func (q *queue) insertOrder(order *Order) {
	key := order.Price.String()
	el, ok := q.priceList[key]
	if ok {
		unit, _ := el.Value.(*priceUnit)
		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}

		unit.totalQuantity = unit.totalQuantity.Add(order.Quantity)
		unit.count++
		q.orders[order.ID] = order
		q.totalOrders++
	} else {
		unit := &priceUnit{
			head:          order,
			tail:          order,
			totalQuantity: order.Quantity,
			count:         1,
		}
		order.next = nil
		order.prev = nil

		q.orders[order.ID] = order

		el := q.depthList.Set(order.Price, unit)
		q.priceList[key] = el

		q.totalOrders++
		q.depths++
	}
}

// removeOrder removes an order from the queue by price and ID.
// It also cleans up the price unit if it becomes empty.
func (q *queue) removeOrder(price decimal.Decimal, id string) {
	key := price.String()
	skipElement, ok := q.priceList[key]
	if !ok {
		return
	}
	unit, _ := skipElement.Value.(*priceUnit)

	order, ok := q.orders[id]
	if !ok {
		return
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	// Clear pointers to avoid leaks
	order.next = nil
	order.prev = nil

	unit.totalQuantity = unit.totalQuantity.Sub(order.Quantity)
	unit.count--
	delete(q.orders, id)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, key)
		q.depths--
	}
}

// peekBestOrder returns the order at the front of the queue (best price)
// without removing it.
func (q *queue) peekBestOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// bestEligible returns the first resting order marketable against an incoming
// order with the given limit price and trader. It walks price levels from the
// best outward and skips, without removing, orders owned by the same trader:
// they stay available for later incoming orders from other traders. Returns
// nil when no marketable level holds an order from a different trader.
func (q *queue) bestEligible(trader string, limit decimal.Decimal) *Order {
	for el := q.depthList.Front(); el != nil; el = el.Next() {
		unit, _ := el.Value.(*priceUnit)
		price := unit.head.Price

		// Levels are sorted best-first, so the first non-marketable level
		// ends the walk for all levels behind it.
		if q.side == Sell && price.GreaterThan(limit) ||
			q.side == Buy && price.LessThan(limit) {
			return nil
		}

		for ord := unit.head; ord != nil; ord = ord.next {
			if ord.Trader != trader {
				return ord
			}
		}
	}

	return nil
}

// orderCount returns the total number of resting orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// levels returns the price levels of the queue, best price first.
// A limit <= 0 returns all levels.
func (q *queue) levels(limit int) []*PriceLevel {
	n := limit
	if n <= 0 {
		n = int(q.depths)
	}
	result := make([]*PriceLevel, 0, n)

	el := q.depthList.Front()
	for i := 0; (limit <= 0 || i < limit) && el != nil; i++ {
		unit, _ := el.Value.(*priceUnit)

		result = append(result, &PriceLevel{
			Price:    unit.head.Price,
			Quantity: unit.totalQuantity,
		})

		el = el.Next()
	}

	return result
}

// toSnapshot serializes the queue into a slice of detached orders, iterating
// the skip list (price levels) and then the linked lists to preserve priority.
func (q *queue) toSnapshot() []*Order {
	snapshots := make([]*Order, 0, q.totalOrders)

	elem := q.depthList.Front()
	for elem != nil {
		unit, _ := elem.Value.(*priceUnit)

		order := unit.head
		for order != nil {
			snapshots = append(snapshots, order.clone())
			order = order.next
		}

		elem = elem.Next()
	}

	return snapshots
}
