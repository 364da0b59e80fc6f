package clob

import (
	"fmt"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// DepthBook maintains a simplified view of the order book, tracking only
// price levels and their remaining liquidity. It is designed for downstream
// services that rebuild order book state from the BookLog event stream.
//
// Note the semantic difference from Clob.AggregatedBook: that view sums the
// original quantity of resting orders, while DepthBook tracks the size still
// available to trade at each level.
type DepthBook struct {
	seqID uint64
	ask   *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
	bid   *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
}

// NewDepthBook creates a new DepthBook instance with empty ask and bid sides.
func NewDepthBook() *DepthBook {
	less := func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	}

	return &DepthBook{
		ask: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
		bid: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
	}
}

// SequenceID returns the last processed sequence ID.
// Used for synchronization and gap detection during rebuild.
func (db *DepthBook) SequenceID() uint64 {
	return db.seqID
}

// Replay applies a BookLog event to update the depth state.
// Events must be applied in sequence order; a gap returns ErrSequenceGap and
// leaves the state untouched.
func (db *DepthBook) Replay(log *BookLog) error {
	if log == nil {
		return fmt.Errorf("%w: log is required", ErrInvalidParam)
	}

	if db.seqID > 0 && log.SequenceID != db.seqID+1 {
		return fmt.Errorf("%w: want seq %d, got %d", ErrSequenceGap, db.seqID+1, log.SequenceID)
	}

	change := CalculateDepthChange(log)
	if !change.SizeDiff.IsZero() {
		tree := db.tree(change.Side)

		size := change.SizeDiff
		if current, ok := tree.Get(change.Price); ok {
			size = current.Add(size)
		}

		if size.IsPositive() {
			tree.Set(change.Price, size)
		} else {
			tree.Del(change.Price)
		}
	}

	db.seqID = log.SequenceID
	return nil
}

// Depth returns the remaining size at a specific price level for the given
// side. Returns zero if the price level does not exist.
func (db *DepthBook) Depth(side Side, price decimal.Decimal) (decimal.Decimal, error) {
	if side != Buy && side != Sell {
		return decimal.Zero, fmt.Errorf("%w: side must be buy or sell", ErrInvalidParam)
	}

	size, ok := db.tree(side).Get(price)
	if !ok {
		return decimal.Zero, nil
	}
	return size, nil
}

// Levels returns the price levels for one side, best price first:
// descending for bids, ascending for asks.
func (db *DepthBook) Levels(side Side) ([]*PriceLevel, error) {
	if side != Buy && side != Sell {
		return nil, fmt.Errorf("%w: side must be buy or sell", ErrInvalidParam)
	}

	tree := db.tree(side)
	result := make([]*PriceLevel, 0, tree.Len())

	if side == Buy {
		for it := tree.Reverse(); it.Valid(); it.Next() {
			result = append(result, &PriceLevel{Price: it.Key(), Quantity: it.Value()})
		}
	} else {
		for it := tree.Iterator(); it.Valid(); it.Next() {
			result = append(result, &PriceLevel{Price: it.Key(), Quantity: it.Value()})
		}
	}

	return result, nil
}

func (db *DepthBook) tree(side Side) *treemap.TreeMap[decimal.Decimal, decimal.Decimal] {
	if side == Buy {
		return db.bid
	}
	return db.ask
}
