package clob

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayAll feeds every published event into the depth book in order.
func replayAll(t *testing.T, db *DepthBook, publishLog *MemoryPublishLog) {
	t.Helper()
	for _, log := range publishLog.Logs() {
		require.NoError(t, db.Replay(log))
	}
}

func TestDepthBookReplay(t *testing.T) {
	t.Run("rebuilds remaining liquidity from the event stream", func(t *testing.T) {
		publishLog := NewMemoryPublishLog()
		book := NewClob(publishLog)

		_, err := book.CreateOrder(input(Buy, 100, 100, "buyer"))
		require.NoError(t, err)
		_, err = book.CreateOrder(input(Buy, 100, 50, "buyer2"))
		require.NoError(t, err)
		_, err = book.CreateOrder(input(Sell, 100, 40, "seller"))
		require.NoError(t, err)

		db := NewDepthBook()
		replayAll(t, db, publishLog)

		// 150 rested at 100, 40 matched away
		size, err := db.Depth(Buy, dec(100))
		require.NoError(t, err)
		assert.True(t, size.Equal(dec(110)))

		size, err = db.Depth(Sell, dec(100))
		require.NoError(t, err)
		assert.True(t, size.IsZero())

		assert.Equal(t, book.SequenceID(), db.SequenceID())
	})

	t.Run("drops a level once fully consumed", func(t *testing.T) {
		publishLog := NewMemoryPublishLog()
		book := NewClob(publishLog)

		_, err := book.CreateOrder(input(Sell, 105, 30, "seller"))
		require.NoError(t, err)
		_, err = book.CreateOrder(input(Buy, 105, 30, "buyer"))
		require.NoError(t, err)

		db := NewDepthBook()
		replayAll(t, db, publishLog)

		levels, err := db.Levels(Sell)
		require.NoError(t, err)
		assert.Empty(t, levels)
	})

	t.Run("levels are ordered best first", func(t *testing.T) {
		publishLog := NewMemoryPublishLog()
		book := NewClob(publishLog)

		for _, price := range []int64{95, 97, 96} {
			_, err := book.CreateOrder(input(Buy, price, 10, "buyer"))
			require.NoError(t, err)
		}
		for _, price := range []int64{103, 101, 102} {
			_, err := book.CreateOrder(input(Sell, price, 10, "seller"))
			require.NoError(t, err)
		}

		db := NewDepthBook()
		replayAll(t, db, publishLog)

		bids, err := db.Levels(Buy)
		require.NoError(t, err)
		require.Len(t, bids, 3)
		assert.True(t, bids[0].Price.Equal(dec(97)))
		assert.True(t, bids[2].Price.Equal(dec(95)))

		asks, err := db.Levels(Sell)
		require.NoError(t, err)
		require.Len(t, asks, 3)
		assert.True(t, asks[0].Price.Equal(dec(101)))
		assert.True(t, asks[2].Price.Equal(dec(103)))
	})

	t.Run("detects sequence gaps", func(t *testing.T) {
		db := NewDepthBook()

		require.NoError(t, db.Replay(&BookLog{
			SequenceID: 1,
			Type:       LogTypeOpen,
			Side:       Buy,
			Price:      dec(100),
			Quantity:   dec(10),
		}))

		err := db.Replay(&BookLog{
			SequenceID: 3,
			Type:       LogTypeOpen,
			Side:       Buy,
			Price:      dec(101),
			Quantity:   dec(10),
		})
		assert.ErrorIs(t, err, ErrSequenceGap)

		// state is untouched after a rejected event
		assert.Equal(t, uint64(1), db.SequenceID())
		size, err := db.Depth(Buy, dec(101))
		require.NoError(t, err)
		assert.True(t, size.IsZero())
	})

	t.Run("rejects nil and invalid side", func(t *testing.T) {
		db := NewDepthBook()

		assert.ErrorIs(t, db.Replay(nil), ErrInvalidParam)

		_, err := db.Depth(Side(9), dec(100))
		assert.ErrorIs(t, err, ErrInvalidParam)

		_, err = db.Levels(Side(9))
		assert.ErrorIs(t, err, ErrInvalidParam)
	})
}

func TestCalculateDepthChange(t *testing.T) {
	t.Run("open adds rested size on the taker side", func(t *testing.T) {
		change := CalculateDepthChange(&BookLog{
			Type:     LogTypeOpen,
			Side:     Buy,
			Price:    dec(100),
			Quantity: dec(10),
		})
		assert.Equal(t, Buy, change.Side)
		assert.True(t, change.SizeDiff.Equal(dec(10)))
	})

	t.Run("match removes executed size on the maker side", func(t *testing.T) {
		change := CalculateDepthChange(&BookLog{
			Type:     LogTypeMatch,
			Side:     Sell,
			Price:    dec(100),
			Quantity: dec(10),
		})
		assert.Equal(t, Buy, change.Side)
		assert.True(t, change.SizeDiff.Equal(decimal.NewFromInt(-10)))
	})

	t.Run("unknown type changes nothing", func(t *testing.T) {
		change := CalculateDepthChange(&BookLog{Type: LogType("bogus")})
		assert.True(t, change.SizeDiff.IsZero())
	})
}
