package clob

import "github.com/shopspring/decimal"

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side     Side
	Price    decimal.Decimal
	SizeDiff decimal.Decimal
}

// CalculateDepthChange calculates the depth change caused by a book event.
// Note: for LogTypeMatch, the side returned is the Maker's side (opposite of
// the log's side) since a match removes liquidity from the resting side.
func CalculateDepthChange(log *BookLog) DepthChange {
	switch log.Type {
	case LogTypeOpen:
		return DepthChange{
			Side:     log.Side,
			Price:    log.Price,
			SizeDiff: log.Quantity,
		}
	case LogTypeMatch:
		makerSide := Buy
		if log.Side == Buy {
			makerSide = Sell
		}
		return DepthChange{
			Side:     makerSide,
			Price:    log.Price,
			SizeDiff: log.Quantity.Neg(),
		}
	}

	return DepthChange{}
}
