package size

import (
	"errors"

	"github.com/shopspring/decimal"
)

var errInvalidSizingLimit = errors.New("invalid sizing limit")

// Size derives an order quantity from the equity at risk
type Size struct {
	// MaxPositionSize is the largest fraction of equity one position may hold
	MaxPositionSize decimal.Decimal
	// MaxLossPerTrade is the fraction of equity a trade may lose once its
	// stop is hit
	MaxLossPerTrade decimal.Decimal
	// StopLoss is the fractional distance from entry to the stop
	StopLoss decimal.Decimal
}
