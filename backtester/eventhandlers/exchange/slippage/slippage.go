package slippage

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
)

var errInvalidSlippage = errors.New("slippage must be a fraction between 0 and 1")

// Validate ensures the slippage fraction can be applied to a price
func Validate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w, received %v", errInvalidSlippage, rate)
	}
	return nil
}

// ApplySlippageToPrice moves the price against the side of the order. A buy
// pays price * (1 + rate), a sell receives price * (1 - rate)
func ApplySlippageToPrice(side common.Direction, price, rate decimal.Decimal) decimal.Decimal {
	switch side {
	case common.Buy:
		return price.Mul(decimal.NewFromInt(1).Add(rate))
	case common.Sell:
		return price.Mul(decimal.NewFromInt(1).Sub(rate))
	}
	return price
}
