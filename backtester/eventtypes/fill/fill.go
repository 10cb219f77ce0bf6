package fill

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
)

// SetDirection sets the side of the fill
func (f *Fill) SetDirection(d common.Direction) {
	f.Side = d
}

// GetDirection returns the side of the fill
func (f *Fill) GetDirection() common.Direction {
	return f.Side
}

// IsFill returns whether the event is a fill type
func (f *Fill) IsFill() bool {
	return true
}

// Value returns the quantity multiplied by the filled price
func (f *Fill) Value() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}

// Cost returns the cash outlay of a BUY fill, or the cash received of a SELL
// fill, including commission
func (f *Fill) Cost() decimal.Decimal {
	if f.Side == common.Sell {
		return f.Value().Sub(f.Commission)
	}
	return f.Value().Add(f.Commission)
}
