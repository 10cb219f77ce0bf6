package fill

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

// Fill is an event that details the realized execution of an order
type Fill struct {
	event.Base
	OrderID  string           `json:"order-id"`
	Side     common.Direction `json:"side"`
	Quantity int64            `json:"quantity"`
	// ReferencePrice is the price the order was evaluated against before
	// slippage was applied
	ReferencePrice decimal.Decimal `json:"reference-price"`
	Price          decimal.Decimal `json:"filled-price"`
	Commission     decimal.Decimal `json:"commission"`
}
