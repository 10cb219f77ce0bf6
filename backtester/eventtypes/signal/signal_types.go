package signal

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

// Signal contains everything needed for a strategy to raise a signal event
type Signal struct {
	event.Base
	Direction common.Direction `json:"direction"`
	// Price is the reference price the decision was made at, the close of
	// the bar that produced it
	Price decimal.Decimal `json:"price"`
	// Quantity is the strategy's suggested quantity. Zero leaves sizing to
	// the portfolio
	Quantity int64 `json:"quantity"`
}
