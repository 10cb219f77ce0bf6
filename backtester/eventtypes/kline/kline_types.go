package kline

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

// ErrInvalidBar is returned when a bar's prices cannot describe a real trading period
var ErrInvalidBar = errors.New("invalid bar")

// Kline holds a single OHLCV bar and an event to be processed as
// a common.DataEventHandler type
type Kline struct {
	event.Base
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
