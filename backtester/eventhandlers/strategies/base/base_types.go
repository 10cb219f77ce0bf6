package base

import (
	"errors"

	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

var (
	// ErrStrategyNotFound used when strategy specified in the config does not exist
	ErrStrategyNotFound = errors.New("strategy not found, please ensure the strategy name is spelled properly")
	// ErrInvalidCustomSettings used when bad custom settings are found in the config
	ErrInvalidCustomSettings = errors.New("invalid custom settings in config")
	// ErrInvalidSeries is returned when bars passed to a strategy are not an
	// ordered sequence for a single symbol
	ErrInvalidSeries = errors.New("invalid bar series")
)

// NotEnoughData is the reason attached to signals raised during an indicator's warmup
const NotEnoughData = "Not enough data for signal generation"

// GenerateFunc is a batch signal generator
type GenerateFunc func(symbol string, bars []*kline.Kline) ([]*signal.Signal, error)

// Strategy is base implementation of the Handler interface. It holds the per
// symbol bar history used to serve incremental requests
type Strategy struct {
	history map[string][]*kline.Kline
}
