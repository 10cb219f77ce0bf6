package strategies

import (
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

// Handler defines all functions required to run a strategy. A strategy only
// reads market data and never touches the portfolio or broker
type Handler interface {
	Name() string
	Description() string
	// GenerateSignals returns one signal per bar where the signal at index i
	// depends only on bars 0 through i
	GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error)
	// OnBar returns the signal for the latest bar, matching what
	// GenerateSignals would return for the same history
	OnBar(bar *kline.Kline) (*signal.Signal, error)
	SetCustomSettings(map[string]any) error
	SetDefaults()
	Reset()
}
