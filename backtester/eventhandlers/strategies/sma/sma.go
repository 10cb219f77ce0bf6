package sma

import (
	"fmt"

	"github.com/thrasher-corp/gct-ta/indicators"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

const (
	// Name is the strategy name
	Name           = "sma"
	shortWindowKey = "short-window"
	longWindowKey  = "long-window"
	description    = `The simple moving average crossover buys when the short window mean of closing prices crosses above the long window mean, and sells on the reverse cross`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	shortWindow int
	longWindow  int
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// GenerateSignals returns one signal per bar. The signal at index i only
// depends on bars up to and including i
func (s *Strategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := base.ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	resp := make([]*signal.Signal, len(bars))
	var short, long []float64
	if len(bars) > s.longWindow {
		closes := base.Closes(bars)
		short = indicators.SMA(closes, s.shortWindow)
		long = indicators.SMA(closes, s.longWindow)
	}
	for i := range bars {
		es := base.GetBaseData(bars[i])
		resp[i] = es
		if i < s.longWindow {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		prevShort, ok1 := base.ValueAt(short, len(bars), i-1)
		prevLong, ok2 := base.ValueAt(long, len(bars), i-1)
		currShort, ok3 := base.ValueAt(short, len(bars), i)
		currLong, ok4 := base.ValueAt(long, len(bars), i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		switch {
		case base.CrossedAbove(prevShort, prevLong, currShort, currLong):
			es.SetDirection(common.Buy)
			es.AppendReason("SMA short crossed above long")
		case base.CrossedBelow(prevShort, prevLong, currShort, currLong):
			es.SetDirection(common.Sell)
			es.AppendReason("SMA short crossed below long")
		}
		es.AppendReasonf("short SMA %.4f long SMA %.4f", currShort, currLong)
	}
	return resp, nil
}

// OnBar returns the signal for the latest bar of the symbol
func (s *Strategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	return s.Strategy.OnBar(bar, s.GenerateSignals)
}

// SetCustomSettings allows a user to modify the window lengths in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case shortWindowKey:
			w, ok := base.ToPeriod(v)
			if !ok {
				return fmt.Errorf("%w provided short-window value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.shortWindow = w
		case longWindowKey:
			w, ok := base.ToPeriod(v)
			if !ok {
				return fmt.Errorf("%w provided long-window value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.longWindow = w
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.shortWindow >= s.longWindow {
		return fmt.Errorf("%w short-window %v must be less than long-window %v", base.ErrInvalidCustomSettings, s.shortWindow, s.longWindow)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.shortWindow = 20
	s.longWindow = 50
}
