package macd

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
	Name        = "macd"
	fastKey     = "macd-fast"
	slowKey     = "macd-slow"
	signalKey   = "macd-signal"
	description = `The moving average convergence divergence strategy buys when the MACD line crosses above its signal line and sells when it crosses below`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// warmup is the first index where both the MACD line and its signal line
// have a previous value to compare against
func (s *Strategy) warmup() int {
	return s.slowPeriod + s.signalPeriod - 1
}

// GenerateSignals returns one signal per bar
func (s *Strategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := base.ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	resp := make([]*signal.Signal, len(bars))
	var macdLine, signalLine []float64
	if len(bars) >= s.slowPeriod+s.signalPeriod {
		macdLine, signalLine, _ = indicators.MACD(base.Closes(bars), s.fastPeriod, s.slowPeriod, s.signalPeriod)
	}
	for i := range bars {
		es := base.GetBaseData(bars[i])
		resp[i] = es
		if i < s.warmup() {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		prevMACD, ok1 := base.ValueAt(macdLine, len(bars), i-1)
		prevSignal, ok2 := base.ValueAt(signalLine, len(bars), i-1)
		currMACD, ok3 := base.ValueAt(macdLine, len(bars), i)
		currSignal, ok4 := base.ValueAt(signalLine, len(bars), i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		switch {
		case base.CrossedAbove(prevMACD, prevSignal, currMACD, currSignal):
			es.SetDirection(common.Buy)
			es.AppendReason("MACD crossed above signal")
		case base.CrossedBelow(prevMACD, prevSignal, currMACD, currSignal):
			es.SetDirection(common.Sell)
			es.AppendReason("MACD crossed below signal")
		}
		es.AppendReasonf("MACD %.4f signal %.4f", currMACD, currSignal)
	}
	return resp, nil
}

// OnBar returns the signal for the latest bar of the symbol
func (s *Strategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	return s.Strategy.OnBar(bar, s.GenerateSignals)
}

// SetCustomSettings allows a user to modify the MACD periods in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		period, ok := base.ToPeriod(v)
		if !ok {
			return fmt.Errorf("%w provided %v value could not be parsed: %v", base.ErrInvalidCustomSettings, k, v)
		}
		switch k {
		case fastKey:
			s.fastPeriod = period
		case slowKey:
			s.slowPeriod = period
		case signalKey:
			s.signalPeriod = period
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.fastPeriod >= s.slowPeriod {
		return fmt.Errorf("%w macd-fast %v must be less than macd-slow %v", base.ErrInvalidCustomSettings, s.fastPeriod, s.slowPeriod)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.fastPeriod = 12
	s.slowPeriod = 26
	s.signalPeriod = 9
}
