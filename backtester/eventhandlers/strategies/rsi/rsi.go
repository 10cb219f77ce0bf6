package rsi

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
	Name          = "rsi"
	rsiPeriodKey  = "rsi-period"
	oversoldKey   = "oversold"
	overboughtKey = "overbought"
	description   = `The relative strength index is a technical indicator used in the analysis of financial markets. It is intended to chart the current and historical strength or weakness of a stock or market based on the closing prices of a recent trading period`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	rsiPeriod  int
	oversold   float64
	overbought float64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
// be it definition of terms or to highlight its purpose
func (s *Strategy) Description() string {
	return description
}

// GenerateSignals returns a buy signal when RSI climbs back above the oversold
// level and a sell signal when it falls back below the overbought level
func (s *Strategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := base.ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	resp := make([]*signal.Signal, len(bars))
	var rsi []float64
	if len(bars) > s.rsiPeriod+1 {
		rsi = indicators.RSI(base.Closes(bars), s.rsiPeriod)
	}
	for i := range bars {
		es := base.GetBaseData(bars[i])
		resp[i] = es
		if i <= s.rsiPeriod {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		prev, ok := base.ValueAt(rsi, len(bars), i-1)
		curr, ok2 := base.ValueAt(rsi, len(bars), i)
		if !ok || !ok2 {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		switch {
		case prev <= s.oversold && curr > s.oversold:
			es.SetDirection(common.Buy)
			es.AppendReasonf("RSI crossed above %v", s.oversold)
		case prev >= s.overbought && curr < s.overbought:
			es.SetDirection(common.Sell)
			es.AppendReasonf("RSI crossed below %v", s.overbought)
		}
		es.AppendReasonf("RSI at %.2f", curr)
	}
	return resp, nil
}

// OnBar returns the signal for the latest bar of the symbol
func (s *Strategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	return s.Strategy.OnBar(bar, s.GenerateSignals)
}

// SetCustomSettings allows a user to modify the RSI limits in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case rsiPeriodKey:
			period, ok := base.ToPeriod(v)
			if !ok || period < 2 {
				return fmt.Errorf("%w provided rsi-period value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.rsiPeriod = period
		case oversoldKey:
			f, ok := base.ToFloat(v)
			if !ok || f <= 0 || f >= 100 {
				return fmt.Errorf("%w provided oversold value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.oversold = f
		case overboughtKey:
			f, ok := base.ToFloat(v)
			if !ok || f <= 0 || f >= 100 {
				return fmt.Errorf("%w provided overbought value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.overbought = f
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.oversold >= s.overbought {
		return fmt.Errorf("%w oversold %v must be below overbought %v", base.ErrInvalidCustomSettings, s.oversold, s.overbought)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.rsiPeriod = 14
	s.oversold = 30
	s.overbought = 70
}
