package bollinger

import (
	"fmt"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"gonum.org/v1/gonum/stat"
)

const (
	// Name is the strategy name
	Name        = "bollinger"
	periodKey   = "bb-period"
	stdDevKey   = "bb-std"
	exitKey     = "bb-exit"
	description = `Bollinger bands place a band num_std standard deviations either side of the trailing mean. Closing below the lower band is a mean reversion entry, the exit policy decides whether the position is closed when price crosses above the upper band or back above the mean`
)

// ExitPolicy decides which band a close must cross to raise a sell signal
type ExitPolicy string

const (
	// ExitUpper sells when the close crosses above the upper band
	ExitUpper ExitPolicy = "upper"
	// ExitMean sells when the close crosses back above the middle band
	ExitMean ExitPolicy = "mean"
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	period int
	numStd float64
	exit   ExitPolicy
}

// Bands holds the trailing statistics at a bar
type Bands struct {
	Upper, Middle, Lower float64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// CalculateBands returns the bands for every bar with a complete trailing
// window. ok[i] is false during warmup
func (s *Strategy) CalculateBands(closes []float64) (bands []Bands, ok []bool) {
	bands = make([]Bands, len(closes))
	ok = make([]bool, len(closes))
	for i := s.period - 1; i < len(closes); i++ {
		mean, std := stat.MeanStdDev(closes[i-s.period+1:i+1], nil)
		bands[i] = Bands{
			Upper:  mean + s.numStd*std,
			Middle: mean,
			Lower:  mean - s.numStd*std,
		}
		ok[i] = true
	}
	return bands, ok
}

// GenerateSignals returns a buy signal when the close crosses below the lower
// band and a sell signal when it crosses above the exit band
func (s *Strategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := base.ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	closes := base.Closes(bars)
	bands, ok := s.CalculateBands(closes)
	resp := make([]*signal.Signal, len(bars))
	for i := range bars {
		es := base.GetBaseData(bars[i])
		resp[i] = es
		if i == 0 || !ok[i-1] || !ok[i] {
			es.AppendReason(base.NotEnoughData)
			continue
		}
		prev, curr := bands[i-1], bands[i]
		prevExit, currExit := prev.Upper, curr.Upper
		if s.exit == ExitMean {
			prevExit, currExit = prev.Middle, curr.Middle
		}
		switch {
		case base.CrossedBelow(closes[i-1], prev.Lower, closes[i], curr.Lower):
			es.SetDirection(common.Buy)
			es.AppendReason("Price crossed below lower band")
		case base.CrossedAbove(closes[i-1], prevExit, closes[i], currExit):
			es.SetDirection(common.Sell)
			es.AppendReasonf("Price crossed above %v band", s.exit)
		}
		es.AppendReasonf("bands %.4f/%.4f/%.4f", curr.Lower, curr.Middle, curr.Upper)
	}
	return resp, nil
}

// OnBar returns the signal for the latest bar of the symbol
func (s *Strategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	return s.Strategy.OnBar(bar, s.GenerateSignals)
}

// SetCustomSettings allows a user to modify the band settings in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case periodKey:
			period, ok := base.ToPeriod(v)
			if !ok || period < 2 {
				return fmt.Errorf("%w provided bb-period value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.period = period
		case stdDevKey:
			f, ok := base.ToFloat(v)
			if !ok || f <= 0 {
				return fmt.Errorf("%w provided bb-std value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.numStd = f
		case exitKey:
			str, ok := v.(string)
			if !ok || (ExitPolicy(str) != ExitUpper && ExitPolicy(str) != ExitMean) {
				return fmt.Errorf("%w provided bb-exit value must be %q or %q: %v", base.ErrInvalidCustomSettings, ExitUpper, ExitMean, v)
			}
			s.exit = ExitPolicy(str)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.period = 20
	s.numStd = 2
	s.exit = ExitUpper
}
