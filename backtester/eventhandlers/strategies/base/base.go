package base

import (
	"fmt"
	"strconv"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

// GetBaseData returns a HOLD signal describing the bar, ready for a strategy
// to set its direction
func GetBaseData(bar *kline.Kline) *signal.Signal {
	return &signal.Signal{
		Base: event.Base{
			Offset: bar.GetOffset(),
			Time:   bar.GetTime(),
			Symbol: bar.GetSymbol(),
		},
		Direction: common.DoNothing,
		Price:     bar.GetClosePrice(),
	}
}

// ValidateSeries ensures every bar belongs to the symbol, is well formed and
// is later than the one before it
func ValidateSeries(symbol string, bars []*kline.Kline) error {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %w", ErrInvalidSeries, i, err)
		}
		if bars[i].Symbol != symbol {
			return fmt.Errorf("%w bar %d belongs to %v not %v", ErrInvalidSeries, i, bars[i].Symbol, symbol)
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w bar %d at %v is not after %v", ErrInvalidSeries, i, bars[i].Time, bars[i-1].Time)
		}
	}
	return nil
}

// Closes returns the closing prices of the bars
func Closes(bars []*kline.Kline) []float64 {
	resp := make([]float64, len(bars))
	for i := range bars {
		resp[i] = bars[i].Close.InexactFloat64()
	}
	return resp
}

// ValueAt returns the indicator value belonging to input index i. Indicator
// output is aligned to the end of its input so both padded and trimmed
// outputs resolve to the same bar
func ValueAt(out []float64, inputLength, i int) (float64, bool) {
	j := i - (inputLength - len(out))
	if j < 0 || j >= len(out) {
		return 0, false
	}
	return out[j], true
}

// CrossedAbove reports whether a moved from at or below b to above b
func CrossedAbove(prevA, prevB, a, b float64) bool {
	return prevA <= prevB && a > b
}

// CrossedBelow reports whether a moved from at or above b to below b
func CrossedBelow(prevA, prevB, a, b float64) bool {
	return prevA >= prevB && a < b
}

// OnBar appends the bar to the symbol's history and returns the last signal
// the batch generator produces over that history, so both code paths share
// one implementation. A bar that fails validation is not kept
func (s *Strategy) OnBar(bar *kline.Kline, generate GenerateFunc) (*signal.Signal, error) {
	if bar == nil {
		return nil, common.ErrNilEvent
	}
	if s.history == nil {
		s.history = make(map[string][]*kline.Kline)
	}
	history := append(s.history[bar.Symbol], bar)
	signals, err := generate(bar.Symbol, history)
	if err != nil {
		return nil, err
	}
	if len(signals) != len(history) {
		return nil, fmt.Errorf("%w generated %d signals for %d bars", ErrInvalidSeries, len(signals), len(history))
	}
	s.history[bar.Symbol] = history
	return signals[len(signals)-1], nil
}

// History returns the bars held for a symbol
func (s *Strategy) History(symbol string) []*kline.Kline {
	return s.history[symbol]
}

// Reset clears all held history
func (s *Strategy) Reset() {
	s.history = nil
}

// ToFloat converts a custom setting value into a float64
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// ToPeriod converts a custom setting value into a positive whole period
func ToPeriod(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || f < 1 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
