package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

const (
	// Name is the strategy name
	Name        = "script"
	scriptKey   = "script"
	fileKey     = "script-file"
	timeoutKey  = "script-timeout"
	description = `The script strategy runs a tengo script once per bar. The script reads the closes, highs, lows and volumes arrays up to the current bar and assigns "buy", "sell" or "hold" to signal, optionally explaining itself in reason`

	defaultTimeout = time.Second
)

// DefaultScript is a momentum strategy buying when the ten bar change in
// closing price turns positive and selling when it turns negative
const DefaultScript = `lookback := 10
n := len(closes)
if n > lookback + 1 {
	prev := closes[n-2] - closes[n-2-lookback]
	curr := closes[n-1] - closes[n-1-lookback]
	if prev <= 0 && curr > 0 {
		signal = "buy"
		reason = "momentum turned positive"
	} else if prev >= 0 && curr < 0 {
		signal = "sell"
		reason = "momentum turned negative"
	}
}
`

var (
	errScriptFailed   = errors.New("script failed")
	errInvalidOutcome = errors.New("script assigned an unrecognised signal")

	inputs = []string{"closes", "highs", "lows", "volumes"}
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	source   string
	timeout  time.Duration
	compiled *tengo.Compiled
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

func (s *Strategy) compile() error {
	if s.source == "" {
		s.source = DefaultScript
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	sc := tengo.NewScript([]byte(s.source))
	sc.SetImports(stdlib.GetModuleMap("math", "text", "times"))
	for _, v := range inputs {
		if err := sc.Add(v, []interface{}{}); err != nil {
			return err
		}
	}
	if err := sc.Add("signal", "hold"); err != nil {
		return err
	}
	if err := sc.Add("reason", ""); err != nil {
		return err
	}
	compiled, err := sc.Compile()
	if err != nil {
		return err
	}
	s.compiled = compiled
	return nil
}

// GenerateSignals runs the script against every prefix of the bars. Each run
// only sees bars up to and including the one being evaluated
func (s *Strategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := base.ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	if s.compiled == nil {
		if err := s.compile(); err != nil {
			return nil, fmt.Errorf("%w %v", errScriptFailed, err)
		}
	}
	vm := s.compiled.Clone()
	series := make(map[string][]interface{}, len(inputs))
	resp := make([]*signal.Signal, len(bars))
	for i := range bars {
		series["closes"] = append(series["closes"], bars[i].Close.InexactFloat64())
		series["highs"] = append(series["highs"], bars[i].High.InexactFloat64())
		series["lows"] = append(series["lows"], bars[i].Low.InexactFloat64())
		series["volumes"] = append(series["volumes"], bars[i].Volume.InexactFloat64())
		direction, reason, err := s.run(vm, series)
		if err != nil {
			return nil, fmt.Errorf("%v bar %d: %w", symbol, i, err)
		}
		es := base.GetBaseData(bars[i])
		es.SetDirection(direction)
		es.AppendReason(reason)
		resp[i] = es
	}
	return resp, nil
}

func (s *Strategy) run(vm *tengo.Compiled, series map[string][]interface{}) (common.Direction, string, error) {
	for _, v := range inputs {
		if err := vm.Set(v, series[v]); err != nil {
			return "", "", err
		}
	}
	if err := vm.Set("signal", "hold"); err != nil {
		return "", "", err
	}
	if err := vm.Set("reason", ""); err != nil {
		return "", "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := vm.RunContext(ctx); err != nil {
		return "", "", fmt.Errorf("%w %v", errScriptFailed, err)
	}
	reason := vm.Get("reason").String()
	switch outcome := strings.ToLower(vm.Get("signal").String()); outcome {
	case "buy":
		return common.Buy, reason, nil
	case "sell":
		return common.Sell, reason, nil
	case "hold", "":
		return common.DoNothing, reason, nil
	default:
		return "", "", fmt.Errorf("%w %q", errInvalidOutcome, outcome)
	}
}

// OnBar returns the signal for the latest bar of the symbol
func (s *Strategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	return s.Strategy.OnBar(bar, s.GenerateSignals)
}

// SetCustomSettings loads the script source, either inline or from a file,
// and compiles it
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w %v must be a string: %v", base.ErrInvalidCustomSettings, k, v)
		}
		switch k {
		case scriptKey:
			s.source = str
		case fileKey:
			code, err := os.ReadFile(str)
			if err != nil {
				return fmt.Errorf("%w %v", base.ErrInvalidCustomSettings, err)
			}
			s.source = string(code)
		case timeoutKey:
			d, err := time.ParseDuration(str)
			if err != nil || d <= 0 {
				return fmt.Errorf("%w provided script-timeout value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.timeout = d
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if err := s.compile(); err != nil {
		return fmt.Errorf("%w %v", base.ErrInvalidCustomSettings, err)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.source = DefaultScript
	s.timeout = defaultTimeout
	s.compiled = nil
}
