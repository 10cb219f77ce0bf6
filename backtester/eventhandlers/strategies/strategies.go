package strategies

import (
	"fmt"
	"strings"

	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/bollinger"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/macd"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/rsi"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/script"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/sma"
)

// LoadStrategyByName returns the strategy by its name with default settings
// applied, followed by any custom settings
func LoadStrategyByName(name string, customSettings map[string]any) (Handler, error) {
	strats := GetStrategies()
	for i := range strats {
		if !strings.EqualFold(name, strats[i].Name()) {
			continue
		}
		strats[i].SetDefaults()
		if len(customSettings) > 0 {
			if err := strats[i].SetCustomSettings(customSettings); err != nil {
				return nil, fmt.Errorf("%v: %w", strats[i].Name(), err)
			}
		}
		return strats[i], nil
	}
	return nil, fmt.Errorf("%w %s", base.ErrStrategyNotFound, name)
}

// GetStrategies returns a fresh instance of every strategy supported by the
// paper trader
func GetStrategies() []Handler {
	return []Handler{
		new(sma.Strategy),
		new(rsi.Strategy),
		new(macd.Strategy),
		new(bollinger.Strategy),
		new(script.Strategy),
	}
}
