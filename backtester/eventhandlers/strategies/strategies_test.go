package strategies

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/bollinger"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/macd"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/rsi"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies/sma"
)

func TestGetStrategies(t *testing.T) {
	t.Parallel()
	resp := GetStrategies()
	require.Len(t, resp, 5)
	names := make(map[string]bool)
	for i := range resp {
		assert.NotEmpty(t, resp[i].Description())
		names[resp[i].Name()] = true
	}
	assert.Len(t, names, 5, "strategy names must be unique")
	assert.NotSame(t, GetStrategies()[0], GetStrategies()[0], "every call returns fresh instances")
}

func TestLoadStrategyByName(t *testing.T) {
	t.Parallel()
	_, err := LoadStrategyByName("test", nil)
	assert.ErrorIs(t, err, base.ErrStrategyNotFound)

	for _, name := range []string{sma.Name, rsi.Name, macd.Name, bollinger.Name, "SMA"} {
		resp, err := LoadStrategyByName(name, nil)
		require.NoErrorf(t, err, "strategy %v", name)
		assert.Truef(t, strings.EqualFold(name, resp.Name()), "strategy %v loaded %v", name, resp.Name())
	}

	resp, err := LoadStrategyByName(sma.Name, map[string]any{"short-window": 5, "long-window": 10})
	require.NoError(t, err)
	assert.Equal(t, sma.Name, resp.Name())

	_, err = LoadStrategyByName(sma.Name, map[string]any{"short-window": 50, "long-window": 10})
	assert.ErrorIs(t, err, base.ErrInvalidCustomSettings)
}
