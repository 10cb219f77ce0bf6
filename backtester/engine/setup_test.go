package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/config"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/csv"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/database"
)

func testConfig(t *testing.T, dir, extra string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papertrader.yaml")
	contents := fmt.Sprintf(`
symbols: [AAPL, MSFT]
start-date: "2024-01-01"
end-date: "2024-01-31"
strategy:
  name: sma
  settings:
    short-window: 2
    long-window: 4
data:
  source: csv
  directory: %q
%v`, dir, extra)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNewBacktestFromConfig(t *testing.T) {
	t.Parallel()
	_, err := NewBacktestFromConfig(nil, nil)
	assert.ErrorIs(t, err, errNilConfig)

	dir := t.TempDir()
	for sym, bars := range testBars() {
		require.NoError(t, csv.Save(csv.FilePath(dir, sym), bars))
	}
	bt, err := NewBacktestFromConfig(testConfig(t, dir, "order-style: {type: stop, offset: 0.02}\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "sma", bt.Strategy.Name())
	assert.Equal(t, order.Stop, bt.settings.OrderStyle.Type)
	assert.IsType(t, &exchange.Exchange{}, bt.Exchange)

	b, err := bt.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.EquityCurve, 12)
	assert.Equal(t, []string{"AAPL", "MSFT"}, b.Symbols)

	cfg := testConfig(t, dir, "")
	cfg.Data.Source = config.SourceDatabase
	cfg.Database.Enabled = true
	_, err = NewBacktestFromConfig(cfg, nil)
	assert.ErrorIs(t, err, database.ErrDatabaseSupportDisabled)

	cfg = testConfig(t, dir, "")
	cfg.Risk.MaxDrawdown = cfg.Risk.MaxDrawdown.Neg()
	_, err = NewBacktestFromConfig(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidRiskLimit)
}

func TestNewPaperTraderFromConfig(t *testing.T) {
	t.Parallel()
	_, _, err := NewPaperTraderFromConfig(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errNilConfig)

	cfg := testConfig(t, t.TempDir(), "")
	cfg.Data.API.APIKey = ""
	_, _, err = NewPaperTraderFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err, "the REST feed requires credentials")

	cfg.Data.API.APIKey, cfg.Data.API.APISecret = "key", "secret"
	rc := &reportCollector{}
	p, shutdown, err := NewPaperTraderFromConfig(context.Background(), cfg, rc)
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.Equal(t, rc, p.Notifier)
	assert.Equal(t, cfg.Paper.Interval, p.settings.Interval)
}
