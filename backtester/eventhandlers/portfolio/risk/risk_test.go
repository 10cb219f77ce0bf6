package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

const testSymbol = "AAPL"

func testLimits() Limits {
	return Limits{
		MaxPositionSize: decimal.NewFromFloat(0.1),
		MaxDrawdown:     decimal.NewFromFloat(0.2),
		Slippage:        decimal.NewFromFloat(0.001),
		Commission:      fee.Model{Type: fee.Flat, Value: decimal.NewFromInt(1)},
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Setup(testLimits())
	require.NoError(t, err)
	return m
}

func newSignal(d common.Direction, qty int64, price float64) *signal.Signal {
	return &signal.Signal{
		Base:      event.Base{Symbol: testSymbol, Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Reason: "test"},
		Direction: d,
		Price:     decimal.NewFromFloat(price),
		Quantity:  qty,
	}
}

func snapshot(cash, equity, peak float64, held int64) *holdings.Snapshot {
	return &holdings.Snapshot{
		Cash:   decimal.NewFromFloat(cash),
		Equity: decimal.NewFromFloat(equity),
		Peak:   decimal.NewFromFloat(peak),
		Holdings: map[string]holdings.Holding{
			testSymbol: {Symbol: testSymbol, Quantity: held, LastPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestSetup(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.MaxDrawdown = decimal.NewFromFloat(-0.1)
	_, err := Setup(l)
	assert.ErrorIs(t, err, ErrInvalidRiskLimit)

	l = testLimits()
	l.MaxPositionSize = decimal.NewFromInt(2)
	_, err = Setup(l)
	assert.ErrorIs(t, err, ErrInvalidRiskLimit)

	l = testLimits()
	l.Slippage = decimal.NewFromInt(1)
	_, err = Setup(l)
	assert.ErrorIs(t, err, ErrInvalidRiskLimit)

	l = testLimits()
	l.Commission.Type = "tiered"
	_, err = Setup(l)
	assert.ErrorIs(t, err, ErrInvalidRiskLimit)

	m, err := Setup(testLimits())
	require.NoError(t, err)
	assert.Equal(t, testLimits(), m.Limits())
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1002", newManager(t).EstimateCost(decimal.NewFromInt(100), 10).String())
}

func TestEvaluateReducesQuantity(t *testing.T) {
	t.Parallel()
	o, rej := newManager(t).Evaluate(newSignal(common.Buy, 200, 100), snapshot(100000, 100000, 100000, 0))
	require.Nil(t, rej)
	require.NotNil(t, o)
	assert.Equal(t, int64(100), o.Quantity, "20000 notional is resized to 10000 rather than rejected")
	assert.Equal(t, order.Market, o.Type)
	assert.Equal(t, order.Pending, o.Status)
	assert.Equal(t, common.Buy, o.Side)
	assert.NotEmpty(t, o.ID)
	assert.Contains(t, o.Reason, "reduced from 200 to 100")
}

func TestEvaluatePositionLimitFull(t *testing.T) {
	t.Parallel()
	o, rej := newManager(t).Evaluate(newSignal(common.Buy, 10, 100), snapshot(90000, 100000, 100000, 100))
	assert.Nil(t, o)
	require.NotNil(t, rej)
	assert.Equal(t, RulePositionSize, rej.Rule)
}

func TestEvaluateCash(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	_, rej := m.Evaluate(newSignal(common.Buy, 20, 100), snapshot(1000, 100000, 100000, 0))
	require.NotNil(t, rej)
	assert.Equal(t, RuleCash, rej.Rule)

	_, rej = m.Evaluate(newSignal(common.Sell, 11, 100), snapshot(1000, 100000, 100000, 10))
	require.NotNil(t, rej)
	assert.Equal(t, RuleCash, rej.Rule, "cannot sell more than held")

	o, rej := m.Evaluate(newSignal(common.Sell, 10, 100), snapshot(1000, 100000, 100000, 10))
	require.Nil(t, rej)
	assert.Equal(t, int64(10), o.Quantity)
}

func TestEvaluatePendingOrders(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	snap := snapshot(100000, 100000, 100000, 10)
	snap.PendingSell = map[string]int64{testSymbol: 10}
	_, rej := m.Evaluate(newSignal(common.Sell, 10, 100), snap)
	require.NotNil(t, rej, "a holding already pending sale cannot be sold twice")
	assert.Equal(t, RuleCash, rej.Rule)

	snap.PendingSell[testSymbol] = 4
	o, rej := m.Evaluate(newSignal(common.Sell, 6, 100), snap)
	require.Nil(t, rej)
	assert.Equal(t, int64(6), o.Quantity)

	snap = snapshot(100000, 100000, 100000, 0)
	snap.PendingBuy = map[string]int64{testSymbol: 80}
	o, rej = m.Evaluate(newSignal(common.Buy, 50, 100), snap)
	require.Nil(t, rej)
	assert.Equal(t, int64(20), o.Quantity, "pending buys count towards the position limit")

	snap.PendingBuy[testSymbol] = 100
	_, rej = m.Evaluate(newSignal(common.Buy, 1, 100), snap)
	require.NotNil(t, rej)
	assert.Equal(t, RulePositionSize, rej.Rule)
}

func TestEvaluateDrawdown(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	_, rej := m.Evaluate(newSignal(common.Buy, 10, 100), snapshot(74000, 75000, 100000, 10))
	require.NotNil(t, rej)
	assert.Equal(t, RuleDrawdown, rej.Rule)

	o, rej := m.Evaluate(newSignal(common.Sell, 10, 100), snapshot(74000, 75000, 100000, 10))
	assert.Nil(t, rej, "liquidation is allowed during a drawdown")
	assert.NotNil(t, o)

	o, rej = m.Evaluate(newSignal(common.Buy, 10, 100), snapshot(84000, 85000, 100000, 10))
	assert.Nil(t, rej, "buying resumes once equity recovers")
	assert.NotNil(t, o)
}

func TestEvaluateInvalid(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	for _, s := range []*signal.Signal{
		nil,
		newSignal(common.DoNothing, 10, 100),
		newSignal(common.Buy, 0, 100),
		newSignal(common.Buy, 10, 0),
	} {
		_, rej := m.Evaluate(s, snapshot(100000, 100000, 100000, 0))
		require.NotNil(t, rej)
		assert.Equal(t, RuleInvalidSignal, rej.Rule)
	}
}

func TestShouldStopTrading(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	stop, _ := m.ShouldStopTrading(nil)
	assert.False(t, stop)
	stop, _ = m.ShouldStopTrading(snapshot(100000, 100000, 100000, 0))
	assert.False(t, stop)
	stop, reason := m.ShouldStopTrading(snapshot(70000, 70000, 100000, 0))
	assert.True(t, stop)
	assert.Equal(t, "max drawdown exceeded: 30.00%", reason)
	stop, reason = m.ShouldStopTrading(snapshot(-1, 100000, 100000, 0))
	assert.True(t, stop)
	assert.Equal(t, "negative cash balance", reason)
}
