package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/size"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/backtester/report"
)

var (
	testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	testFee   = fee.Model{Type: fee.Flat, Value: decimal.NewFromInt(1)}
	testSlip  = decimal.NewFromFloat(0.001)
)

// cycleStrategy buys on the bar at buyAt and sells on the bar at sellAt of
// every period, holding otherwise
type cycleStrategy struct {
	period, buyAt, sellAt int
	m                     sync.Mutex
	seen                  map[string]int
}

func (c *cycleStrategy) Name() string                           { return "cycle" }
func (c *cycleStrategy) Description() string                    { return "buys and sells on a fixed schedule" }
func (c *cycleStrategy) SetCustomSettings(map[string]any) error { return nil }
func (c *cycleStrategy) SetDefaults()                           {}

func (c *cycleStrategy) Reset() {
	c.m.Lock()
	c.seen = nil
	c.m.Unlock()
}

func (c *cycleStrategy) GenerateSignals(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	resp := make([]*signal.Signal, len(bars))
	for i := range bars {
		resp[i] = c.signalAt(bars[i], i)
	}
	return resp, nil
}

func (c *cycleStrategy) OnBar(bar *kline.Kline) (*signal.Signal, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]int)
	}
	idx := c.seen[bar.Symbol]
	c.seen[bar.Symbol]++
	return c.signalAt(bar, idx), nil
}

func (c *cycleStrategy) signalAt(bar *kline.Kline, idx int) *signal.Signal {
	s := &signal.Signal{
		Base:      event.Base{Symbol: bar.Symbol, Time: bar.Time, Offset: bar.Offset},
		Direction: common.DoNothing,
		Price:     bar.Close,
	}
	switch idx % c.period {
	case c.buyAt:
		s.Direction = common.Buy
	case c.sellAt:
		s.Direction = common.Sell
	default:
		s.AppendReason("no scheduled trade")
	}
	return s
}

type fakeLoader struct {
	bars map[string][]*kline.Kline
	err  error
}

func (f *fakeLoader) Load(_ context.Context, symbols []string, _, _ time.Time) (map[string][]*kline.Kline, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := make(map[string][]*kline.Kline)
	for _, s := range symbols {
		src := f.bars[s]
		cp := make([]*kline.Kline, len(src))
		for i := range src {
			k := *src[i]
			cp[i] = &k
		}
		resp[s] = cp
	}
	return resp, nil
}

func newBar(symbol string, day int, closePrice float64) *kline.Kline {
	c := decimal.NewFromFloat(closePrice)
	return &kline.Kline{
		Base:   event.Base{Symbol: symbol, Time: testStart.AddDate(0, 0, day), Offset: int64(day)},
		Open:   c,
		High:   c.Add(decimal.NewFromInt(1)),
		Low:    c.Sub(decimal.NewFromInt(1)),
		Close:  c,
		Volume: decimal.NewFromInt(1000),
	}
}

// testBars returns 12 daily AAPL bars and MSFT bars missing day 5
func testBars() map[string][]*kline.Kline {
	resp := make(map[string][]*kline.Kline)
	for day := 0; day < 12; day++ {
		resp["AAPL"] = append(resp["AAPL"], newBar("AAPL", day, 100+float64(day%5)*2))
		if day != 5 {
			resp["MSFT"] = append(resp["MSFT"], newBar("MSFT", day, 200-float64(day%3)*3))
		}
	}
	return resp
}

func testComponents(t *testing.T) Components {
	t.Helper()
	sizer, err := size.Setup(decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.02), decimal.NewFromFloat(0.02))
	require.NoError(t, err)
	rm, err := risk.Setup(risk.Limits{
		MaxPositionSize: decimal.NewFromFloat(0.1),
		MaxDrawdown:     decimal.NewFromFloat(0.2),
		Slippage:        testSlip,
		Commission:      testFee,
	})
	require.NoError(t, err)
	p, err := portfolio.Setup(decimal.NewFromInt(100000), sizer, rm)
	require.NoError(t, err)
	ex, err := exchange.Setup(testSlip, testFee, p)
	require.NoError(t, err)
	stats, err := statistics.NewStatistic("", statistics.Settings{PeriodsPerYear: 252, Confidence: 0.95})
	require.NoError(t, err)
	return Components{
		Strategy:  &cycleStrategy{period: 4, buyAt: 1, sellAt: 3},
		Portfolio: p,
		Exchange:  ex,
		Risk:      rm,
		Statistic: stats,
	}
}

func testSettings() Settings {
	return Settings{
		Symbols:   []string{"msft", "AAPL"},
		StartDate: testStart,
		EndDate:   testStart.AddDate(0, 0, 12),
	}
}

func TestNewBacktest(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{bars: testBars()}
	_, err := NewBacktest(testSettings(), testComponents(t), nil)
	assert.ErrorIs(t, err, errNilLoader)

	s := testSettings()
	s.EndDate = s.StartDate
	_, err = NewBacktest(s, testComponents(t), loader)
	assert.ErrorIs(t, err, errInvalidDateRange)

	s = testSettings()
	s.Symbols = nil
	_, err = NewBacktest(s, testComponents(t), loader)
	assert.ErrorIs(t, err, errNoSymbols)

	c := testComponents(t)
	c.Strategy = nil
	_, err = NewBacktest(testSettings(), c, loader)
	assert.ErrorIs(t, err, errNilStrategy)

	s = testSettings()
	s.OrderStyle = OrderStyle{Type: order.Limit}
	_, err = NewBacktest(s, testComponents(t), loader)
	assert.ErrorIs(t, err, errInvalidOrderStyle)

	bt, err := NewBacktest(testSettings(), testComponents(t), loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, bt.settings.Symbols)
}

func TestBacktestRun(t *testing.T) {
	t.Parallel()
	bt, err := NewBacktest(testSettings(), testComponents(t), &fakeLoader{bars: testBars()})
	require.NoError(t, err)
	b, err := bt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.ModeBacktest, b.Mode)
	assert.Equal(t, "cycle", b.Strategy)
	require.Len(t, b.EquityCurve, 12, "one point per distinct timestamp")
	for i := range b.EquityCurve {
		p := b.EquityCurve[i]
		assert.True(t, p.Cash.Add(p.PositionsValue).Equal(p.TotalEquity), "cash plus positions is equity at %v", p.Time)
		if i > 0 {
			assert.True(t, p.Time.After(b.EquityCurve[i-1].Time))
		}
	}
	assert.NotEmpty(t, b.Trades)
	assert.Empty(t, b.PendingOrders)
	assert.True(t, b.FinalEquity.Equal(b.EquityCurve[11].TotalEquity))
	require.NotNil(t, b.Statistics.Metrics)
	assert.Equal(t, 12, b.Statistics.Metrics.TradingPeriods)
}

func TestBacktestDeterministic(t *testing.T) {
	t.Parallel()
	run := func() []byte {
		bt, err := NewBacktest(testSettings(), testComponents(t), &fakeLoader{bars: testBars()})
		require.NoError(t, err)
		b, err := bt.Run(context.Background())
		require.NoError(t, err)
		for i := range b.Trades {
			b.Trades[i].OrderID = ""
		}
		ledger, err := json.Marshal(struct {
			Trades []portfolio.Trade
			Curve  []portfolio.EquityPoint
		}{b.Trades, b.EquityCurve})
		require.NoError(t, err)
		return ledger
	}
	first := run()
	assert.Equal(t, string(first), string(run()))
}

func TestBacktestPendingLimit(t *testing.T) {
	t.Parallel()
	s := testSettings()
	s.OrderStyle = OrderStyle{Type: order.Limit, Offset: decimal.NewFromFloat(0.5)}
	c := testComponents(t)
	c.Strategy = &cycleStrategy{period: 100, buyAt: 1, sellAt: 50}
	bt, err := NewBacktest(s, c, &fakeLoader{bars: testBars()})
	require.NoError(t, err)
	b, err := bt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, b.PendingOrders, 2, "a limit half way below the price never triggers")
	for i := range b.PendingOrders {
		assert.Equal(t, order.Limit, b.PendingOrders[i].Type)
		assert.Equal(t, order.Pending, b.PendingOrders[i].Status)
	}
	assert.Empty(t, b.Trades)
}

func TestBacktestNoData(t *testing.T) {
	t.Parallel()
	bars := testBars()
	delete(bars, "MSFT")
	bt, err := NewBacktest(testSettings(), testComponents(t), &fakeLoader{bars: bars})
	require.NoError(t, err)
	_, err = bt.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoDataForSymbol)

	errLoad := errors.New("source unavailable")
	bt, err = NewBacktest(testSettings(), testComponents(t), &fakeLoader{err: errLoad})
	require.NoError(t, err)
	_, err = bt.Run(context.Background())
	assert.ErrorIs(t, err, errLoad)
}

func TestBacktestCancelled(t *testing.T) {
	t.Parallel()
	bt, err := NewBacktest(testSettings(), testComponents(t), &fakeLoader{bars: testBars()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bt.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type reportCollector struct {
	m       sync.Mutex
	reports []*monitor.CycleReport
	onCycle func(*monitor.CycleReport)
}

func (r *reportCollector) Notify(c *monitor.CycleReport) {
	r.m.Lock()
	r.reports = append(r.reports, c)
	r.m.Unlock()
	if r.onCycle != nil {
		r.onCycle(c)
	}
}

func TestBacktestNotifies(t *testing.T) {
	t.Parallel()
	c := testComponents(t)
	rc := &reportCollector{}
	c.Notifier = rc
	bt, err := NewBacktest(testSettings(), c, &fakeLoader{bars: testBars()})
	require.NoError(t, err)
	_, err = bt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rc.reports, 12)
	assert.Equal(t, int64(1), rc.reports[0].Cycle)
	var fills int
	for _, r := range rc.reports {
		fills += len(r.Fills)
		assert.Empty(t, r.Errors)
	}
	assert.Greater(t, fills, len(bt.Portfolio.Trades()), "buys fill without closing a trade")
}

func TestOrderStyleApply(t *testing.T) {
	t.Parallel()
	offset := decimal.NewFromFloat(0.01)
	newOrder := func(side common.Direction) *order.Order {
		return &order.Order{Base: event.Base{Symbol: "AAPL"}, Type: order.Market, Side: side, Quantity: 1, Price: decimal.NewFromInt(100)}
	}

	o := newOrder(common.Buy)
	OrderStyle{}.Apply(o)
	assert.Equal(t, order.Market, o.Type)

	o = newOrder(common.Buy)
	OrderStyle{Type: order.Limit, Offset: offset}.Apply(o)
	assert.Equal(t, "99", o.LimitPrice.String())
	o = newOrder(common.Sell)
	OrderStyle{Type: order.Limit, Offset: offset}.Apply(o)
	assert.Equal(t, "101", o.LimitPrice.String())

	o = newOrder(common.Buy)
	OrderStyle{Type: order.Stop, Offset: offset}.Apply(o)
	assert.Equal(t, "101", o.StopPrice.String())
	assert.True(t, o.LimitPrice.IsZero())

	o = newOrder(common.Sell)
	OrderStyle{Type: order.StopLimit, Offset: offset}.Apply(o)
	assert.Equal(t, "99", o.StopPrice.String())
	assert.Equal(t, "99", o.LimitPrice.String())
	assert.NoError(t, o.Validate())
}
