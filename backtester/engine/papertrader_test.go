package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/backtester/report"
)

var errFeedDown = errors.New("feed down")

// fakeSource hands out the next bar of each symbol per call. MSFT repeats its
// first bar once and fails on the third call
type fakeSource struct {
	m     sync.Mutex
	calls map[string]int
	bars  map[string][]*kline.Kline
}

func (f *fakeSource) LatestBar(_ context.Context, symbol string) (*kline.Kline, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	call := f.calls[symbol]
	f.calls[symbol]++
	idx := call
	if symbol == "MSFT" {
		switch call {
		case 0, 1:
			idx = 0
		case 2:
			return nil, errFeedDown
		}
	}
	bars := f.bars[symbol]
	if idx >= len(bars) {
		idx = len(bars) - 1
	}
	k := *bars[idx]
	return &k, nil
}

// fakeClock advances a minute every time it is read
type fakeClock struct {
	m sync.Mutex
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.m.Lock()
	defer c.m.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestPaperTrader(t *testing.T, c Components) *PaperTrader {
	t.Helper()
	s := testSettings()
	s.Interval = time.Millisecond
	p, err := NewPaperTrader(s, c, &fakeSource{bars: testBars()})
	require.NoError(t, err)
	clock := &fakeClock{t: testStart.AddDate(0, 1, 0)}
	p.now = clock.now
	return p
}

func TestNewPaperTrader(t *testing.T) {
	t.Parallel()
	_, err := NewPaperTrader(testSettings(), testComponents(t), nil)
	assert.ErrorIs(t, err, errNilSource)

	s := testSettings()
	s.Interval = -time.Second
	_, err = NewPaperTrader(s, testComponents(t), &fakeSource{})
	assert.ErrorIs(t, err, errInvalidInterval)

	p, err := NewPaperTrader(testSettings(), testComponents(t), &fakeSource{})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, p.settings.Interval)
	assert.Equal(t, []string{"AAPL", "MSFT"}, p.data.Symbols())
}

func TestPaperTraderRun(t *testing.T) {
	t.Parallel()
	c := testComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc := &reportCollector{onCycle: func(r *monitor.CycleReport) {
		if r.Cycle == 4 {
			cancel()
		}
	}}
	c.Notifier = rc
	p := newTestPaperTrader(t, c)

	b, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ModePaper, b.Mode)
	require.Len(t, rc.reports, 4, "cancellation is observed between cycles")
	require.Len(t, b.EquityCurve, 4)
	for i := 1; i < len(b.EquityCurve); i++ {
		assert.True(t, b.EquityCurve[i].Time.After(b.EquityCurve[i-1].Time))
	}

	stream, err := p.data.GetDataForSymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 4, stream.Len())
	stream, err = p.data.GetDataForSymbol("MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, stream.Len(), "repeated and failed fetches add no bars")

	// AAPL buys on its second bar and sells on its fourth
	require.Len(t, b.Trades, 1)
	assert.Equal(t, "AAPL", b.Trades[0].Symbol)
	assert.Len(t, rc.reports[1].Fills, 1)
	assert.Empty(t, rc.reports[2].Fills)
	assert.True(t, p.lastPrices["MSFT"].Equal(decimal.NewFromInt(200)))
}

func TestPaperTraderCancelledBeforeStart(t *testing.T) {
	t.Parallel()
	p := newTestPaperTrader(t, testComponents(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, b.EquityCurve)
	assert.Nil(t, b.Statistics.Metrics)
	assert.True(t, b.FinalEquity.Equal(decimal.NewFromInt(100000)))
}
