package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

var (
	tt  = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	dec = decimal.RequireFromString
)

func testReport(cycle int64, cash, equity, drawdown string) *CycleReport {
	return &CycleReport{
		Cycle: cycle,
		Time:  tt.Add(time.Duration(cycle) * time.Minute),
		Signals: []signal.Signal{
			{Base: event.Base{Symbol: "AAPL", Time: tt}, Direction: common.Buy, Price: dec("100")},
		},
		Fills: []fill.Fill{
			{Base: event.Base{Symbol: "AAPL", Time: tt}, OrderID: "1", Side: common.Buy, Quantity: 10, Price: dec("100.5"), Commission: dec("1")},
			{Base: event.Base{Symbol: "MSFT", Time: tt}, OrderID: "2", Side: common.Sell, Quantity: 2, Price: dec("50"), Commission: dec("0.5")},
		},
		Rejections: []Rejection{
			{Time: tt, Symbol: "TSLA", Direction: "BUY", Quantity: 5, Rejection: risk.Rejection{Rule: "max-position-size", Reason: "too big"}},
		},
		Equity: portfolio.EquityPoint{
			Time:        tt,
			Cash:        dec(cash),
			TotalEquity: dec(equity),
		},
		Summary: portfolio.Summary{Drawdown: dec(drawdown)},
		Holdings: []holdings.Holding{
			{Symbol: "AAPL", Quantity: 10, LastPrice: dec("100")},
		},
	}
}

func TestAlertChecks(t *testing.T) {
	t.Parallel()
	a := NewAlerts()
	var handled []Alert
	a.AddHandler(func(alert Alert) error {
		handled = append(handled, alert)
		return nil
	})
	a.AddHandler(func(Alert) error { return errors.New("broken handler") })
	a.AddHandler(nil)

	assert.False(t, a.CheckDrawdown(dec("0.05"), dec("0.2")))
	assert.True(t, a.CheckDrawdown(dec("0.17"), dec("0.2")))
	assert.True(t, a.CheckDrawdown(dec("0.25"), dec("0.2")))
	assert.False(t, a.CheckDrawdown(dec("0.25"), decimal.Zero), "no limit, no alert")

	assert.True(t, a.CheckPositionSize("AAPL", dec("3000"), dec("10000"), dec("0.25")))
	assert.True(t, a.CheckPositionSize("AAPL", dec("-3000"), dec("10000"), dec("0.25")), "shorts count by value")
	assert.False(t, a.CheckPositionSize("AAPL", dec("2000"), dec("10000"), dec("0.25")))
	assert.False(t, a.CheckPositionSize("AAPL", dec("2000"), decimal.Zero, dec("0.25")))

	assert.True(t, a.CheckCashLevel(dec("500"), dec("10000"), dec("0.1")))
	assert.False(t, a.CheckCashLevel(dec("5000"), dec("10000"), dec("0.1")))

	all := a.Get("")
	require.Len(t, all, 5)
	assert.Len(t, handled, 5, "a failing handler does not stop the others")
	assert.Equal(t, Warning, all[0].Level)
	assert.Equal(t, Critical, all[1].Level)
	assert.Equal(t, "drawdown 25.00% exceeds limit 20.00%", all[1].Message)
	assert.Len(t, a.Get(Critical), 1)
	assert.Len(t, a.Get(Warning), 4)
	assert.Empty(t, a.Get(Info))

	a.Clear()
	assert.Empty(t, a.Get(""))
	a.Raise(Info, "still handled", nil)
	assert.Len(t, handled, 6)
}

func TestCollector(t *testing.T) {
	t.Parallel()
	c := NewCollector()
	c.Record(nil)
	assert.Nil(t, c.Latest())

	r := testReport(1, "5000", "10000", "0")
	r.Errors = []string{"order 3 rejected by broker"}
	c.Record(r)
	c.Record(testReport(2, "5000", "10100", "0"))

	s := c.Summary()
	assert.Equal(t, int64(2), s.Cycles)
	assert.Equal(t, int64(2), s.Signals)
	assert.Equal(t, int64(2), s.BuyFills)
	assert.Equal(t, int64(2), s.SellFills)
	assert.Equal(t, int64(2), s.Rejections)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, "2210", s.TotalValueTraded.String())
	assert.Equal(t, "3", s.TotalCommissions.String())
	assert.Equal(t, "10100", s.LatestTotalEquity.String())

	assert.Len(t, c.Records(RecordFill), 4)
	assert.Len(t, c.Records(RecordSnapshot), 2)
	assert.Len(t, c.Records(""), 11)
	assert.Len(t, c.EquityCurve(), 2)
	assert.Equal(t, int64(2), c.Latest().Cycle)

	path := filepath.Join(t.TempDir(), "sessions", "monitor.json")
	require.NoError(t, c.SaveJSON(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved struct {
		Records []Record `json:"records"`
		Summary Summary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Len(t, saved.Records, 11)
	assert.Equal(t, int64(2), saved.Summary.Cycles)
}

func TestMonitorNotify(t *testing.T) {
	t.Parallel()
	m := New(Thresholds{
		MaxDrawdown:     dec("0.2"),
		MaxPositionSize: dec("0.25"),
		MinCashPercent:  dec("0.1"),
	}, 8)

	m.Notify(testReport(1, "5000", "10000", "0"))
	assert.Equal(t, int64(1), m.Dropped(), "reports before Start are dropped")
	assert.ErrorIs(t, m.Stop(), errNotStarted)

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), errAlreadyStarted)
	m.Notify(nil)
	m.Notify(testReport(1, "5000", "10000", "0.17"))
	m.Notify(testReport(2, "5000", "10000", "0.18"))
	m.Notify(testReport(3, "500", "10000", "0.25"))
	stopped := testReport(4, "500", "10000", "0.25")
	stopped.StopTrading = true
	stopped.StopReason = "max drawdown breached"
	m.Notify(stopped)
	require.NoError(t, m.Stop())

	assert.Equal(t, int64(4), m.Collector.Summary().Cycles)
	alerts := m.Alerts.Get("")
	// drawdown warns once then escalates once, cash warns once and the stop
	// is raised once
	require.Len(t, alerts, 4)
	assert.Equal(t, "drawdown 17.00% approaching limit 20.00%", alerts[0].Message)
	assert.Equal(t, "drawdown 25.00% exceeds limit 20.00%", alerts[1].Message)
	assert.Equal(t, "cash is 5.00% of the portfolio, minimum 10.00%", alerts[2].Message)
	assert.Equal(t, "trading stopped: max drawdown breached", alerts[3].Message)
	assert.Len(t, m.Alerts.Get(Critical), 2)
	assert.Len(t, m.Alerts.Get(Warning), 2)

	require.NoError(t, m.Start(), "a stopped monitor can be started again")
	m.Notify(testReport(5, "5000", "10000", "0"))
	require.NoError(t, m.Stop())
	assert.Equal(t, int64(5), m.Collector.Summary().Cycles)
}

func TestMonitorNotifyNeverBlocks(t *testing.T) {
	t.Parallel()
	m := New(Thresholds{}, 1)
	m.m.Lock()
	m.started = true
	m.m.Unlock()
	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 10; i++ {
			m.Notify(testReport(i, "5000", "10000", "0"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked without a worker")
	}
	assert.Equal(t, int64(9), m.Dropped())
}

func TestServer(t *testing.T) {
	t.Parallel()
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, common.ErrNilArguments)

	m := New(Thresholds{MaxDrawdown: dec("0.1")}, 4)
	m.process(testReport(1, "5000", "10000", "0.5"))
	s, err := NewServer(m)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Shutdown(context.Background()), errNotStarted)
	assert.ErrorIs(t, s.Start(""), errNoListen)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	get := func(path string, v any) *http.Response {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if v != nil {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
		}
		return resp
	}

	var status statusResponse
	resp := get("/status", &status)
	assert.Equal(t, "application/json; charset=UTF-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(1), status.Summary.Cycles)
	require.NotNil(t, status.Latest)
	assert.Equal(t, int64(1), status.Latest.Cycle)

	var curve []portfolio.EquityPoint
	get("/equity", &curve)
	require.Len(t, curve, 1)
	assert.Equal(t, "10000", curve[0].TotalEquity.String())

	var alerts []Alert
	get("/alerts?level=critical", &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, Critical, alerts[0].Level)

	var records []Record
	get("/records/fill", &records)
	assert.Len(t, records, 2)

	resp = get("/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
