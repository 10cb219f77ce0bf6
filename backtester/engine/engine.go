package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/eventholder"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/backtester/report"
	"github.com/thrasher-corp/papertrader/log"
)

// Validate checks every required component is set
func (c *Components) Validate() error {
	switch {
	case c == nil:
		return common.ErrNilArguments
	case c.Strategy == nil:
		return errNilStrategy
	case c.Portfolio == nil:
		return errNilPortfolio
	case c.Exchange == nil:
		return errNilExchange
	case c.Risk == nil:
		return errNilStopper
	case c.Statistic == nil:
		return errNilStatistic
	}
	return nil
}

// Validate checks the order style can produce valid orders
func (o OrderStyle) Validate() error {
	switch o.Type {
	case "", order.Market:
		return nil
	case order.Limit, order.Stop, order.StopLimit:
		if !o.Offset.IsPositive() || o.Offset.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w %v offset %v must be between 0 and 1", errInvalidOrderStyle, o.Type, o.Offset)
		}
		return nil
	}
	return fmt.Errorf("%w type %q", errInvalidOrderStyle, o.Type)
}

// Apply converts a market order to the configured style. A buy limit rests
// below the reference price and a sell limit above it, a buy stop rests above
// the reference price and a sell stop below it
func (o OrderStyle) Apply(ord *order.Order) {
	if ord == nil || o.Type == "" || o.Type == order.Market {
		return
	}
	one := decimal.NewFromInt(1)
	below := ord.Price.Mul(one.Sub(o.Offset)).Round(4)
	above := ord.Price.Mul(one.Add(o.Offset)).Round(4)
	favourable, breakout := below, above
	if ord.Side == common.Sell {
		favourable, breakout = above, below
	}
	ord.Type = o.Type
	switch o.Type {
	case order.Limit:
		ord.LimitPrice = favourable
	case order.Stop:
		ord.StopPrice = breakout
	case order.StopLimit:
		ord.StopPrice = breakout
		ord.LimitPrice = breakout
	}
}

func newCore(settings Settings, c Components) (*core, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(settings.Symbols) == 0 {
		return nil, errNoSymbols
	}
	if err := settings.OrderStyle.Validate(); err != nil {
		return nil, err
	}
	symbols := make([]string, len(settings.Symbols))
	for i := range settings.Symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(settings.Symbols[i]))
	}
	sort.Strings(symbols)
	settings.Symbols = symbols
	c.Statistic.SetStrategyName(c.Strategy.Name())
	return &core{
		Components: c,
		settings:   settings,
		queue:      &eventholder.Holder{},
		data:       &data.HandlerPerSymbol{},
		lastPrices: make(map[string]decimal.Decimal),
		bars:       make(map[string]*kline.Kline),
	}, nil
}

// runCycle enqueues the bars of one timestamp in symbol order, drains the
// queue and marks the portfolio to market at markTime. A failing event is
// logged and dropped, the cycle carries on with the rest of the queue
func (c *core) runCycle(ctx context.Context, bars []*kline.Kline, markTime time.Time) {
	c.cycle++
	c.report = &monitor.CycleReport{Cycle: c.cycle, Time: markTime}
	clear(c.bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Symbol < bars[j].Symbol })
	for i := range bars {
		if err := c.queue.AppendEvent(bars[i]); err != nil {
			c.recordError(fmt.Errorf("%v bar at %v: %w", bars[i].Symbol, bars[i].Time, err))
		}
	}
	for ev := c.queue.NextEvent(); ev != nil; ev = c.queue.NextEvent() {
		if err := c.handleEvent(ctx, ev); err != nil {
			c.recordError(fmt.Errorf("%v %v %T dropped: %w", ev.GetTime().Format(time.DateTime), ev.GetSymbol(), ev, err))
		}
	}

	point, err := c.Portfolio.MarkToMarket(markTime, c.lastPrices)
	if err != nil {
		c.recordError(fmt.Errorf("mark to market at %v: %w", markTime, err))
	}
	c.report.Equity = point
	c.report.Summary = c.Portfolio.Summary()
	c.report.Holdings = c.Portfolio.Holdings()

	stop, reason := c.Risk.ShouldStopTrading(c.Portfolio.Snapshot())
	if stop != c.stopped {
		if stop {
			log.Warnf(common.Risk, "%v trading halted: %v", markTime.Format(time.DateTime), reason)
			c.stopReason = reason
		} else {
			log.Infof(common.Risk, "%v trading conditions recovered", markTime.Format(time.DateTime))
		}
		c.stopped = stop
	}
	c.report.StopTrading = stop
	c.report.StopReason = reason
	if c.Notifier != nil {
		c.Notifier.Notify(c.report)
	}
}

func (c *core) recordError(err error) {
	log.Error(common.Backtester, err)
	c.report.Errors = append(c.report.Errors, err.Error())
}

// handleEvent dispatches an event to the component that consumes it
func (c *core) handleEvent(ctx context.Context, e common.EventHandler) error {
	switch ev := e.(type) {
	case *kline.Kline:
		return c.onBar(ctx, ev)
	case *signal.Signal:
		return c.onSignal(ev)
	case *order.Order:
		return c.onOrder(ctx, ev)
	case *fill.Fill:
		return c.onFill(ev)
	default:
		return fmt.Errorf("%w %T", common.ErrInvalidDataType, e)
	}
}

// onBar records the bar, lets the broker re-evaluate resting orders and asks
// the strategy for a signal
func (c *core) onBar(ctx context.Context, bar *kline.Kline) error {
	if err := c.Statistic.SetupEventForTime(bar); err != nil {
		return err
	}
	c.lastPrices[bar.Symbol] = bar.Close
	c.bars[bar.Symbol] = bar

	fills, err := c.Exchange.OnBar(ctx, bar)
	if err != nil {
		c.recordError(fmt.Errorf("%v re-evaluating resting orders: %w", bar.Symbol, err))
	}
	for i := range fills {
		if err = c.queue.AppendEvent(fills[i]); err != nil {
			return err
		}
	}

	s, err := c.signalFor(bar)
	if err != nil {
		return fmt.Errorf("strategy %v: %w", c.Strategy.Name(), err)
	}
	if s == nil {
		return nil
	}
	return c.queue.AppendEvent(s)
}

// onSignal passes an actionable signal through the portfolio and risk checks
func (c *core) onSignal(s *signal.Signal) error {
	if s.IsHold() {
		return nil
	}
	o, rejection, err := c.Portfolio.OnSignal(s)
	if err != nil {
		return err
	}
	c.report.Signals = append(c.report.Signals, *s)
	if s.IsHold() {
		log.Debugf(common.Portfolio, "%v %v signal ignored: %v", s.Time.Format(time.DateTime), s.Symbol, s.GetReason())
		return nil
	}
	if err = c.Statistic.SetEventForOffset(s); err != nil {
		return err
	}
	if rejection != nil {
		c.report.Rejections = append(c.report.Rejections, monitor.Rejection{
			Time:      s.Time,
			Symbol:    s.Symbol,
			Direction: s.Direction.String(),
			Quantity:  s.Quantity,
			Rejection: *rejection,
		})
		return nil
	}
	c.settings.OrderStyle.Apply(o)
	return c.queue.AppendEvent(o)
}

// onOrder submits the order against the symbol's bar of the current cycle. A
// failed submission releases the reserved cash and is never retried
func (c *core) onOrder(ctx context.Context, o *order.Order) error {
	bar, ok := c.bars[o.Symbol]
	if !ok {
		c.Portfolio.ReleaseReservation(o.ID)
		return fmt.Errorf("%w %v", errNoCurrentBar, o.Symbol)
	}
	f, err := c.Exchange.Submit(ctx, o, bar)
	if err != nil {
		c.Portfolio.ReleaseReservation(o.ID)
		if o.Status != order.Rejected {
			o.Status = order.Rejected
			o.AppendReason(err.Error())
		}
		c.report.Orders = append(c.report.Orders, *o)
		return fmt.Errorf("order %v rejected: %w", o.ID, err)
	}
	c.report.Orders = append(c.report.Orders, *o)
	if err = c.Statistic.SetEventForOffset(o); err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	return c.queue.AppendEvent(f)
}

// onFill books the fill in the portfolio
func (c *core) onFill(f *fill.Fill) error {
	if err := c.Portfolio.ApplyFill(f); err != nil {
		return err
	}
	c.report.Fills = append(c.report.Fills, *f)
	log.Infof(common.Exchange, "%v %v %v %v @ %v commission %v", f.Time.Format(time.DateTime), f.Symbol, f.Side, f.Quantity, f.Price.StringFixed(2), f.Commission.StringFixed(2))
	return c.Statistic.SetEventForOffset(f)
}

// finish warns about orders that never triggered and computes the bundle
func (c *core) finish(mode string, start, end time.Time) (*report.Bundle, error) {
	pending := c.Exchange.PendingOrders()
	for i := range pending {
		log.Warnf(common.Backtester, "%v %v %v order %v of %v never triggered and is excluded from the results",
			pending[i].Symbol, pending[i].Type, pending[i].Side, pending[i].ID, pending[i].Quantity)
	}
	curve := c.Portfolio.EquityCurve()
	trades := c.Portfolio.Trades()
	b := &report.Bundle{
		Mode:           mode,
		Strategy:       c.Strategy.Name(),
		Symbols:        c.settings.Symbols,
		StartDate:      start,
		EndDate:        end,
		GeneratedAt:    time.Now().UTC(),
		InitialCapital: c.Portfolio.InitialCapital(),
		FinalEquity:    c.Portfolio.InitialCapital(),
		Statistics:     c.Statistic,
		Summary:        c.Portfolio.Summary(),
		Trades:         trades,
		EquityCurve:    curve,
		PendingOrders:  pending,
		StopReason:     c.stopReason,
	}
	if len(curve) == 0 {
		log.Warnf(common.Backtester, "no cycles completed, no statistics calculated")
		return b, nil
	}
	b.FinalEquity = curve[len(curve)-1].TotalEquity
	if err := c.Statistic.CalculateAllResults(c.Portfolio.InitialCapital(), curve, trades); err != nil {
		return nil, err
	}
	c.Statistic.PrintTotalResults()
	return b, nil
}
