package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/log"
)

// Setup creates a portfolio manager instance holding only cash
func Setup(initialCapital decimal.Decimal, sh SizeHandler, r RiskHandler) (*Portfolio, error) {
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("%w, received %v", errInitialCapitalInvalid, initialCapital)
	}
	if sh == nil {
		return nil, errSizeManagerUnset
	}
	if r == nil {
		return nil, errRiskManagerUnset
	}
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		peak:           initialCapital,
		reserved:       make(map[string]decimal.Decimal),
		pending:        make(map[string]pendingOrder),
		holdings:       make(map[string]*holdings.Holding),
		sizeManager:    sh,
		riskManager:    r,
	}, nil
}

// InitialCapital returns the cash the portfolio started with
func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

// OnSignal receives the event from the strategy on whether it has signalled
// to buy, do nothing or sell. A buy while already long or a sell while flat
// or a sell of a holding already being sold is turned into a do nothing
// signal. Otherwise the signal is sized when the strategy left sizing to the
// portfolio and handed to the risk manager. An approved order is tracked as
// pending, and a buy reserves its estimated cost, until it fills or is released
func (p *Portfolio) OnSignal(ev *signal.Signal) (*order.Order, *risk.Rejection, error) {
	if ev == nil {
		return nil, nil, common.ErrNilEvent
	}
	if ev.IsHold() {
		return nil, nil, nil
	}
	p.m.Lock()
	defer p.m.Unlock()

	held := p.heldQuantity(ev.Symbol)
	sellable := held - p.pendingQuantity(ev.Symbol, common.Sell)
	switch {
	case ev.Direction == common.Buy && held > 0:
		ev.SetDirection(common.DoNothing)
		ev.AppendReasonf("already holding %v %v", held, ev.Symbol)
		return nil, nil, nil
	case ev.Direction == common.Sell && held <= 0:
		ev.SetDirection(common.DoNothing)
		ev.AppendReasonf("no %v position to sell", ev.Symbol)
		return nil, nil, nil
	case ev.Direction == common.Sell && sellable <= 0:
		ev.SetDirection(common.DoNothing)
		ev.AppendReasonf("all %v %v already pending sale", held, ev.Symbol)
		return nil, nil, nil
	}

	snap := p.snapshot()
	if ev.Quantity == 0 {
		if ev.Direction == common.Sell {
			ev.SetQuantity(sellable)
		} else {
			ev.SetQuantity(p.sizeManager.SuggestQuantity(snap.Equity, ev.Price))
		}
	}
	o, rejection := p.riskManager.Evaluate(ev, snap)
	if rejection != nil {
		log.Warnf(common.Risk, "%v %v %v of %v rejected by %v rule: %v", ev.Time.Format(common.SimpleTimeFormat), ev.Symbol, ev.Direction, ev.Quantity, rejection.Rule, rejection.Reason)
		switch ev.Direction {
		case common.Buy:
			ev.SetDirection(common.CouldNotBuy)
		case common.Sell:
			ev.SetDirection(common.CouldNotSell)
		}
		ev.AppendReason(rejection.Reason)
		return nil, rejection, nil
	}
	p.pending[o.ID] = pendingOrder{symbol: o.Symbol, side: o.Side, quantity: o.Quantity}
	if o.Side == common.Buy {
		p.reserved[o.ID] = p.riskManager.EstimateCost(o.Price, o.Quantity)
	}
	return o, nil, nil
}

// ReleaseReservation frees the cash and quantity held back for an order that
// will not fill
func (p *Portfolio) ReleaseReservation(orderID string) {
	p.m.Lock()
	delete(p.reserved, orderID)
	delete(p.pending, orderID)
	p.m.Unlock()
}

// ApplyFill books a fill against cash and the symbol's holding. A closing
// fill appends a trade to the ledger. A buy that cannot be paid for is
// refused and changes nothing
func (p *Portfolio) ApplyFill(f *fill.Fill) error {
	if f == nil {
		return common.ErrNilEvent
	}
	p.m.Lock()
	defer p.m.Unlock()

	delete(p.reserved, f.OrderID)
	delete(p.pending, f.OrderID)
	cost := f.Cost()
	if f.Side == common.Buy && cost.GreaterThan(p.cash) {
		return fmt.Errorf("%w %v buy of %v costs %v with %v cash", errInsufficientFunds, f.Symbol, f.Quantity, cost, p.cash)
	}
	h, ok := p.holdings[f.Symbol]
	if !ok {
		h = holdings.Create(f.Symbol)
	}
	realised, err := h.Update(f)
	if err != nil {
		return err
	}
	p.holdings[f.Symbol] = h
	if f.Side == common.Buy {
		p.cash = p.cash.Sub(cost)
	} else {
		p.cash = p.cash.Add(cost)
	}
	if realised != nil {
		p.trades = append(p.trades, Trade{
			OrderID:     f.OrderID,
			Symbol:      f.Symbol,
			Side:        f.Side,
			Quantity:    realised.Quantity,
			Price:       f.Price,
			Time:        f.Time,
			Commission:  f.Commission,
			RealisedPNL: realised.RealisedPNL,
		})
	}
	if h.IsFlat() {
		delete(p.holdings, f.Symbol)
	}
	return nil
}

// MarkToMarket updates the last price of every held symbol present in prices
// and appends an equity point for the cycle. Points are never rewritten so
// the time must not precede the previous point
func (p *Portfolio) MarkToMarket(t time.Time, prices map[string]decimal.Decimal) (EquityPoint, error) {
	p.m.Lock()
	defer p.m.Unlock()
	if len(p.curve) > 0 && t.Before(p.curve[len(p.curve)-1].Time) {
		return EquityPoint{}, fmt.Errorf("%w %v before %v", errTimeInPast, t, p.curve[len(p.curve)-1].Time)
	}
	for symbol, price := range prices {
		if !price.IsPositive() {
			return EquityPoint{}, fmt.Errorf("%w %v %v", errNonPositivePrice, symbol, price)
		}
	}
	for symbol, price := range prices {
		if h, ok := p.holdings[symbol]; ok {
			h.LastPrice = price
			h.Timestamp = t
		}
	}
	positionsValue := p.positionsValue()
	point := EquityPoint{
		Time:           t,
		Cash:           p.cash,
		PositionsValue: positionsValue,
		TotalEquity:    p.cash.Add(positionsValue),
	}
	if point.TotalEquity.GreaterThan(p.peak) {
		p.peak = point.TotalEquity
	}
	p.curve = append(p.curve, point)
	return point, nil
}

// Snapshot returns a copy of the current state for risk checks
func (p *Portfolio) Snapshot() *holdings.Snapshot {
	p.m.RLock()
	defer p.m.RUnlock()
	return p.snapshot()
}

func (p *Portfolio) snapshot() *holdings.Snapshot {
	available := p.cash
	for _, v := range p.reserved {
		available = available.Sub(v)
	}
	snap := &holdings.Snapshot{
		Cash:     available,
		Equity:   p.cash.Add(p.positionsValue()),
		Peak:     p.peak,
		Holdings: make(map[string]holdings.Holding, len(p.holdings)),
	}
	for _, o := range p.pending {
		switch o.side {
		case common.Buy:
			if snap.PendingBuy == nil {
				snap.PendingBuy = make(map[string]int64)
			}
			snap.PendingBuy[o.symbol] += o.quantity
		case common.Sell:
			if snap.PendingSell == nil {
				snap.PendingSell = make(map[string]int64)
			}
			snap.PendingSell[o.symbol] += o.quantity
		}
	}
	if len(p.curve) > 0 {
		snap.Time = p.curve[len(p.curve)-1].Time
	}
	for k, v := range p.holdings {
		snap.Holdings[k] = *v
	}
	return snap
}

// Holdings returns a copy of every open holding ordered by symbol
func (p *Portfolio) Holdings() []holdings.Holding {
	p.m.RLock()
	defer p.m.RUnlock()
	resp := make([]holdings.Holding, 0, len(p.holdings))
	for _, v := range p.holdings {
		resp = append(resp, *v)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	return resp
}

// Trades returns a copy of the trade ledger
func (p *Portfolio) Trades() []Trade {
	p.m.RLock()
	defer p.m.RUnlock()
	resp := make([]Trade, len(p.trades))
	copy(resp, p.trades)
	return resp
}

// EquityCurve returns a copy of the equity curve
func (p *Portfolio) EquityCurve() []EquityPoint {
	p.m.RLock()
	defer p.m.RUnlock()
	resp := make([]EquityPoint, len(p.curve))
	copy(resp, p.curve)
	return resp
}

// Summary returns the current state of the portfolio
func (p *Portfolio) Summary() Summary {
	p.m.RLock()
	defer p.m.RUnlock()
	snap := p.snapshot()
	s := Summary{
		Cash:           p.cash,
		PositionsValue: p.positionsValue(),
		TotalEquity:    snap.Equity,
		Positions:      len(p.holdings),
		Trades:         len(p.trades),
		PeakEquity:     p.peak,
		Drawdown:       snap.Drawdown(),
	}
	for i := range p.trades {
		s.RealisedPNL = s.RealisedPNL.Add(p.trades[i].RealisedPNL)
	}
	for _, h := range p.holdings {
		s.UnrealisedPNL = s.UnrealisedPNL.Add(h.UnrealisedPNL())
	}
	s.TotalReturn = s.TotalEquity.Div(p.initialCapital).Sub(decimal.NewFromInt(1))
	return s
}

func (p *Portfolio) heldQuantity(symbol string) int64 {
	if h, ok := p.holdings[symbol]; ok {
		return h.Quantity
	}
	return 0
}

func (p *Portfolio) pendingQuantity(symbol string, side common.Direction) int64 {
	var total int64
	for _, o := range p.pending {
		if o.symbol == symbol && o.side == side {
			total += o.quantity
		}
	}
	return total
}

func (p *Portfolio) positionsValue() decimal.Decimal {
	total := decimal.Zero
	for _, h := range p.holdings {
		total = total.Add(h.MarketValue())
	}
	return total
}
