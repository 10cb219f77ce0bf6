package exchange

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/log"
)

// Setup returns a virtual broker charging the slippage and commission
func Setup(slippageRate decimal.Decimal, commission fee.Model, account AccountSource) (*Exchange, error) {
	if err := slippage.Validate(slippageRate); err != nil {
		return nil, err
	}
	if err := commission.Validate(); err != nil {
		return nil, err
	}
	return &Exchange{
		slippage:   slippageRate,
		commission: commission,
		account:    account,
		orders:     make(map[string]*order.Order),
	}, nil
}

// Reset forgets every order
func (e *Exchange) Reset() {
	e.m.Lock()
	e.orders = make(map[string]*order.Order)
	e.sequence = nil
	e.m.Unlock()
}

// Submit executes a market order at the bar's close moved against the order
// by slippage. Limit and stop orders always rest, the submission bar's range
// is already in the past, and fill at their limit or stop price once a later
// bar reaches it
func (e *Exchange) Submit(_ context.Context, o *order.Order, bar *kline.Kline) (*fill.Fill, error) {
	if o == nil || bar == nil {
		return nil, common.ErrNilArguments
	}
	if err := o.Validate(); err != nil {
		o.Status = order.Rejected
		o.AppendReason(err.Error())
		return nil, err
	}
	if bar.Symbol != o.Symbol {
		o.Status = order.Rejected
		return nil, fmt.Errorf("%w %v %v", errSymbolMismatch, bar.Symbol, o.Symbol)
	}
	e.m.Lock()
	defer e.m.Unlock()
	if o.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		o.ID = id.String()
	}
	if _, ok := e.orders[o.ID]; ok {
		return nil, fmt.Errorf("%w %v", errDuplicateOrder, o.ID)
	}
	o.Status = order.Pending
	e.orders[o.ID] = o
	e.sequence = append(e.sequence, o.ID)
	if o.Type == order.Market {
		return e.evaluate(o, bar), nil
	}
	log.Debugf(common.Exchange, "%v %v %v order %v resting at limit %v stop %v", bar.Time.Format(common.SimpleTimeFormat), o.Symbol, o.Type, o.ID, o.LimitPrice, o.StopPrice)
	return nil, nil
}

// OnBar re-evaluates resting orders of the bar's symbol in submission order
func (e *Exchange) OnBar(_ context.Context, bar *kline.Kline) ([]*fill.Fill, error) {
	if bar == nil {
		return nil, common.ErrNilEvent
	}
	e.m.Lock()
	defer e.m.Unlock()
	var resp []*fill.Fill
	for _, id := range e.sequence {
		o := e.orders[id]
		if o.IsTerminal() || o.Symbol != bar.Symbol {
			continue
		}
		if f := e.evaluate(o, bar); f != nil {
			resp = append(resp, f)
		}
	}
	return resp, nil
}

// evaluate fills the order against the bar when it triggers
func (e *Exchange) evaluate(o *order.Order, bar *kline.Kline) *fill.Fill {
	var price decimal.Decimal
	switch o.Type {
	case order.Market:
		price = slippage.ApplySlippageToPrice(o.Side, bar.Close, e.slippage)
	case order.Limit:
		if !limitTouched(o.Side, o.LimitPrice, bar) {
			return nil
		}
		price = o.LimitPrice
	case order.Stop:
		if !stopTriggered(o.Side, o.StopPrice, bar) {
			return nil
		}
		price = o.StopPrice
	case order.StopLimit:
		if !o.StopTriggered {
			if !stopTriggered(o.Side, o.StopPrice, bar) {
				return nil
			}
			o.StopTriggered = true
		}
		if !limitTouched(o.Side, o.LimitPrice, bar) {
			return nil
		}
		price = o.LimitPrice
	default:
		return nil
	}
	o.Status = order.Filled
	return &fill.Fill{
		Base: event.Base{
			Offset: bar.Offset,
			Time:   bar.Time,
			Symbol: o.Symbol,
			Reason: o.Reason,
		},
		OrderID:        o.ID,
		Side:           o.Side,
		Quantity:       o.Quantity,
		ReferencePrice: bar.Close,
		Price:          price,
		Commission:     e.commission.Calculate(price, o.Quantity),
	}
}

// limitTouched reports whether a buy limit at or above the low, or a sell
// limit at or below the high, was reachable within the bar
func limitTouched(side common.Direction, limit decimal.Decimal, bar *kline.Kline) bool {
	if side == common.Buy {
		return bar.Low.LessThanOrEqual(limit)
	}
	return bar.High.GreaterThanOrEqual(limit)
}

// stopTriggered reports whether a buy stop breakout above, or a sell stop
// below, was traded through within the bar
func stopTriggered(side common.Direction, stop decimal.Decimal, bar *kline.Kline) bool {
	if side == common.Buy {
		return bar.High.GreaterThanOrEqual(stop)
	}
	return bar.Low.LessThanOrEqual(stop)
}

// Cancel cancels a resting order
func (e *Exchange) Cancel(_ context.Context, id string) error {
	e.m.Lock()
	defer e.m.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return fmt.Errorf("%w %v", ErrOrderNotFound, id)
	}
	if o.IsTerminal() {
		return fmt.Errorf("%w %v %v", ErrOrderTerminal, id, o.Status)
	}
	o.Status = order.Cancelled
	return nil
}

// OrderStatus returns the status of an order
func (e *Exchange) OrderStatus(_ context.Context, id string) (order.Status, error) {
	e.m.Lock()
	defer e.m.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return "", fmt.Errorf("%w %v", ErrOrderNotFound, id)
	}
	return o.Status, nil
}

// PendingOrders returns copies of every resting order in submission order
func (e *Exchange) PendingOrders() []order.Order {
	e.m.Lock()
	defer e.m.Unlock()
	var resp []order.Order
	for _, id := range e.sequence {
		if o := e.orders[id]; !o.IsTerminal() {
			resp = append(resp, *o)
		}
	}
	return resp
}

// Positions returns the holdings of the simulated account
func (e *Exchange) Positions(_ context.Context) ([]holdings.Holding, error) {
	if e.account == nil {
		return nil, errNoAccountSource
	}
	return e.account.Holdings(), nil
}

// AccountInfo returns the cash and equity of the simulated account
func (e *Exchange) AccountInfo(_ context.Context) (*AccountInfo, error) {
	if e.account == nil {
		return nil, errNoAccountSource
	}
	snap := e.account.Snapshot()
	return &AccountInfo{
		Cash:        snap.Cash,
		Equity:      snap.Equity,
		BuyingPower: snap.Cash,
	}, nil
}
