package risk

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

// Setup validates the limits and returns a risk manager
func Setup(l Limits) (*Manager, error) {
	one := decimal.NewFromInt(1)
	if !l.MaxPositionSize.IsPositive() || l.MaxPositionSize.GreaterThan(one) {
		return nil, fmt.Errorf("%w max position size must be within (0, 1], received %v", ErrInvalidRiskLimit, l.MaxPositionSize)
	}
	if !l.MaxDrawdown.IsPositive() || l.MaxDrawdown.GreaterThan(one) {
		return nil, fmt.Errorf("%w max drawdown must be within (0, 1], received %v", ErrInvalidRiskLimit, l.MaxDrawdown)
	}
	if err := slippage.Validate(l.Slippage); err != nil {
		return nil, fmt.Errorf("%w %w", ErrInvalidRiskLimit, err)
	}
	if err := l.Commission.Validate(); err != nil {
		return nil, fmt.Errorf("%w %w", ErrInvalidRiskLimit, err)
	}
	return &Manager{limits: l}, nil
}

// Limits returns the limits the manager enforces
func (m *Manager) Limits() Limits {
	return m.limits
}

// EstimateCost returns the cash a buy of quantity at price is expected to
// consume once slippage and commission are applied
func (m *Manager) EstimateCost(price decimal.Decimal, quantity int64) decimal.Decimal {
	fillPrice := slippage.ApplySlippageToPrice(common.Buy, price, m.limits.Slippage)
	return fillPrice.Mul(decimal.NewFromInt(quantity)).Add(m.limits.Commission.Calculate(fillPrice, quantity))
}

// Evaluate runs the signal through the cash, position size and drawdown
// checks in order, stopping at the first failure. Quantities of orders still
// pending count against the holding they will change. An approved signal becomes
// a market order whose quantity may be smaller than the signal suggested
func (m *Manager) Evaluate(s *signal.Signal, snap *holdings.Snapshot) (*order.Order, *Rejection) {
	if s == nil || snap == nil {
		return nil, &Rejection{Rule: RuleInvalidSignal, Reason: common.ErrNilArguments.Error()}
	}
	if !common.CanTransact(s.Direction) {
		return nil, &Rejection{Rule: RuleInvalidSignal, Reason: fmt.Sprintf("direction %v cannot be ordered", s.Direction)}
	}
	if s.Quantity <= 0 {
		return nil, &Rejection{Rule: RuleInvalidSignal, Reason: fmt.Sprintf("quantity %v must be positive", s.Quantity)}
	}
	if !s.Price.IsPositive() {
		return nil, &Rejection{Rule: RuleInvalidSignal, Reason: fmt.Sprintf("reference price %v must be positive", s.Price)}
	}
	quantity := s.Quantity
	held := snap.Held(s.Symbol)

	if s.Direction == common.Buy {
		if cost := m.EstimateCost(s.Price, quantity); cost.GreaterThan(snap.Cash) {
			return nil, &Rejection{Rule: RuleCash, Reason: fmt.Sprintf("cost %v exceeds available cash %v", cost.StringFixed(2), snap.Cash.StringFixed(2))}
		}
	} else if sellable := snap.Sellable(s.Symbol); quantity > sellable {
		return nil, &Rejection{Rule: RuleCash, Reason: fmt.Sprintf("sell quantity %v exceeds held quantity %v less %v pending sale", quantity, held, held-sellable)}
	}

	if s.Direction == common.Buy {
		committed := snap.Committed(s.Symbol)
		maxValue := snap.Equity.Mul(m.limits.MaxPositionSize)
		resulting := s.Price.Mul(decimal.NewFromInt(committed + quantity))
		if resulting.GreaterThan(maxValue) {
			reduced := maxValue.Div(s.Price).Floor().IntPart() - committed
			if reduced <= 0 {
				return nil, &Rejection{Rule: RulePositionSize, Reason: fmt.Sprintf("position of %v already at the %v limit", s.Symbol, maxValue.StringFixed(2))}
			}
			quantity = reduced
		}
	}

	if s.Direction == common.Buy {
		if dd := snap.Drawdown(); dd.GreaterThan(m.limits.MaxDrawdown) {
			return nil, &Rejection{Rule: RuleDrawdown, Reason: fmt.Sprintf("drawdown %v exceeds %v", dd.StringFixed(4), m.limits.MaxDrawdown)}
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, &Rejection{Rule: RuleInvalidSignal, Reason: err.Error()}
	}
	o := &order.Order{
		Base: event.Base{
			Offset: s.Offset,
			Time:   s.Time,
			Symbol: s.Symbol,
			Reason: s.Reason,
		},
		ID:       id.String(),
		Type:     order.Market,
		Side:     s.Direction,
		Quantity: quantity,
		Price:    s.Price,
		Status:   order.Pending,
	}
	if quantity < s.Quantity {
		o.AppendReasonf("quantity reduced from %v to %v by position size limit", s.Quantity, quantity)
	}
	return o, nil
}

// ShouldStopTrading reports whether trading should halt entirely
func (m *Manager) ShouldStopTrading(snap *holdings.Snapshot) (bool, string) {
	if snap == nil {
		return false, ""
	}
	if dd := snap.Drawdown(); dd.GreaterThan(m.limits.MaxDrawdown) {
		return true, fmt.Sprintf("max drawdown exceeded: %v%%", dd.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	if snap.Cash.IsNegative() {
		return true, "negative cash balance"
	}
	return false, ""
}
