package monitor

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/log"
)

// warnFraction of a limit raises a warning before the limit itself is breached
var warnFraction = decimal.NewFromFloat(0.8)

// NewAlerts returns an empty alert list
func NewAlerts() *Alerts {
	return &Alerts{now: time.Now}
}

// AddHandler registers h to be called for every alert raised from now on
func (a *Alerts) AddHandler(h AlertHandler) {
	if h == nil {
		return
	}
	a.m.Lock()
	a.handlers = append(a.handlers, h)
	a.m.Unlock()
}

// Raise records an alert and passes it to every handler
func (a *Alerts) Raise(level AlertLevel, message string, details map[string]any) Alert {
	alert := Alert{
		Time:    a.now().UTC(),
		Level:   level,
		Message: message,
		Details: details,
	}
	a.m.Lock()
	a.alerts = append(a.alerts, alert)
	handlers := make([]AlertHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.m.Unlock()

	switch level {
	case Critical, Error:
		log.Errorf(common.Monitor, "[%v] %v", level, message)
	case Warning:
		log.Warnf(common.Monitor, "[%v] %v", level, message)
	default:
		log.Infof(common.Monitor, "[%v] %v", level, message)
	}
	for i := range handlers {
		if err := handlers[i](alert); err != nil {
			log.Errorf(common.Monitor, "alert handler %d failed: %v", i, err)
		}
	}
	return alert
}

type condition struct {
	level   AlertLevel
	message string
	details map[string]any
}

// CheckDrawdown warns when the drawdown passes 80% of the limit and raises a
// critical alert once the limit is exceeded
func (a *Alerts) CheckDrawdown(drawdown, limit decimal.Decimal) bool {
	return a.raiseCondition(drawdownCondition(drawdown, limit))
}

// CheckPositionSize warns when one position is worth more than limit of the
// portfolio
func (a *Alerts) CheckPositionSize(symbol string, positionValue, portfolioValue, limit decimal.Decimal) bool {
	return a.raiseCondition(positionCondition(symbol, positionValue, portfolioValue, limit))
}

// CheckCashLevel warns when cash falls under minimum of the portfolio
func (a *Alerts) CheckCashLevel(cash, portfolioValue, minimum decimal.Decimal) bool {
	return a.raiseCondition(cashCondition(cash, portfolioValue, minimum))
}

func (a *Alerts) raiseCondition(c *condition) bool {
	if c == nil {
		return false
	}
	a.Raise(c.level, c.message, c.details)
	return true
}

func drawdownCondition(drawdown, limit decimal.Decimal) *condition {
	if !limit.IsPositive() {
		return nil
	}
	details := map[string]any{
		"drawdown": drawdown.String(),
		"limit":    limit.String(),
	}
	switch {
	case drawdown.GreaterThan(limit):
		return &condition{Critical, fmt.Sprintf("drawdown %v%% exceeds limit %v%%", percent(drawdown), percent(limit)), details}
	case drawdown.GreaterThan(limit.Mul(warnFraction)):
		return &condition{Warning, fmt.Sprintf("drawdown %v%% approaching limit %v%%", percent(drawdown), percent(limit)), details}
	}
	return nil
}

func positionCondition(symbol string, positionValue, portfolioValue, limit decimal.Decimal) *condition {
	if !limit.IsPositive() || !portfolioValue.IsPositive() {
		return nil
	}
	fraction := positionValue.Abs().Div(portfolioValue)
	if !fraction.GreaterThan(limit) {
		return nil
	}
	return &condition{
		Warning,
		fmt.Sprintf("position %v is %v%% of the portfolio, limit %v%%", symbol, percent(fraction), percent(limit)),
		map[string]any{
			"symbol":          symbol,
			"position-value":  positionValue.String(),
			"portfolio-value": portfolioValue.String(),
			"limit":           limit.String(),
		},
	}
}

func cashCondition(cash, portfolioValue, minimum decimal.Decimal) *condition {
	if !minimum.IsPositive() || !portfolioValue.IsPositive() {
		return nil
	}
	fraction := cash.Div(portfolioValue)
	if !fraction.LessThan(minimum) {
		return nil
	}
	return &condition{
		Warning,
		fmt.Sprintf("cash is %v%% of the portfolio, minimum %v%%", percent(fraction), percent(minimum)),
		map[string]any{
			"cash":            cash.String(),
			"portfolio-value": portfolioValue.String(),
			"minimum":         minimum.String(),
		},
	}
}

// Get returns the alerts raised so far, optionally only those of level
func (a *Alerts) Get(level AlertLevel) []Alert {
	a.m.RLock()
	defer a.m.RUnlock()
	resp := make([]Alert, 0, len(a.alerts))
	for i := range a.alerts {
		if level != "" && a.alerts[i].Level != level {
			continue
		}
		resp = append(resp, a.alerts[i])
	}
	return resp
}

// Clear removes every alert. Handlers are kept
func (a *Alerts) Clear() {
	a.m.Lock()
	a.alerts = nil
	a.m.Unlock()
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2)
}
