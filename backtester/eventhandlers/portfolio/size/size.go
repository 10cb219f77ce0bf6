package size

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Setup validates the sizing limits
func Setup(maxPositionSize, maxLossPerTrade, stopLoss decimal.Decimal) (*Size, error) {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"max position size":  maxPositionSize,
		"max loss per trade": maxLossPerTrade,
		"stop loss":          stopLoss,
	} {
		if !v.IsPositive() || v.GreaterThan(one) {
			return nil, fmt.Errorf("%w %v must be within (0, 1], received %v", errInvalidSizingLimit, name, v)
		}
	}
	return &Size{
		MaxPositionSize: maxPositionSize,
		MaxLossPerTrade: maxLossPerTrade,
		StopLoss:        stopLoss,
	}, nil
}

// SuggestQuantity returns the number of whole shares to buy at price so that
// hitting the stop loses no more than MaxLossPerTrade of equity, capped so
// the position never exceeds MaxPositionSize of equity
func (s *Size) SuggestQuantity(equity, price decimal.Decimal) int64 {
	if !equity.IsPositive() || !price.IsPositive() {
		return 0
	}
	riskPerShare := price.Mul(s.StopLoss)
	if riskPerShare.IsZero() {
		return 0
	}
	byRisk := equity.Mul(s.MaxLossPerTrade).Div(riskPerShare).Floor()
	byPosition := equity.Mul(s.MaxPositionSize).Div(price).Floor()
	return decimal.Min(byRisk, byPosition).IntPart()
}
