package signal

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
)

// IsSignal returns whether the event is a signal type
func (s *Signal) IsSignal() bool {
	return true
}

// SetDirection sets the direction
func (s *Signal) SetDirection(d common.Direction) {
	s.Direction = d
}

// GetDirection returns the direction
func (s *Signal) GetDirection() common.Direction {
	return s.Direction
}

// GetPrice returns the reference price
func (s *Signal) GetPrice() decimal.Decimal {
	return s.Price
}

// SetPrice sets the reference price
func (s *Signal) SetPrice(p decimal.Decimal) {
	s.Price = p
}

// GetQuantity returns the suggested quantity
func (s *Signal) GetQuantity() int64 {
	return s.Quantity
}

// SetQuantity sets the suggested quantity
func (s *Signal) SetQuantity(q int64) {
	s.Quantity = q
}

// IsHold returns true when the signal is informational only
func (s *Signal) IsHold() bool {
	return !common.CanTransact(s.Direction)
}
