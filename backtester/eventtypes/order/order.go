package order

import (
	"fmt"

	"github.com/thrasher-corp/papertrader/backtester/common"
)

// SetDirection sets the side of the order
func (o *Order) SetDirection(d common.Direction) {
	o.Side = d
}

// GetDirection returns the side of the order
func (o *Order) GetDirection() common.Direction {
	return o.Side
}

// IsOrder returns whether the event is an order type
func (o *Order) IsOrder() bool {
	return true
}

// IsTerminal returns true once the order can no longer change state
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case Filled, Rejected, Cancelled:
		return true
	}
	return false
}

// Validate ensures the order is self consistent
func (o *Order) Validate() error {
	if o == nil {
		return fmt.Errorf("%w nil order", ErrInvalidOrder)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w missing symbol", ErrInvalidOrder)
	}
	if !common.CanTransact(o.Side) {
		return fmt.Errorf("%w side %q", ErrInvalidOrder, o.Side)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w quantity %v must be a positive integer", ErrInvalidOrder, o.Quantity)
	}
	needsLimit := o.Type == Limit || o.Type == StopLimit
	needsStop := o.Type == Stop || o.Type == StopLimit
	switch o.Type {
	case Market, Limit, Stop, StopLimit:
	default:
		return fmt.Errorf("%w type %q", ErrInvalidOrder, o.Type)
	}
	if needsLimit != o.LimitPrice.IsPositive() {
		return fmt.Errorf("%w %v order limit price %v", ErrInvalidOrder, o.Type, o.LimitPrice)
	}
	if needsStop != o.StopPrice.IsPositive() {
		return fmt.Errorf("%w %v order stop price %v", ErrInvalidOrder, o.Type, o.StopPrice)
	}
	return nil
}
