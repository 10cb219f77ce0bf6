package kline

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GetOpenPrice returns the open price of a bar
func (k *Kline) GetOpenPrice() decimal.Decimal {
	return k.Open
}

// GetHighPrice returns the high price of a bar
func (k *Kline) GetHighPrice() decimal.Decimal {
	return k.High
}

// GetLowPrice returns the low price of a bar
func (k *Kline) GetLowPrice() decimal.Decimal {
	return k.Low
}

// GetClosePrice returns the closing price of a bar
func (k *Kline) GetClosePrice() decimal.Decimal {
	return k.Close
}

// Validate ensures the bar can be replayed
func (k *Kline) Validate() error {
	if k == nil {
		return fmt.Errorf("%w nil bar", ErrInvalidBar)
	}
	if k.Symbol == "" {
		return fmt.Errorf("%w missing symbol", ErrInvalidBar)
	}
	if k.Time.IsZero() {
		return fmt.Errorf("%w %v missing timestamp", ErrInvalidBar, k.Symbol)
	}
	if !k.Close.IsPositive() || !k.Low.IsPositive() {
		return fmt.Errorf("%w %v %v non-positive price", ErrInvalidBar, k.Symbol, k.Time)
	}
	if k.High.LessThan(k.Low) {
		return fmt.Errorf("%w %v %v high %v below low %v", ErrInvalidBar, k.Symbol, k.Time, k.High, k.Low)
	}
	if k.Close.GreaterThan(k.High) || k.Close.LessThan(k.Low) {
		return fmt.Errorf("%w %v %v close %v outside range %v-%v", ErrInvalidBar, k.Symbol, k.Time, k.Close, k.Low, k.High)
	}
	if k.Volume.IsNegative() {
		return fmt.Errorf("%w %v %v negative volume", ErrInvalidBar, k.Symbol, k.Time)
	}
	return nil
}
