package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// now is replaced in tests
var now = time.Now

// ValidateSymbol checks a ticker is 1 to 5 letters
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w, symbol cannot be empty", ErrInvalidSymbol)
	}
	if len(symbol) > 5 {
		return fmt.Errorf("%w %q, must be 5 characters or less", ErrInvalidSymbol, symbol)
	}
	for _, r := range symbol {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return fmt.Errorf("%w %q, must contain only letters", ErrInvalidSymbol, symbol)
		}
	}
	return nil
}

// ValidateSymbols checks the list is non-empty and every ticker is valid
func ValidateSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("%w, symbols list cannot be empty", ErrInvalidSymbol)
	}
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if err := ValidateSymbol(s); err != nil {
			return err
		}
		if seen[strings.ToUpper(s)] {
			return fmt.Errorf("%w %q listed twice", ErrInvalidSymbol, s)
		}
		seen[strings.ToUpper(s)] = true
	}
	return nil
}

// ValidateDates checks start is before end and end is not in the future
func ValidateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w, start and end dates are required", ErrInvalidDates)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w, start %v must be before end %v", ErrInvalidDates, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if end.After(now()) {
		return fmt.Errorf("%w, end %v cannot be in the future", ErrInvalidDates, end.Format(time.DateOnly))
	}
	return nil
}

// ValidateCapital checks the starting balance is at least MinimumCapital
func ValidateCapital(capital decimal.Decimal) error {
	if !capital.IsPositive() {
		return fmt.Errorf("%w %v, must be positive", ErrInvalidCapital, capital)
	}
	if capital.LessThan(MinimumCapital) {
		return fmt.Errorf("%w %v, must be at least %v", ErrInvalidCapital, capital, MinimumCapital)
	}
	return nil
}

// ValidateQuantity checks an order quantity is positive
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w %v, must be positive", ErrInvalidQuantity, quantity)
	}
	return nil
}

// ValidatePrice checks a price is positive
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w %v, must be positive", ErrInvalidPrice, price)
	}
	return nil
}

// ValidatePercentage checks a fraction lies within [lower, upper]
func ValidatePercentage(value, lower, upper decimal.Decimal) error {
	if value.LessThan(lower) || value.GreaterThan(upper) {
		return fmt.Errorf("%w %v, must be between %v and %v", ErrInvalidPercentage, value, lower, upper)
	}
	return nil
}
