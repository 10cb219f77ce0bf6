package fee

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseType converts a configured commission type, defaulting to flat
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", Flat:
		return Flat, nil
	case Proportional, "percent", "percentage":
		return Proportional, nil
	}
	return "", fmt.Errorf("%w %q", errUnknownType, s)
}

// Validate checks the commission can be charged
func (m Model) Validate() error {
	if m.Type != Flat && m.Type != Proportional {
		return fmt.Errorf("%w %q", errUnknownType, m.Type)
	}
	if m.Value.IsNegative() {
		return fmt.Errorf("%w, received %v", errNegativeFeeValue, m.Value)
	}
	return nil
}

// Calculate returns the commission of a fill of quantity at price
func (m Model) Calculate(price decimal.Decimal, quantity int64) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	if m.Type == Proportional {
		return price.Mul(decimal.NewFromInt(quantity)).Mul(m.Value)
	}
	return m.Value
}
