package fee

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Type decides how commission is charged
type Type string

const (
	// Flat charges the same amount on every fill
	Flat Type = "flat"
	// Proportional charges a fraction of the fill's value
	Proportional Type = "proportional"
)

var (
	errUnknownType      = errors.New("unknown commission type")
	errNegativeFeeValue = errors.New("commission cannot be negative")
)

// Model is the commission charged on each fill
type Model struct {
	Type  Type            `json:"type" mapstructure:"type"`
	Value decimal.Decimal `json:"value" mapstructure:"value"`
}
