package risk

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
)

// Rule identifies the check that rejected a signal
type Rule string

// Rules in the order they are evaluated
const (
	RuleInvalidSignal Rule = "invalid_signal"
	RuleCash          Rule = "cash"
	RulePositionSize  Rule = "position_size"
	RuleDrawdown      Rule = "drawdown"
)

var (
	// ErrInvalidRiskLimit is returned when a limit is outside of its domain
	ErrInvalidRiskLimit = errors.New("invalid risk limit")
)

// Rejection is the structured outcome of a failed risk check. It is an
// expected result and not an error
type Rejection struct {
	Rule   Rule   `json:"rule"`
	Reason string `json:"reason"`
}

// Limits are the configured bounds every signal is checked against
type Limits struct {
	// MaxPositionSize is the largest fraction of equity one position may hold
	MaxPositionSize decimal.Decimal
	// MaxDrawdown halts new buying once exceeded
	MaxDrawdown decimal.Decimal
	// Slippage and Commission estimate the cost of a buy before it fills
	Slippage   decimal.Decimal
	Commission fee.Model
}

// Manager evaluates signals against the limits
type Manager struct {
	limits Limits
}
