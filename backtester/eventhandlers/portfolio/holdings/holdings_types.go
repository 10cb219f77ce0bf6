package holdings

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errSymbolMismatch  = errors.New("fill symbol does not match holding")
	errInvalidQuantity = errors.New("fill quantity must be positive")
	errInvalidSide     = errors.New("fill side must be BUY or SELL")
)

// Holding is the position held in one symbol. Quantity is signed, a
// negative quantity is a short position and zero is flat
type Holding struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average-cost"`
	LastPrice   decimal.Decimal `json:"last-price"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Realisation is the closing portion of a fill that reduced a holding
type Realisation struct {
	Quantity    int64
	RealisedPNL decimal.Decimal
}

// Snapshot is a read only copy of portfolio state handed to risk checks
type Snapshot struct {
	Time time.Time `json:"time"`
	// Cash is the cash available to new orders, net of any cash reserved
	// for orders that have been approved but not yet filled
	Cash     decimal.Decimal    `json:"cash"`
	Equity   decimal.Decimal    `json:"equity"`
	Peak     decimal.Decimal    `json:"peak"`
	Holdings map[string]Holding `json:"holdings"`
	// PendingBuy and PendingSell are the per symbol quantities of approved
	// orders that have not filled yet
	PendingBuy  map[string]int64 `json:"pending-buy,omitempty"`
	PendingSell map[string]int64 `json:"pending-sell,omitempty"`
}
