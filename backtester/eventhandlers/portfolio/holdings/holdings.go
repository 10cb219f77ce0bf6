package holdings

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
)

// Create returns an empty holding for the symbol
func Create(symbol string) *Holding {
	return &Holding{Symbol: symbol}
}

// IsFlat returns whether nothing is held
func (h *Holding) IsFlat() bool {
	return h.Quantity == 0
}

// MarketValue returns the signed value of the holding at its last price
func (h *Holding) MarketValue() decimal.Decimal {
	return h.LastPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// UnrealisedPNL returns the profit of the holding were it closed at its last price
func (h *Holding) UnrealisedPNL() decimal.Decimal {
	return h.LastPrice.Sub(h.AverageCost).Mul(decimal.NewFromInt(h.Quantity))
}

// Update applies a fill to the holding. Growing a holding moves the average
// cost to the quantity weighted mean of the old cost and the fill price.
// Shrinking a holding realises profit on the closed quantity, less the fill's
// commission. A fill larger than the holding closes it and opens the residual
// on the other side at the fill price
func (h *Holding) Update(f *fill.Fill) (*Realisation, error) {
	if f == nil {
		return nil, common.ErrNilEvent
	}
	if f.Symbol != h.Symbol {
		return nil, fmt.Errorf("%w %v %v", errSymbolMismatch, f.Symbol, h.Symbol)
	}
	if f.Quantity <= 0 {
		return nil, fmt.Errorf("%w, received %v", errInvalidQuantity, f.Quantity)
	}
	var signed int64
	switch f.Side {
	case common.Buy:
		signed = f.Quantity
	case common.Sell:
		signed = -f.Quantity
	default:
		return nil, fmt.Errorf("%w, received %v", errInvalidSide, f.Side)
	}
	h.LastPrice = f.Price
	h.Timestamp = f.Time

	if h.Quantity == 0 || sameSign(h.Quantity, signed) {
		oldQty := decimal.NewFromInt(abs(h.Quantity))
		addQty := decimal.NewFromInt(f.Quantity)
		h.AverageCost = h.AverageCost.Mul(oldQty).Add(f.Price.Mul(addQty)).Div(oldQty.Add(addQty))
		h.Quantity += signed
		return nil, nil
	}

	closing := f.Quantity
	if abs(h.Quantity) < closing {
		closing = abs(h.Quantity)
	}
	closingQty := decimal.NewFromInt(closing)
	pnl := f.Price.Sub(h.AverageCost).Mul(closingQty)
	if h.Quantity < 0 {
		pnl = pnl.Neg()
	}
	pnl = pnl.Sub(f.Commission)

	h.Quantity += signed
	switch {
	case h.Quantity == 0:
		h.AverageCost = decimal.Zero
	case sameSign(h.Quantity, signed):
		h.AverageCost = f.Price
	}
	return &Realisation{Quantity: closing, RealisedPNL: pnl}, nil
}

// Held returns the quantity held for the symbol, zero when unknown
func (s *Snapshot) Held(symbol string) int64 {
	if s == nil {
		return 0
	}
	return s.Holdings[symbol].Quantity
}

// Sellable returns the held quantity not already committed to pending sells
func (s *Snapshot) Sellable(symbol string) int64 {
	if s == nil {
		return 0
	}
	return s.Held(symbol) - s.PendingSell[symbol]
}

// Committed returns the held quantity including pending buys
func (s *Snapshot) Committed(symbol string) int64 {
	if s == nil {
		return 0
	}
	return s.Held(symbol) + s.PendingBuy[symbol]
}

// Drawdown returns the fractional decline of equity from its peak
func (s *Snapshot) Drawdown() decimal.Decimal {
	if s == nil || !s.Peak.IsPositive() || s.Equity.GreaterThanOrEqual(s.Peak) {
		return decimal.Zero
	}
	return s.Peak.Sub(s.Equity).Div(s.Peak)
}

func sameSign(a, b int64) bool {
	return (a > 0) == (b > 0)
}

func abs(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
