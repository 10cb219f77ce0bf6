package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	o := &Order{}
	assert.True(t, o.IsOrder())
	for s, expected := range map[Status]bool{
		Pending:         false,
		Submitted:       false,
		PartiallyFilled: false,
		Filled:          true,
		Rejected:        true,
		Cancelled:       true,
	} {
		o.Status = s
		assert.Equalf(t, expected, o.IsTerminal(), "status %v", s)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilOrder *Order
	assert.ErrorIs(t, nilOrder.Validate(), ErrInvalidOrder)

	ten := decimal.NewFromInt(10)
	for _, ti := range []struct {
		name  string
		o     Order
		valid bool
	}{
		{"market", Order{Type: Market, Side: common.Buy, Quantity: 1}, true},
		{"market with limit", Order{Type: Market, Side: common.Buy, Quantity: 1, LimitPrice: ten}, false},
		{"limit", Order{Type: Limit, Side: common.Sell, Quantity: 1, LimitPrice: ten}, true},
		{"limit missing price", Order{Type: Limit, Side: common.Sell, Quantity: 1}, false},
		{"stop", Order{Type: Stop, Side: common.Sell, Quantity: 1, StopPrice: ten}, true},
		{"stop limit", Order{Type: StopLimit, Side: common.Buy, Quantity: 1, StopPrice: ten, LimitPrice: ten}, true},
		{"stop limit missing stop", Order{Type: StopLimit, Side: common.Buy, Quantity: 1, LimitPrice: ten}, false},
		{"zero quantity", Order{Type: Market, Side: common.Buy}, false},
		{"hold side", Order{Type: Market, Side: common.DoNothing, Quantity: 1}, false},
		{"unknown type", Order{Type: "ICEBERG", Side: common.Buy, Quantity: 1}, false},
	} {
		ti.o.Base = event.Base{Symbol: "AAPL"}
		err := ti.o.Validate()
		if ti.valid {
			assert.NoError(t, err, ti.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidOrder, ti.name)
		}
	}

	o := Order{Type: Market, Side: common.Buy, Quantity: 1}
	assert.ErrorIs(t, o.Validate(), ErrInvalidOrder, "symbol is required")
}
