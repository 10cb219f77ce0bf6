package kline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
)

func validBar() *Kline {
	return &Kline{
		Base:   event.Base{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Symbol: "MSFT"},
		Open:   decimal.NewFromInt(100),
		High:   decimal.NewFromInt(105),
		Low:    decimal.NewFromInt(95),
		Close:  decimal.NewFromInt(101),
		Volume: decimal.NewFromInt(1000),
	}
}

func TestGetters(t *testing.T) {
	t.Parallel()
	k := validBar()
	assert.True(t, k.GetOpenPrice().Equal(decimal.NewFromInt(100)))
	assert.True(t, k.GetHighPrice().Equal(decimal.NewFromInt(105)))
	assert.True(t, k.GetLowPrice().Equal(decimal.NewFromInt(95)))
	assert.True(t, k.GetClosePrice().Equal(decimal.NewFromInt(101)))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilBar *Kline
	assert.ErrorIs(t, nilBar.Validate(), ErrInvalidBar)
	assert.NoError(t, validBar().Validate())

	for name, mutate := range map[string]func(*Kline){
		"symbol":   func(k *Kline) { k.Symbol = "" },
		"time":     func(k *Kline) { k.Time = time.Time{} },
		"close":    func(k *Kline) { k.Close = decimal.Zero },
		"inverted": func(k *Kline) { k.High = decimal.NewFromInt(90) },
		"outside":  func(k *Kline) { k.Close = decimal.NewFromInt(110) },
		"volume":   func(k *Kline) { k.Volume = decimal.NewFromInt(-1) },
	} {
		k := validBar()
		mutate(k)
		assert.ErrorIsf(t, k.Validate(), ErrInvalidBar, "case %s", name)
	}
}
