package data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(symbol string, day int, c int64) *kline.Kline {
	return &kline.Kline{
		Base:   event.Base{Symbol: symbol, Time: start.AddDate(0, 0, day)},
		Open:   decimal.NewFromInt(c),
		High:   decimal.NewFromInt(c + 1),
		Low:    decimal.NewFromInt(c - 1),
		Close:  decimal.NewFromInt(c),
		Volume: decimal.NewFromInt(10),
	}
}

func TestHandlerPerSymbol(t *testing.T) {
	t.Parallel()
	var d HandlerPerSymbol
	_, err := d.GetDataForSymbol("AAPL")
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	d.SetDataForSymbol("MSFT", NewBase("MSFT"))
	d.SetDataForSymbol("AAPL", NewBase("AAPL"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, d.Symbols())
	h, err := d.GetDataForSymbol("AAPL")
	require.NoError(t, err)
	assert.NotNil(t, h)

	d.Reset()
	assert.Empty(t, d.Symbols())
}

func TestAppendStreamDropsBadBars(t *testing.T) {
	t.Parallel()
	b := NewBase("AAPL")
	invalid := bar("AAPL", 3, 100)
	invalid.High = decimal.NewFromInt(50)

	added := b.AppendStream(
		bar("AAPL", 0, 100),
		nil,
		bar("AAPL", 1, 101),
		bar("AAPL", 1, 102), // duplicate timestamp
		bar("AAPL", 0, 103), // out of order
		bar("MSFT", 2, 104),
		invalid,
		bar("AAPL", 2, 105),
	)
	assert.Equal(t, 3, added)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 5, b.Dropped())
	assert.Equal(t, "AAPL", b.Symbol())
	for i := 1; i < b.Len(); i++ {
		assert.True(t, b.GetStream()[i].Time.After(b.GetStream()[i-1].Time))
	}
}

func TestStreaming(t *testing.T) {
	t.Parallel()
	b := NewBase("AAPL")
	_, ok := b.Next()
	assert.False(t, ok)
	assert.Nil(t, b.Latest())

	b.AppendStream(bar("AAPL", 0, 100), bar("AAPL", 1, 101), bar("AAPL", 2, 102))
	k, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, start, k.Time)
	assert.Equal(t, 1, b.Offset())
	assert.Len(t, b.History(), 1)
	assert.Len(t, b.List(), 2)
	assert.Equal(t, k, b.Latest())

	b.Next()
	assert.Equal(t, []float64{100, 101}, b.StreamClose())
	b.Next()
	_, ok = b.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, b.Offset())

	b.Reset()
	assert.Zero(t, b.Offset())
	assert.Zero(t, b.Len())
	assert.Nil(t, b.Latest())
}
