package base

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bar(symbol string, i int, price float64) *kline.Kline {
	p := decimal.NewFromFloat(price)
	return &kline.Kline{
		Base:  event.Base{Offset: int64(i), Time: start.AddDate(0, 0, i), Symbol: symbol},
		Open:  p,
		High:  p,
		Low:   p,
		Close: p,
	}
}

func holdAll(symbol string, bars []*kline.Kline) ([]*signal.Signal, error) {
	if err := ValidateSeries(symbol, bars); err != nil {
		return nil, err
	}
	resp := make([]*signal.Signal, len(bars))
	for i := range bars {
		resp[i] = GetBaseData(bars[i])
	}
	return resp, nil
}

func TestGetBaseData(t *testing.T) {
	t.Parallel()
	s := GetBaseData(bar("AAPL", 3, 12.5))
	assert.Equal(t, common.DoNothing, s.Direction)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, int64(3), s.Offset)
	assert.Equal(t, "12.5", s.Price.String())
}

func TestValidateSeries(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSeries("AAPL", nil))
	assert.NoError(t, ValidateSeries("AAPL", []*kline.Kline{bar("AAPL", 0, 1), bar("AAPL", 1, 2)}))

	err := ValidateSeries("AAPL", []*kline.Kline{bar("AAPL", 0, 1), bar("MSFT", 1, 2)})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	err = ValidateSeries("AAPL", []*kline.Kline{bar("AAPL", 1, 1), bar("AAPL", 1, 2)})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	err = ValidateSeries("AAPL", []*kline.Kline{bar("AAPL", 0, 0)})
	assert.ErrorIs(t, err, ErrInvalidSeries)
	assert.ErrorIs(t, err, kline.ErrInvalidBar)
}

func TestValueAt(t *testing.T) {
	t.Parallel()
	padded := []float64{0, 0, 3, 4}
	v, ok := ValueAt(padded, 4, 2)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	trimmed := []float64{3, 4}
	v, ok = ValueAt(trimmed, 4, 3)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = ValueAt(trimmed, 4, 1)
	assert.False(t, ok)
}

func TestCrosses(t *testing.T) {
	t.Parallel()
	assert.True(t, CrossedAbove(1, 1, 2, 1))
	assert.False(t, CrossedAbove(2, 1, 3, 1), "already above")
	assert.True(t, CrossedBelow(1, 1, 0, 1))
	assert.False(t, CrossedBelow(0, 1, 0, 1))
}

func TestOnBar(t *testing.T) {
	t.Parallel()
	s := &Strategy{}
	_, err := s.OnBar(nil, holdAll)
	assert.ErrorIs(t, err, common.ErrNilEvent)

	sig, err := s.OnBar(bar("AAPL", 0, 1), holdAll)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sig.Offset)
	_, err = s.OnBar(bar("AAPL", 1, 2), holdAll)
	require.NoError(t, err)

	_, err = s.OnBar(bar("AAPL", 1, 3), holdAll)
	assert.ErrorIs(t, err, ErrInvalidSeries, "a repeated timestamp is rejected")
	assert.Len(t, s.History("AAPL"), 2, "rejected bars are not kept")

	_, err = s.OnBar(bar("AAPL", 2, 3), func(string, []*kline.Kline) ([]*signal.Signal, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Len(t, s.History("AAPL"), 2)

	s.Reset()
	assert.Empty(t, s.History("AAPL"))
}

func TestToPeriod(t *testing.T) {
	t.Parallel()
	for v, expected := range map[any]bool{
		float64(14): true,
		14:          true,
		"14":        true,
		14.5:        false,
		0:           false,
		"fourteen":  false,
		true:        false,
	} {
		_, ok := ToPeriod(v)
		assert.Equalf(t, expected, ok, "%v", v)
	}
	f, ok := ToFloat("2.5")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
}
