package signal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/thrasher-corp/papertrader/backtester/common"
)

func TestSignal(t *testing.T) {
	t.Parallel()
	s := &Signal{}
	assert.True(t, s.IsSignal())
	assert.True(t, s.IsHold(), "empty direction holds")

	s.SetDirection(common.Buy)
	assert.Equal(t, common.Buy, s.GetDirection())
	assert.False(t, s.IsHold())

	s.SetPrice(decimal.NewFromInt(10))
	assert.True(t, s.GetPrice().Equal(decimal.NewFromInt(10)))

	s.SetQuantity(5)
	assert.Equal(t, int64(5), s.GetQuantity())

	s.SetDirection(common.DoNothing)
	assert.True(t, s.IsHold())
}
