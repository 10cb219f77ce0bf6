package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewRateLimit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, rate.Inf, NewRateLimit(0, 10).Limit())
	assert.Equal(t, rate.Inf, NewRateLimit(time.Second, 0).Limit())

	l := NewRateLimit(time.Minute, 200)
	assert.InDelta(t, 200.0/60, float64(l.Limit()), 1e-9)
	assert.Equal(t, 1, l.Burst())
}
