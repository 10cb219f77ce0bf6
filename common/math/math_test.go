package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var curve = []float64{100000, 102000, 101000, 105000, 95000, 110000}

func TestPeriodicReturns(t *testing.T) {
	t.Parallel()
	assert.Nil(t, PeriodicReturns([]float64{1}))

	r := PeriodicReturns(curve)
	require.Len(t, r, 5)
	assert.InDelta(t, 0.02, r[0], 1e-12)
	assert.InDelta(t, -1000.0/102000, r[1], 1e-12)
	assert.InDelta(t, 15000.0/95000, r[4], 1e-12)

	r = PeriodicReturns([]float64{0, 10})
	assert.Zero(t, r[0], "a zero base must not divide")
}

func TestPercentile(t *testing.T) {
	t.Parallel()
	v := []float64{5, 1, 4, 2, 3}
	assert.InDelta(t, 2.5, Percentile(v, 50), 1e-12)
	assert.InDelta(t, 1.25, Percentile(v, 25), 1e-12)
	assert.InDelta(t, 4.5, Percentile(v, 90), 1e-12)
	assert.Equal(t, 1.0, Percentile(v, 10), "below the first rank is the minimum")
	assert.Equal(t, 1.0, Percentile(v, 0))
	assert.Equal(t, 1.0, Percentile(v, -5))
	assert.Equal(t, 5.0, Percentile(v, 100))
	assert.Equal(t, 5.0, Percentile(v, 150))
	assert.Zero(t, Percentile(nil, 50))
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, v, "input must not be reordered")
}

func TestValueAtRisk(t *testing.T) {
	t.Parallel()
	r := PeriodicReturns(curve)
	worst := -10000.0 / 105000
	second := -1000.0 / 102000
	assert.InDelta(t, worst, CalculateValueAtRisk(r, 0.95), 1e-12, "five returns put the 5th percentile on the worst")
	assert.InDelta(t, worst, CalculateConditionalValueAtRisk(r, 0.95), 1e-12)
	assert.InDelta(t, (worst+second)/2, CalculateValueAtRisk(r, 0.7), 1e-12)
	assert.InDelta(t, worst, CalculateConditionalValueAtRisk(r, 0.7), 1e-12, "only the worst return lies at or below the interpolated value")
	assert.Zero(t, CalculateValueAtRisk(nil, 0.95))
	assert.Zero(t, CalculateConditionalValueAtRisk(nil, 0.95))
}

func TestCalculateSharpeRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateSharpeRatio([]float64{0.01}, 0, 252))
	assert.Zero(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252), "zero deviation fails closed")

	r := []float64{0.01, -0.01, 0.02}
	expected := 15.874507866387544 * (0.02 / 3) / SampleStandardDeviation(r)
	assert.InDelta(t, expected, CalculateSharpeRatio(r, 0, 252), 1e-9)
	assert.Less(t, CalculateSharpeRatio(r, 0.5, 252), CalculateSharpeRatio(r, 0, 252))
}

func TestCalculateSortinoRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateSortinoRatio([]float64{0.01, 0.02, 0.03}, 0, 252), "no downside fails closed")
	assert.Zero(t, CalculateSortinoRatio([]float64{0.01, -0.02, 0.03}, 0, 252), "a single loss has no deviation")

	r := []float64{0.03, -0.01, -0.02, 0.04}
	downside := SampleStandardDeviation([]float64{-0.01, -0.02})
	expected := 15.874507866387544 * 0.01 / downside
	assert.InDelta(t, expected, CalculateSortinoRatio(r, 0, 252), 1e-9)
}

func TestCalculateCalmarRatio(t *testing.T) {
	t.Parallel()
	assert.Zero(t, CalculateCalmarRatio(0.1, 0, 1))
	assert.Zero(t, CalculateCalmarRatio(0.1, 0.2, 0))
	assert.InDelta(t, 0.1, CalculateAnnualisedReturn(0.21, 2), 1e-12)
	assert.InDelta(t, 0.5, CalculateCalmarRatio(0.21, -0.2, 2), 1e-12)
}

func TestRoundFloat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 9.52, RoundFloat(9.5238095, 2))
}
