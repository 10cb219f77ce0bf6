package math

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RoundFloat rounds your floating point number to the desired decimal place
func RoundFloat(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(x*pow) / pow
}

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean using the n-1 denominator
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// PeriodicReturns returns the simple return of each step of the series
func PeriodicReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	resp := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			resp = append(resp, 0)
			continue
		}
		resp = append(resp, values[i]/values[i-1]-1)
	}
	return resp
}

// CalculateSharpeRatio returns the annualised sharpe ratio of the returns.
// riskFreeRate is the annual rate and is spread evenly across periodsPerYear
func CalculateSharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) <= 1 || periodsPerYear <= 0 {
		return 0
	}
	standardDeviation := SampleStandardDeviation(returns)
	if standardDeviation == 0 {
		return 0
	}
	return math.Sqrt(periodsPerYear) * excessMean(returns, riskFreeRate/periodsPerYear) / standardDeviation
}

// CalculateSortinoRatio returns the annualised sortino ratio of the returns,
// using the deviation of the negative returns only
func CalculateSortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) <= 1 || periodsPerYear <= 0 {
		return 0
	}
	var downside []float64
	for i := range returns {
		if returns[i] < 0 {
			downside = append(downside, returns[i])
		}
	}
	downsideDeviation := SampleStandardDeviation(downside)
	if downsideDeviation == 0 {
		return 0
	}
	return math.Sqrt(periodsPerYear) * excessMean(returns, riskFreeRate/periodsPerYear) / downsideDeviation
}

func excessMean(returns []float64, periodRate float64) float64 {
	excess := make([]float64, len(returns))
	for i := range returns {
		excess[i] = returns[i] - periodRate
	}
	return ArithmeticAverage(excess)
}

// CalculateAnnualisedReturn compounds the total return over the number of years
func CalculateAnnualisedReturn(totalReturn, years float64) float64 {
	if years <= 0 || totalReturn <= -1 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// CalculateCalmarRatio is the annualised return versus the maximum drawdown
func CalculateCalmarRatio(totalReturn, maxDrawdown, years float64) float64 {
	if maxDrawdown == 0 || years <= 0 {
		return 0
	}
	return CalculateAnnualisedReturn(totalReturn, years) / math.Abs(maxDrawdown)
}

// Percentile returns the p-th percentile (0-100) of the values, linearly
// interpolating the empirical distribution
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(math.Max(0, math.Min(1, p/100)), stat.LinInterp, sorted, nil)
}

// CalculateValueAtRisk returns the historical value at risk of the returns at
// the confidence level, eg 0.95 returns the 5th percentile
func CalculateValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return Percentile(returns, (1-confidence)*100)
}

// CalculateConditionalValueAtRisk returns the mean of the returns at or
// below the value at risk
func CalculateConditionalValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	valueAtRisk := CalculateValueAtRisk(returns, confidence)
	var tail []float64
	for i := range returns {
		if returns[i] <= valueAtRisk {
			tail = append(tail, returns[i])
		}
	}
	return ArithmeticAverage(tail)
}
