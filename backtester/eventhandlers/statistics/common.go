package statistics

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	gctmath "github.com/thrasher-corp/papertrader/common/math"
)

// Validate fills unset settings with defaults and rejects impossible ones
func (s *Settings) Validate() error {
	if s.PeriodsPerYear == 0 {
		s.PeriodsPerYear = DefaultPeriodsPerYear
	}
	if s.Confidence == 0 {
		s.Confidence = DefaultConfidence
	}
	if s.PeriodsPerYear < 0 {
		return fmt.Errorf("%w, received %v", errInvalidPeriodsPerYear, s.PeriodsPerYear)
	}
	if s.Confidence <= 0 || s.Confidence >= 1 {
		return fmt.Errorf("%w, received %v", errInvalidConfidence, s.Confidence)
	}
	return nil
}

// CalculateDrawdowns lists every drawdown of the series in order. A drawdown
// starts at a running peak and ends when a later value regains that peak; an
// unrecovered drawdown runs to the last value
func CalculateDrawdowns(values []ValueAtTime) []Swing {
	if len(values) == 0 {
		return nil
	}
	var swings []Swing
	peak, trough := 0, -1
	for i := 1; i < len(values); i++ {
		if values[i].Value.GreaterThanOrEqual(values[peak].Value) {
			if trough >= 0 {
				swings = append(swings, newSwing(values, peak, trough, i, true))
				trough = -1
			}
			peak = i
			continue
		}
		if trough < 0 || values[i].Value.LessThan(values[trough].Value) {
			trough = i
		}
	}
	if trough >= 0 {
		swings = append(swings, newSwing(values, peak, trough, len(values)-1, false))
	}
	return swings
}

func newSwing(values []ValueAtTime, peak, trough, end int, recovered bool) Swing {
	var pct float64
	if values[peak].Value.IsPositive() {
		pct = values[peak].Value.Sub(values[trough].Value).Div(values[peak].Value).InexactFloat64()
	}
	return Swing{
		Highest:          values[peak],
		Lowest:           values[trough],
		DrawdownPercent:  pct,
		IntervalDuration: int64(end - peak),
		Recovered:        recovered,
	}
}

// CalculateBiggestDrawdowns returns the deepest drawdown and the drawdown
// that lasted the most bars. Ties keep the earlier drawdown
func CalculateBiggestDrawdowns(values []ValueAtTime) (deepest, longest Swing) {
	swings := CalculateDrawdowns(values)
	for i := range swings {
		if swings[i].DrawdownPercent > deepest.DrawdownPercent {
			deepest = swings[i]
		}
		if swings[i].IntervalDuration > longest.IntervalDuration {
			longest = swings[i]
		}
	}
	return deepest, longest
}

// CalculateMetrics computes the performance figures of a run. Every ratio
// fails closed to zero when its denominator is zero
func CalculateMetrics(initialCapital decimal.Decimal, curve []portfolio.EquityPoint, trades []portfolio.Trade, settings Settings) (*Metrics, error) {
	if len(curve) == 0 {
		return nil, errNoEquityCurve
	}
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("%w, received %v", errInitialCapitalUnset, initialCapital)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	values := make([]ValueAtTime, len(curve))
	equity := make([]float64, len(curve))
	for i := range curve {
		values[i] = ValueAtTime{Time: curve[i].Time, Value: curve[i].TotalEquity, Set: true}
		equity[i] = curve[i].TotalEquity.InexactFloat64()
	}

	m := &Metrics{
		TotalReturn:    curve[len(curve)-1].TotalEquity.Div(initialCapital).Sub(decimal.NewFromInt(1)).InexactFloat64(),
		TradingPeriods: len(curve),
		Years:          float64(len(curve)) / settings.PeriodsPerYear,
	}
	returns := gctmath.PeriodicReturns(equity)
	m.SharpeRatio = gctmath.CalculateSharpeRatio(returns, settings.RiskFreeRate, settings.PeriodsPerYear)
	m.SortinoRatio = gctmath.CalculateSortinoRatio(returns, settings.RiskFreeRate, settings.PeriodsPerYear)
	m.MaxDrawdown, m.LongestDrawdown = CalculateBiggestDrawdowns(values)
	m.MaxDrawdownDuration = m.LongestDrawdown.IntervalDuration
	m.AnnualisedReturn = gctmath.CalculateAnnualisedReturn(m.TotalReturn, m.Years)
	m.CalmarRatio = gctmath.CalculateCalmarRatio(m.TotalReturn, m.MaxDrawdown.DrawdownPercent, m.Years)
	m.ValueAtRisk = gctmath.CalculateValueAtRisk(returns, settings.Confidence)
	m.ConditionalVaR = gctmath.CalculateConditionalValueAtRisk(returns, settings.Confidence)
	calculateTradeStatistics(m, trades)
	return m, nil
}

func calculateTradeStatistics(m *Metrics, trades []portfolio.Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}
	var wins, losses decimal.Decimal
	for i := range trades {
		switch {
		case trades[i].RealisedPNL.IsPositive():
			m.WinningTrades++
			wins = wins.Add(trades[i].RealisedPNL)
		case trades[i].RealisedPNL.IsNegative():
			m.LosingTrades++
			losses = losses.Add(trades[i].RealisedPNL)
		}
	}
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AverageWin = wins.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = losses.Div(decimal.NewFromInt(int64(m.LosingTrades)))
		m.ProfitFactor = wins.Div(losses.Abs()).InexactFloat64()
	}
}
