package report

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
)

// createEquityChart plots total equity and cash at every cycle
func createEquityChart(curve []portfolio.EquityPoint) (*Chart, error) {
	if len(curve) == 0 {
		return nil, errNoEquityToChart
	}
	equity := make([]LinePlot, len(curve))
	cash := make([]LinePlot, len(curve))
	for i := range curve {
		ms := curve[i].Time.UnixMilli()
		equity[i] = LinePlot{Value: curve[i].TotalEquity.InexactFloat64(), UnixMilli: ms}
		cash[i] = LinePlot{Value: curve[i].Cash.InexactFloat64(), UnixMilli: ms}
	}
	return &Chart{
		AxisType: "linear",
		Data: []ChartLine{
			{Name: "Total equity", LinePlots: equity},
			{Name: "Cash", LinePlots: cash},
		},
	}, nil
}

// createDrawdownChart plots the fall from the running equity peak as a
// negative percentage
func createDrawdownChart(curve []portfolio.EquityPoint) (*Chart, error) {
	if len(curve) == 0 {
		return nil, errNoEquityToChart
	}
	hundred := decimal.NewFromInt(100)
	plots := make([]LinePlot, len(curve))
	peak := curve[0].TotalEquity
	for i := range curve {
		if curve[i].TotalEquity.GreaterThan(peak) {
			peak = curve[i].TotalEquity
		}
		var dd decimal.Decimal
		if peak.IsPositive() {
			dd = curve[i].TotalEquity.Sub(peak).Div(peak).Mul(hundred)
		}
		plots[i] = LinePlot{Value: dd.InexactFloat64(), UnixMilli: curve[i].Time.UnixMilli()}
	}
	return &Chart{
		AxisType: "linear",
		Data:     []ChartLine{{Name: "Drawdown %", LinePlots: plots}},
	}, nil
}
