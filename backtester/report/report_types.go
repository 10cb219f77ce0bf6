package report

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
)

// Run modes
const (
	ModeBacktest = "backtest"
	ModePaper    = "paper"
)

var (
	errNilBundle       = errors.New("nil report bundle")
	errNoOutputDir     = errors.New("report output directory unset")
	errNoEquityToChart = errors.New("no equity points to chart")
)

// Bundle is the complete result of a run. It is fully computed before it is
// handed to any writer
type Bundle struct {
	ID             string                  `json:"id"`
	Mode           string                  `json:"mode"`
	Strategy       string                  `json:"strategy"`
	Symbols        []string                `json:"symbols"`
	StartDate      time.Time               `json:"start-date"`
	EndDate        time.Time               `json:"end-date"`
	GeneratedAt    time.Time               `json:"generated-at"`
	InitialCapital decimal.Decimal         `json:"initial-capital"`
	FinalEquity    decimal.Decimal         `json:"final-equity"`
	Statistics     *statistics.Statistic   `json:"statistics"`
	Summary        portfolio.Summary       `json:"summary"`
	Trades         []portfolio.Trade       `json:"trades"`
	EquityCurve    []portfolio.EquityPoint `json:"equity-curve"`
	// PendingOrders never triggered before the run ended and are excluded
	// from the statistics
	PendingOrders []order.Order `json:"pending-orders"`
	StopReason    string        `json:"stop-reason,omitempty"`
}

// Chart holds chart data along with an axis
type Chart struct {
	AxisType string      `json:"axis-type"`
	Data     []ChartLine `json:"data"`
}

// ChartLine holds chart plot data
type ChartLine struct {
	Name      string     `json:"name"`
	LinePlots []LinePlot `json:"line-plots"`
}

// LinePlot holds value data for a chart
type LinePlot struct {
	Value     float64 `json:"value"`
	UnixMilli int64   `json:"unix-milli"`
}

// htmlData is what the report template renders
type htmlData struct {
	Bundle   *Bundle
	Equity   *Chart
	Drawdown *Chart
	Text     string
}
