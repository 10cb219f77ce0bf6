package statistics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
)

const (
	// DefaultPeriodsPerYear annualises daily bars
	DefaultPeriodsPerYear = 252
	// DefaultConfidence is the confidence level of the value at risk figures
	DefaultConfidence = 0.95
)

var (
	errNoEquityCurve         = errors.New("no equity curve to calculate statistics from")
	errInitialCapitalUnset   = errors.New("initial capital must be positive")
	errInvalidPeriodsPerYear = errors.New("periods per year must be positive")
	errInvalidConfidence     = errors.New("confidence must be between 0 and 1")
	errSymbolStatisticsUnset = errors.New("no bars received for symbol")
)

// Settings are the inputs of the ratio calculations
type Settings struct {
	// RiskFreeRate is the annual rate, spread evenly across PeriodsPerYear
	RiskFreeRate   float64 `json:"risk-free-rate" mapstructure:"risk-free-rate"`
	PeriodsPerYear float64 `json:"periods-per-year" mapstructure:"periods-per-year"`
	Confidence     float64 `json:"confidence" mapstructure:"confidence"`
}

// Handler interface details what a statistic is expected to do
type Handler interface {
	SetStrategyName(string)
	SetupEventForTime(common.DataEventHandler) error
	SetEventForOffset(common.EventHandler) error
	CalculateAllResults(initialCapital decimal.Decimal, curve []portfolio.EquityPoint, trades []portfolio.Trade) error
	PrintTotalResults()
	Reset()
	Serialise() (string, error)
}

// Statistic holds all statistical information for a run, from drawdowns to
// ratios. Symbol specific information is held in SymbolStatistics
type Statistic struct {
	StrategyName     string                      `json:"strategy-name"`
	StartDate        time.Time                   `json:"start-date"`
	EndDate          time.Time                   `json:"end-date"`
	Settings         Settings                    `json:"settings"`
	InitialCapital   decimal.Decimal             `json:"initial-capital"`
	FinalEquity      decimal.Decimal             `json:"final-equity"`
	TotalSignals     int64                       `json:"total-signals"`
	TotalRejections  int64                       `json:"total-rejections"`
	TotalBuyOrders   int64                       `json:"total-buy-orders"`
	TotalSellOrders  int64                       `json:"total-sell-orders"`
	TotalOrders      int64                       `json:"total-orders"`
	TotalFills       int64                       `json:"total-fills"`
	SymbolStatistics map[string]*SymbolStatistic `json:"symbol-statistics"`
	Metrics          *Metrics                    `json:"metrics,omitempty"`
}

// SymbolStatistic holds the events and market movement of a single symbol
type SymbolStatistic struct {
	Symbol             string          `json:"symbol"`
	Bars               int64           `json:"bars"`
	StartingClosePrice ValueAtTime     `json:"starting-close-price"`
	EndingClosePrice   ValueAtTime     `json:"ending-close-price"`
	LowestClosePrice   ValueAtTime     `json:"lowest-close-price"`
	HighestClosePrice  ValueAtTime     `json:"highest-close-price"`
	MarketMovement     float64         `json:"market-movement"`
	Signals            int64           `json:"signals"`
	Rejections         int64           `json:"rejections"`
	BuyOrders          int64           `json:"buy-orders"`
	SellOrders         int64           `json:"sell-orders"`
	Fills              int64           `json:"fills"`
	TotalFees          decimal.Decimal `json:"total-fees"`
	RealisedPNL        decimal.Decimal `json:"realised-pnl"`
}

// Metrics are the performance figures computed from the equity curve and
// the trade ledger. Fractions are not scaled to percentages
type Metrics struct {
	TotalReturn      float64 `json:"total-return"`
	AnnualisedReturn float64 `json:"annualised-return"`
	SharpeRatio      float64 `json:"sharpe-ratio"`
	SortinoRatio     float64 `json:"sortino-ratio"`
	CalmarRatio      float64 `json:"calmar-ratio"`
	MaxDrawdown      Swing   `json:"max-drawdown"`
	// LongestDrawdown is the drawdown that took the most bars to recover
	LongestDrawdown     Swing   `json:"longest-drawdown"`
	MaxDrawdownDuration int64   `json:"max-drawdown-duration"`
	ValueAtRisk         float64 `json:"value-at-risk"`
	ConditionalVaR      float64 `json:"conditional-value-at-risk"`

	TotalTrades    int             `json:"total-trades"`
	WinningTrades  int             `json:"winning-trades"`
	LosingTrades   int             `json:"losing-trades"`
	WinRate        float64         `json:"win-rate"`
	ProfitFactor   float64         `json:"profit-factor"`
	AverageWin     decimal.Decimal `json:"average-win"`
	AverageLoss    decimal.Decimal `json:"average-loss"`
	TradingPeriods int             `json:"trading-periods"`
	Years          float64         `json:"years"`
}

// Swing holds a drawdown from a peak to its lowest point and the number of
// bars until equity regained the peak
type Swing struct {
	Highest          ValueAtTime `json:"highest"`
	Lowest           ValueAtTime `json:"lowest"`
	DrawdownPercent  float64     `json:"drawdown"`
	IntervalDuration int64       `json:"interval-duration"`
	Recovered        bool        `json:"recovered"`
}

// ValueAtTime is an individual iteration of price at a time
type ValueAtTime struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
	Set   bool            `json:"-"`
}
