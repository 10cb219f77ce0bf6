package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/eventholder"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
)

// DefaultInterval is the paper trading poll interval
const DefaultInterval = time.Minute

var (
	// ErrNoDataForSymbol is returned before any processing when a requested
	// symbol has no usable bars
	ErrNoDataForSymbol = errors.New("no bar data for symbol")

	errNoSymbols          = errors.New("no symbols configured")
	errNilStrategy        = errors.New("strategy unset")
	errNilPortfolio       = errors.New("portfolio unset")
	errNilExchange        = errors.New("exchange unset")
	errNilStopper         = errors.New("stop trading check unset")
	errNilStatistic       = errors.New("statistic unset")
	errNilLoader          = errors.New("bar loader unset")
	errNilSource          = errors.New("latest bar source unset")
	errInvalidDateRange   = errors.New("start date must be before end date")
	errInvalidInterval    = errors.New("poll interval must be positive")
	errInvalidOrderStyle  = errors.New("invalid order style")
	errSignalCountInvalid = errors.New("strategy returned a signal count different to the bar count")
	errNoCurrentBar       = errors.New("no bar in the current cycle for order symbol")
	errNilConfig          = errors.New("nil config received")
	errUnknownSource      = errors.New("unknown bar source")
)

// StopChecker decides whether trading should halt
type StopChecker interface {
	ShouldStopTrading(*holdings.Snapshot) (bool, string)
}

// Portfolio is what the drivers need from the portfolio
type Portfolio interface {
	portfolio.Handler
	InitialCapital() decimal.Decimal
	Holdings() []holdings.Holding
}

// Components are the collaborators shared by both drivers. Each is selected
// at construction and never swapped during a run
type Components struct {
	Strategy  strategies.Handler
	Portfolio Portfolio
	Exchange  exchange.Handler
	Risk      StopChecker
	Statistic *statistics.Statistic
	// Notifier is optional and receives one report per cycle
	Notifier monitor.Notifier
}

// OrderStyle converts approved market orders into resting orders. Offset is
// the fraction away from the reference price, placed on the favourable side
// for limits and the breakout side for stops
type OrderStyle struct {
	Type   order.Type      `mapstructure:"type"`
	Offset decimal.Decimal `mapstructure:"offset"`
}

// Settings are the run parameters of a driver
type Settings struct {
	Symbols    []string
	StartDate  time.Time
	EndDate    time.Time
	Interval   time.Duration
	OrderStyle OrderStyle
}

// core runs the bar cycle shared by the backtest and paper trading drivers.
// A single goroutine owns it for the length of a run
type core struct {
	Components
	settings   Settings
	queue      eventholder.EventHolder
	data       data.Holder
	lastPrices map[string]decimal.Decimal
	bars       map[string]*kline.Kline
	signalFor  func(*kline.Kline) (*signal.Signal, error)
	cycle      int64
	report     *monitor.CycleReport
	stopped    bool
	stopReason string
}

// BackTest replays historical bars through the core
type BackTest struct {
	*core
	loader  data.Loader
	signals map[string][]*signal.Signal
}

// PaperTrader polls the latest bar of every symbol at a fixed interval and
// runs one cycle per poll until cancelled
type PaperTrader struct {
	*core
	source data.LatestBarSource
	now    func() time.Time
}
