package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/api"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/live"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/alpaca"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/log"
)

// EnvPrefix prefixes every environment override, PAPERTRADER_INITIAL-CAPITAL
// style keys are written PAPERTRADER_INITIAL_CAPITAL
const EnvPrefix = "PAPERTRADER"

// Bar sources
const (
	SourceCSV      = "csv"
	SourceAPI      = "api"
	SourceDatabase = "database"
)

// Latest bar feeds used while paper trading
const (
	FeedREST   = "rest"
	FeedStream = "stream"
)

// MinimumCapital is the smallest starting balance accepted
var MinimumCapital = decimal.NewFromInt(1000)

var (
	// ErrInvalidSymbol is returned when a ticker is not 1 to 5 letters
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidDates is returned for an unusable date range
	ErrInvalidDates = errors.New("invalid date range")
	// ErrInvalidCapital is returned when the starting balance is too small
	ErrInvalidCapital = errors.New("invalid capital")
	// ErrInvalidQuantity is returned for a non-positive quantity
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidPrice is returned for a non-positive price
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidPercentage is returned for a fraction outside its bounds
	ErrInvalidPercentage = errors.New("invalid percentage")
	// ErrInvalidRiskLimit is returned when a risk limit is outside of its domain
	ErrInvalidRiskLimit = errors.New("invalid risk limit")

	errNoSymbols        = errors.New("no symbols configured")
	errNoStrategy       = errors.New("no strategy configured")
	errUnknownSource    = errors.New("unknown bar source")
	errUnknownFeed      = errors.New("unknown latest bar feed")
	errNoDataDirectory  = errors.New("csv bar source requires a data directory")
	errInvalidInterval  = errors.New("poll interval must be positive")
	errInvalidOrderType = errors.New("invalid order style")
	errNoDatabase       = errors.New("database bar source requires an enabled database")
)

// Config is loaded once at start up and treated as immutable afterwards
type Config struct {
	Symbols        []string            `mapstructure:"symbols" json:"symbols"`
	StartDate      time.Time           `mapstructure:"start-date" json:"start-date"`
	EndDate        time.Time           `mapstructure:"end-date" json:"end-date"`
	Strategy       StrategySettings    `mapstructure:"strategy" json:"strategy"`
	InitialCapital decimal.Decimal     `mapstructure:"initial-capital" json:"initial-capital"`
	Commission     fee.Model           `mapstructure:"commission" json:"commission"`
	Slippage       decimal.Decimal     `mapstructure:"slippage" json:"slippage"`
	Risk           RiskSettings        `mapstructure:"risk" json:"risk"`
	OrderStyle     OrderStyle          `mapstructure:"order-style" json:"order-style"`
	Statistics     statistics.Settings `mapstructure:"statistics" json:"statistics"`
	Data           DataSettings        `mapstructure:"data" json:"data"`
	Paper          PaperSettings       `mapstructure:"paper" json:"paper"`
	Report         ReportSettings      `mapstructure:"report" json:"report"`
	Database       database.Config     `mapstructure:"database" json:"database"`
	Logging        log.Config          `mapstructure:"logging" json:"logging"`
}

// StrategySettings selects a strategy and overrides its parameters
type StrategySettings struct {
	Name     string         `mapstructure:"name" json:"name"`
	Settings map[string]any `mapstructure:"settings" json:"settings,omitempty"`
}

// RiskSettings are the account level limits
type RiskSettings struct {
	MaxPositionSize decimal.Decimal `mapstructure:"max-position-size" json:"max-position-size"`
	MaxDrawdown     decimal.Decimal `mapstructure:"max-drawdown" json:"max-drawdown"`
	MaxLossPerTrade decimal.Decimal `mapstructure:"max-loss-per-trade" json:"max-loss-per-trade"`
	StopLoss        decimal.Decimal `mapstructure:"stop-loss" json:"stop-loss"`
}

// OrderStyle converts approved market orders into resting limit or stop
// orders Offset away from the reference price
type OrderStyle struct {
	Type   string          `mapstructure:"type" json:"type"`
	Offset decimal.Decimal `mapstructure:"offset" json:"offset"`
}

// DataSettings selects where bars come from
type DataSettings struct {
	Source    string      `mapstructure:"source" json:"source"`
	Directory string      `mapstructure:"directory" json:"directory"`
	API       api.Config  `mapstructure:"api" json:"api"`
	Feed      string      `mapstructure:"feed" json:"feed"`
	Stream    live.Config `mapstructure:"stream" json:"stream"`
}

// PaperSettings configure the paper trading loop
type PaperSettings struct {
	Interval      time.Duration      `mapstructure:"interval" json:"interval"`
	UseAlpaca     bool               `mapstructure:"use-alpaca" json:"use-alpaca"`
	Alpaca        alpaca.Config      `mapstructure:"alpaca" json:"alpaca"`
	MonitorListen string             `mapstructure:"monitor-listen" json:"monitor-listen"`
	Thresholds    monitor.Thresholds `mapstructure:"thresholds" json:"thresholds"`
	QueueSize     int                `mapstructure:"queue-size" json:"queue-size"`
	MetricsFile   string             `mapstructure:"metrics-file" json:"metrics-file"`
}

// ReportSettings decide where results end up
type ReportSettings struct {
	OutputDir string `mapstructure:"output-dir" json:"output-dir"`
	SaveToDB  bool   `mapstructure:"save-to-database" json:"save-to-database"`
}
