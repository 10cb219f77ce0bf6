package monitor

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

// AlertLevel is the severity of an alert
type AlertLevel string

// Alert levels
const (
	Info     AlertLevel = "info"
	Warning  AlertLevel = "warning"
	Error    AlertLevel = "error"
	Critical AlertLevel = "critical"
)

// Record types kept by the collector
const (
	RecordSignal    = "signal"
	RecordOrder     = "order"
	RecordFill      = "fill"
	RecordRejection = "rejection"
	RecordSnapshot  = "portfolio_snapshot"
	RecordError     = "error"
)

// DefaultQueueSize is the number of cycle reports buffered before new ones
// are dropped
const DefaultQueueSize = 64

var (
	errAlreadyStarted = errors.New("monitor already started")
	errNotStarted     = errors.New("monitor not started")
	errNoListen       = errors.New("listen address unset")
)

// Alert is a single raised condition
type Alert struct {
	Time    time.Time      `json:"time"`
	Level   AlertLevel     `json:"level"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AlertHandler receives every raised alert. A failing handler is logged and
// does not stop the others
type AlertHandler func(Alert) error

// Alerts keeps an append only list of raised alerts
type Alerts struct {
	m        sync.RWMutex
	alerts   []Alert
	handlers []AlertHandler
	now      func() time.Time
}

// Thresholds are the limits the alerts are checked against
type Thresholds struct {
	MaxDrawdown     decimal.Decimal `mapstructure:"max-drawdown"`
	MaxPositionSize decimal.Decimal `mapstructure:"max-position-size"`
	MinCashPercent  decimal.Decimal `mapstructure:"min-cash-percent"`
}

// Rejection is a risk rejection attributed to the signal it refused
type Rejection struct {
	Time      time.Time `json:"time"`
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Quantity  int64     `json:"quantity"`
	risk.Rejection
}

// CycleReport is everything that happened in one bar cycle. It is built by
// the driver and handed over without being touched again
type CycleReport struct {
	Cycle       int64                 `json:"cycle"`
	Time        time.Time             `json:"time"`
	Signals     []signal.Signal       `json:"signals"`
	Orders      []order.Order         `json:"orders"`
	Fills       []fill.Fill           `json:"fills"`
	Rejections  []Rejection           `json:"rejections"`
	Errors      []string              `json:"errors"`
	Equity      portfolio.EquityPoint `json:"equity"`
	Summary     portfolio.Summary     `json:"summary"`
	Holdings    []holdings.Holding    `json:"holdings"`
	StopTrading bool                  `json:"stop-trading"`
	StopReason  string                `json:"stop-reason,omitempty"`
}

// Notifier is the one way boundary between a driver and monitoring
type Notifier interface {
	Notify(*CycleReport)
}

// Record is one entry in the collector's history
type Record struct {
	Time time.Time `json:"time"`
	Type string    `json:"type"`
	Data any       `json:"data"`
}

// Summary counts what the collector has seen
type Summary struct {
	Cycles            int64           `json:"cycles"`
	Signals           int64           `json:"signals"`
	Orders            int64           `json:"orders"`
	BuyFills          int64           `json:"buy-fills"`
	SellFills         int64           `json:"sell-fills"`
	Rejections        int64           `json:"rejections"`
	Errors            int64           `json:"errors"`
	TotalValueTraded  decimal.Decimal `json:"total-value-traded"`
	TotalCommissions  decimal.Decimal `json:"total-commissions"`
	LatestTotalEquity decimal.Decimal `json:"latest-total-equity"`
}

// Collector records every cycle report it receives
type Collector struct {
	m            sync.RWMutex
	sessionStart time.Time
	records      []Record
	equity       []portfolio.EquityPoint
	latest       *CycleReport
	summary      Summary
}

// Monitor receives cycle reports without blocking the sender, records them
// and raises alerts from a single background worker
type Monitor struct {
	Collector  *Collector
	Alerts     *Alerts
	thresholds Thresholds
	queue      chan *CycleReport
	dropped    atomic.Int64
	started    bool
	// active holds the level of each condition currently raised so that a
	// condition is reported when it appears or changes, not every cycle
	active map[string]AlertLevel
	m      sync.Mutex
	wg     sync.WaitGroup
}

// Route is a named endpoint of the monitor server
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Server exposes the monitor over HTTP
type Server struct {
	monitor *Monitor
	server  *http.Server
}
