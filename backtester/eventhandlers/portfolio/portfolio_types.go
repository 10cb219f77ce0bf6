package portfolio

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
)

var (
	errInitialCapitalInvalid = errors.New("initial capital must be positive")
	errSizeManagerUnset      = errors.New("size manager unset")
	errRiskManagerUnset      = errors.New("risk manager unset")
	errInsufficientFunds     = errors.New("fill cost exceeds cash")
	errTimeInPast            = errors.New("mark to market time is before the last equity point")
	errNonPositivePrice      = errors.New("price must be positive")
)

// Handler is what the drivers need from the portfolio
type Handler interface {
	OnSignal(*signal.Signal) (*order.Order, *risk.Rejection, error)
	ApplyFill(*fill.Fill) error
	MarkToMarket(time.Time, map[string]decimal.Decimal) (EquityPoint, error)
	ReleaseReservation(orderID string)
	Snapshot() *holdings.Snapshot
	Trades() []Trade
	EquityCurve() []EquityPoint
	Summary() Summary
}

// SizeHandler suggests a quantity when a signal leaves sizing to the portfolio
type SizeHandler interface {
	SuggestQuantity(equity, price decimal.Decimal) int64
}

// RiskHandler approves or rejects signals
type RiskHandler interface {
	Evaluate(*signal.Signal, *holdings.Snapshot) (*order.Order, *risk.Rejection)
	EstimateCost(price decimal.Decimal, quantity int64) decimal.Decimal
}

// Trade is a closing fill recorded in the append only ledger
type Trade struct {
	OrderID     string           `json:"order-id"`
	Symbol      string           `json:"symbol"`
	Side        common.Direction `json:"side"`
	Quantity    int64            `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Time        time.Time        `json:"time"`
	Commission  decimal.Decimal  `json:"commission"`
	RealisedPNL decimal.Decimal  `json:"realised-pnl"`
}

// EquityPoint is the state of the account at the end of a bar cycle
type EquityPoint struct {
	Time           time.Time       `json:"time"`
	Cash           decimal.Decimal `json:"cash"`
	PositionsValue decimal.Decimal `json:"positions-value"`
	TotalEquity    decimal.Decimal `json:"total-equity"`
}

// Summary describes the current state of the portfolio
type Summary struct {
	Cash           decimal.Decimal `json:"cash"`
	PositionsValue decimal.Decimal `json:"positions-value"`
	TotalEquity    decimal.Decimal `json:"total-equity"`
	RealisedPNL    decimal.Decimal `json:"realised-pnl"`
	UnrealisedPNL  decimal.Decimal `json:"unrealised-pnl"`
	TotalReturn    decimal.Decimal `json:"total-return"`
	Positions      int             `json:"positions"`
	Trades         int             `json:"trades"`
	PeakEquity     decimal.Decimal `json:"peak-equity"`
	Drawdown       decimal.Decimal `json:"drawdown"`
}

// pendingOrder is an approved order that has not filled yet
type pendingOrder struct {
	symbol   string
	side     common.Direction
	quantity int64
}

// Portfolio is the single owner of cash, holdings, the trade ledger and the
// equity curve. A single writer advances it while readers take copies
type Portfolio struct {
	m              sync.RWMutex
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	peak           decimal.Decimal
	reserved       map[string]decimal.Decimal
	pending        map[string]pendingOrder
	holdings       map[string]*holdings.Holding
	trades         []Trade
	curve          []EquityPoint
	sizeManager    SizeHandler
	riskManager    RiskHandler
}
