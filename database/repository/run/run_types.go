package run

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	errNilRun  = errors.New("nil run")
	errNoRunID = errors.New("run id unset")
	// ErrRunNotFound is returned when no run matches the id
	ErrRunNotFound = errors.New("run not found")
)

// Run is the persisted result of a backtest or paper trading session
type Run struct {
	ID             string
	Mode           string
	Strategy       string
	Symbols        []string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal
	TotalReturn    float64
	SharpeRatio    float64
	MaxDrawdown    float64
	// Metrics is the serialised metric set
	Metrics    []byte
	InsertedAt time.Time
	Trades     []Trade
	Equity     []EquityPoint
}

// Trade is a booked fill of the run
type Trade struct {
	OrderID     string
	Symbol      string
	Side        string
	Quantity    int64
	Price       decimal.Decimal
	Commission  decimal.Decimal
	RealisedPNL decimal.Decimal
	Time        time.Time
}

// EquityPoint is one mark to market of the run
type EquityPoint struct {
	Time           time.Time
	Cash           decimal.Decimal
	PositionsValue decimal.Decimal
	TotalEquity    decimal.Decimal
}
