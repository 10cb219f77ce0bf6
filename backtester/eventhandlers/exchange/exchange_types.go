package exchange

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
)

var (
	// ErrOrderNotFound is returned when an order ID is unknown to the broker
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderTerminal is returned when cancelling an order that can no longer change
	ErrOrderTerminal = errors.New("order is already in a terminal state")

	errSymbolMismatch  = errors.New("bar symbol does not match order")
	errDuplicateOrder  = errors.New("order ID already submitted")
	errNoAccountSource = errors.New("no account source set")
)

// Handler is the execution model shared by the virtual and live brokers
type Handler interface {
	// Submit hands the order to the broker alongside the bar it was created
	// on. A nil fill with a nil error means the order is resting
	Submit(context.Context, *order.Order, *kline.Kline) (*fill.Fill, error)
	// OnBar re-evaluates resting orders for the bar's symbol
	OnBar(context.Context, *kline.Kline) ([]*fill.Fill, error)
	Cancel(ctx context.Context, id string) error
	OrderStatus(ctx context.Context, id string) (order.Status, error)
	Positions(context.Context) ([]holdings.Holding, error)
	AccountInfo(context.Context) (*AccountInfo, error)
	// PendingOrders returns every order that has not reached a terminal state
	PendingOrders() []order.Order
}

// AccountSource supplies the account state the virtual broker reports
type AccountSource interface {
	Snapshot() *holdings.Snapshot
	Holdings() []holdings.Holding
}

// AccountInfo is the broker's view of the account
type AccountInfo struct {
	Cash        decimal.Decimal `json:"cash"`
	Equity      decimal.Decimal `json:"equity"`
	BuyingPower decimal.Decimal `json:"buying-power"`
}

// Exchange is the virtual broker. It fills orders against bars without
// touching any external system
type Exchange struct {
	m          sync.Mutex
	slippage   decimal.Decimal
	commission fee.Model
	account    AccountSource
	orders     map[string]*order.Order
	// sequence preserves submission order for re-evaluation
	sequence []string
}
