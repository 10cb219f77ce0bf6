package alpaca

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/exchanges/request"
)

const (
	// DefaultBaseURL is the paper trading endpoint
	DefaultBaseURL = "https://paper-api.alpaca.markets"
	// DefaultTimeout bounds every call to the broker
	DefaultTimeout = 10 * time.Second
	// DefaultRequestsPerMinute matches the broker's documented rate limit
	DefaultRequestsPerMinute = 200

	headerKeyID  = "APCA-API-KEY-ID"
	headerSecret = "APCA-API-SECRET-KEY"

	pathOrders    = "/v2/orders"
	pathAccount   = "/v2/account"
	pathPositions = "/v2/positions"
)

var (
	// ErrBrokerTimeout is returned when the broker does not answer an order
	// submission in time. The order is marked REJECTED
	ErrBrokerTimeout = errors.New("broker timeout")

	errMissingCredentials = errors.New("missing broker API key or secret")
	errSubmissionFailed   = errors.New("order submission failed")
	errUnfilledQuantity   = errors.New("broker reported a fill without quantity or price")
)

// Config holds the live broker connection settings
type Config struct {
	APIKey            string        `mapstructure:"api-key" json:"-"`
	APISecret         string        `mapstructure:"api-secret" json:"-"`
	BaseURL           string        `mapstructure:"base-url" json:"base-url"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute" json:"requests-per-minute"`
	Commission        fee.Model     `mapstructure:"commission" json:"commission"`
	Verbose           bool          `mapstructure:"verbose" json:"verbose"`
}

// Broker delegates execution to the broker's REST API. Orders are submitted
// once, then polled on every bar until they reach a terminal state
type Broker struct {
	m          sync.Mutex
	requester  *request.Requester
	baseURL    string
	key        string
	secret     string
	commission fee.Model
	verbose    bool
	orders     map[string]*order.Order
	// brokerIDs maps local order IDs to the broker's order IDs
	brokerIDs map[string]string
	sequence  []string
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	StopPrice     string `json:"stop_price,omitempty"`
	ClientOrderID string `json:"client_order_id"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	ClientOrderID  string              `json:"client_order_id"`
	Symbol         string              `json:"symbol"`
	Status         string              `json:"status"`
	FilledQty      decimal.Decimal     `json:"filled_qty"`
	FilledAvgPrice decimal.NullDecimal `json:"filled_avg_price"`
}

type accountResponse struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Equity         decimal.Decimal `json:"equity"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
}

type positionResponse struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}
