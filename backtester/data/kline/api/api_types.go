package api

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/exchanges/request"
)

const (
	// DefaultBaseURL is the market data endpoint
	DefaultBaseURL = "https://data.alpaca.markets"
	// DefaultTimeframe requests daily bars
	DefaultTimeframe = "1Day"
	// DefaultRequestsPerMinute keeps under the free tier limit
	DefaultRequestsPerMinute = 200
	// DefaultPageLimit is the number of bars requested per page
	DefaultPageLimit = 10000

	barsPath       = "/v2/stocks/%s/bars"
	latestBarsPath = "/v2/stocks/%s/bars/latest"
	headerKey      = "APCA-API-KEY-ID"
	headerSecret   = "APCA-API-SECRET-KEY"
)

var (
	errMissingCredentials = errors.New("missing data api credentials")
	errEmptyResponse      = errors.New("empty bar response")
	errPaginationLoop     = errors.New("page token repeated")
)

// Config holds the settings of the market data client
type Config struct {
	APIKey            string        `mapstructure:"api-key"`
	APISecret         string        `mapstructure:"api-secret"`
	BaseURL           string        `mapstructure:"base-url"`
	Feed              string        `mapstructure:"feed"`
	Timeframe         string        `mapstructure:"timeframe"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	// CacheDirectory stores downloaded history as csv bar files and is read
	// before the network when set
	CacheDirectory string `mapstructure:"cache-directory"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Client fetches historical and latest bars over REST
type Client struct {
	requester *request.Requester
	baseURL   string
	key       string
	secret    string
	feed      string
	timeframe string
	cacheDir  string
	verbose   bool
}

type barResponse struct {
	Time   time.Time       `json:"t"`
	Open   decimal.Decimal `json:"o"`
	High   decimal.Decimal `json:"h"`
	Low    decimal.Decimal `json:"l"`
	Close  decimal.Decimal `json:"c"`
	Volume decimal.Decimal `json:"v"`
}

type latestBarResponse struct {
	Symbol string       `json:"symbol"`
	Bar    *barResponse `json:"bar"`
}

type barsResponse struct {
	Symbol        string         `json:"symbol"`
	Bars          []*barResponse `json:"bars"`
	NextPageToken *string        `json:"next_page_token"`
}
