package live

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
)

const (
	// DefaultURL is the free tier market data stream
	DefaultURL = "wss://stream.data.alpaca.markets/v2/iex"
	// DefaultHandshakeTimeout bounds the dial, authentication and subscription
	DefaultHandshakeTimeout = 10 * time.Second

	messageTrade        = "t"
	messageBar          = "b"
	messageSuccess      = "success"
	messageSubscription = "subscription"
	messageError        = "error"

	msgConnected     = "connected"
	msgAuthenticated = "authenticated"
)

var (
	errNoSymbols          = errors.New("no symbols to subscribe to")
	errAlreadyConnected   = errors.New("stream already connected")
	errNotConnected       = errors.New("stream not connected")
	errStreamError        = errors.New("stream returned an error")
	errUnexpectedResponse = errors.New("unexpected handshake response")
	errNoData             = errors.New("no trade or bar received yet")
)

// Config holds the stream connection settings
type Config struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api-key"`
	APISecret        string        `mapstructure:"api-secret"`
	Symbols          []string      `mapstructure:"symbols"`
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`
	Verbose          bool          `mapstructure:"verbose"`
}

// Stream keeps the latest trade and bar of each subscribed symbol
type Stream struct {
	url              string
	key              string
	secret           string
	symbols          []string
	handshakeTimeout time.Duration
	verbose          bool

	dialer       *websocket.Dialer
	conn         *websocket.Conn
	writeControl sync.Mutex
	connected    atomic.Bool
	wg           sync.WaitGroup

	m      sync.RWMutex
	trades map[string]*kline.Kline
	bars   map[string]*kline.Kline
}

type authRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscribeRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
	Bars   []string `json:"bars"`
}
