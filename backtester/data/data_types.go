package data

import (
	"context"
	"errors"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
)

var (
	// ErrHandlerNotFound returned when a handler is not found for a symbol
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrNoBars is returned when a source has nothing for a symbol
	ErrNoBars = errors.New("no bars available")

	errSymbolMismatch = errors.New("bar symbol does not match stream")
	errOutOfOrder     = errors.New("bar timestamp is not after the previous bar")
)

// Loader loads historical bars for each requested symbol over a date range.
// Each returned series is in ascending time order
type Loader interface {
	Load(ctx context.Context, symbols []string, start, end time.Time) (map[string][]*kline.Kline, error)
}

// LatestBarSource returns the most recent completed bar for a symbol
type LatestBarSource interface {
	LatestBar(ctx context.Context, symbol string) (*kline.Kline, error)
}

// Holder interface dictates what a data holder is expected to do
type Holder interface {
	SetDataForSymbol(string, Handler)
	GetDataForSymbol(string) (Handler, error)
	Symbols() []string
	Reset()
}

// HandlerPerSymbol stores a data stream per symbol
type HandlerPerSymbol struct {
	data map[string]Handler
}

// Handler interface for streaming the bars of a single symbol
type Handler interface {
	Streamer
	AppendStream(bars ...*kline.Kline) int
	Reset()
}

// Streamer hands out bars in order without exposing bars ahead of the offset
type Streamer interface {
	Next() (*kline.Kline, bool)
	GetStream() []*kline.Kline
	History() []*kline.Kline
	Latest() *kline.Kline
	List() []*kline.Kline
	Offset() int
	Len() int
	Dropped() int
	StreamClose() []float64
}

// Base is the stream of validated bars for one symbol
type Base struct {
	symbol  string
	latest  *kline.Kline
	stream  []*kline.Kline
	offset  int
	dropped int
}
