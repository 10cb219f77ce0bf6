package data

import (
	"fmt"
	"sort"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/log"
)

// SetDataForSymbol assigns a data Handler to the data map by symbol
func (d *HandlerPerSymbol) SetDataForSymbol(symbol string, k Handler) {
	if d.data == nil {
		d.data = make(map[string]Handler)
	}
	d.data[symbol] = k
}

// GetDataForSymbol returns the Handler for a specific symbol
func (d *HandlerPerSymbol) GetDataForSymbol(symbol string) (Handler, error) {
	h, ok := d.data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w %v", ErrHandlerNotFound, symbol)
	}
	return h, nil
}

// Symbols returns every loaded symbol in ascending order
func (d *HandlerPerSymbol) Symbols() []string {
	resp := make([]string, 0, len(d.data))
	for s := range d.data {
		resp = append(resp, s)
	}
	sort.Strings(resp)
	return resp
}

// Reset returns the struct to defaults
func (d *HandlerPerSymbol) Reset() {
	d.data = nil
}

// NewBase returns an empty stream for the symbol
func NewBase(symbol string) *Base {
	return &Base{symbol: symbol}
}

// Symbol returns the symbol of the stream
func (b *Base) Symbol() string {
	return b.symbol
}

// AppendStream adds bars to the end of the stream and returns how many were
// accepted. Nil, invalid, foreign and non-increasing bars are dropped with a
// warning so one bad row cannot halt a run
func (b *Base) AppendStream(bars ...*kline.Kline) int {
	var added int
	for i := range bars {
		if err := b.check(bars[i]); err != nil {
			b.dropped++
			log.Warnf(common.Data, "%v dropping bar: %v", b.symbol, err)
			continue
		}
		b.stream = append(b.stream, bars[i])
		added++
	}
	return added
}

func (b *Base) check(k *kline.Kline) error {
	if k == nil {
		return common.ErrNilEvent
	}
	if err := k.Validate(); err != nil {
		return err
	}
	if b.symbol != "" && k.Symbol != b.symbol {
		return fmt.Errorf("%w, received %v", errSymbolMismatch, k.Symbol)
	}
	if len(b.stream) > 0 && !k.Time.After(b.stream[len(b.stream)-1].Time) {
		return fmt.Errorf("%w %v", errOutOfOrder, k.Time)
	}
	return nil
}

// Next will return the next bar in the list and also shift the offset one
func (b *Base) Next() (*kline.Kline, bool) {
	if len(b.stream) <= b.offset {
		return nil, false
	}
	ret := b.stream[b.offset]
	b.offset++
	b.latest = ret
	return ret, true
}

// GetStream will return entire data list
func (b *Base) GetStream() []*kline.Kline {
	return b.stream
}

// History will return all bars up to and including the latest
func (b *Base) History() []*kline.Kline {
	return b.stream[:b.offset]
}

// Latest will return latest bar
func (b *Base) Latest() *kline.Kline {
	return b.latest
}

// List returns all future bars from the current iteration
// ill-advised to use this in strategies because you don't know the future in real life
func (b *Base) List() []*kline.Kline {
	return b.stream[b.offset:]
}

// Offset is the number of bars handed out so far
func (b *Base) Offset() int {
	return b.offset
}

// Len is the number of accepted bars
func (b *Base) Len() int {
	return len(b.stream)
}

// Dropped is the number of bars refused by AppendStream
func (b *Base) Dropped() int {
	return b.dropped
}

// StreamClose returns the close prices of the bars handed out so far
func (b *Base) StreamClose() []float64 {
	resp := make([]float64, b.offset)
	for i := range b.stream[:b.offset] {
		resp[i] = b.stream[i].Close.InexactFloat64()
	}
	return resp
}

// Reset loaded data to blank state
func (b *Base) Reset() {
	b.latest = nil
	b.offset = 0
	b.stream = nil
	b.dropped = 0
}
