package database

import (
	"context"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	gctdatabase "github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/database/repository/candle"
)

// Loader reads bars previously stored in the candles table
type Loader struct {
	db *gctdatabase.Instance
}

// NewLoader returns a loader over a connected database
func NewLoader(db *gctdatabase.Instance) (*Loader, error) {
	if !db.IsConnected() {
		return nil, gctdatabase.ErrDatabaseSupportDisabled
	}
	return &Loader{db: db}, nil
}

// Load returns the stored bars of each symbol between start and end
func (l *Loader) Load(ctx context.Context, symbols []string, start, end time.Time) (map[string][]*kline.Kline, error) {
	resp := make(map[string][]*kline.Kline, len(symbols))
	for _, symbol := range symbols {
		item, err := candle.Series(ctx, l.db, symbol, start, end)
		if err != nil {
			return nil, err
		}
		bars := make([]*kline.Kline, len(item.Candles))
		for i := range item.Candles {
			bars[i] = &kline.Kline{
				Base:   event.Base{Symbol: symbol, Time: item.Candles[i].Timestamp},
				Open:   item.Candles[i].Open,
				High:   item.Candles[i].High,
				Low:    item.Candles[i].Low,
				Close:  item.Candles[i].Close,
				Volume: item.Candles[i].Volume,
			}
		}
		resp[symbol] = bars
	}
	return resp, nil
}

// Store saves bars so later runs can load them without a download
func Store(ctx context.Context, db *gctdatabase.Instance, symbol string, bars []*kline.Kline) (uint64, error) {
	if len(bars) == 0 {
		return 0, common.ErrNilArguments
	}
	item := &candle.Item{Symbol: symbol, Candles: make([]candle.Candle, len(bars))}
	for i := range bars {
		item.Candles[i] = candle.Candle{
			Timestamp: bars[i].Time,
			Open:      bars[i].Open,
			High:      bars[i].High,
			Low:       bars[i].Low,
			Close:     bars[i].Close,
			Volume:    bars[i].Volume,
		}
	}
	return candle.Insert(ctx, db, item)
}
