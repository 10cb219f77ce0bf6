package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/backtester/report"
	"github.com/thrasher-corp/papertrader/log"
)

// NewBacktest validates the run settings and returns a backtest ready to run.
// Components hold state, so each run needs freshly set up components
func NewBacktest(settings Settings, c Components, loader data.Loader) (*BackTest, error) {
	if loader == nil {
		return nil, errNilLoader
	}
	if settings.StartDate.IsZero() || settings.EndDate.IsZero() || !settings.StartDate.Before(settings.EndDate) {
		return nil, errInvalidDateRange
	}
	cr, err := newCore(settings, c)
	if err != nil {
		return nil, err
	}
	return &BackTest{
		core:    cr,
		loader:  loader,
		signals: make(map[string][]*signal.Signal),
	}, nil
}

// Run loads every symbol, computes each symbol's signals over its whole
// history and replays the union of bar timestamps in ascending order. A
// cancelled context stops the replay before the next timestamp and no
// results are returned
func (b *BackTest) Run(ctx context.Context) (*report.Bundle, error) {
	if err := b.loadData(ctx); err != nil {
		return nil, err
	}
	if err := b.generateSignals(); err != nil {
		return nil, err
	}
	b.signalFor = b.precomputedSignal

	times := b.timestamps()
	log.Infof(common.Backtester, "running %v over %v from %v to %v, %d timestamps",
		b.Strategy.Name(), b.settings.Symbols, b.settings.StartDate.Format(common.SimpleTimeFormat),
		b.settings.EndDate.Format(common.SimpleTimeFormat), len(times))
	for i := range times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := b.advance(times[i])
		if err != nil {
			return nil, err
		}
		b.runCycle(ctx, bars, times[i])
	}
	return b.finish(report.ModeBacktest, b.settings.StartDate, b.settings.EndDate)
}

func (b *BackTest) loadData(ctx context.Context) error {
	loaded, err := b.loader.Load(ctx, b.settings.Symbols, b.settings.StartDate, b.settings.EndDate)
	if err != nil {
		return err
	}
	for _, sym := range b.settings.Symbols {
		bars := loaded[sym]
		if len(bars) == 0 {
			return fmt.Errorf("%w %v", ErrNoDataForSymbol, sym)
		}
		stream := data.NewBase(sym)
		if stream.AppendStream(bars...) == 0 {
			return fmt.Errorf("%w %v, all %d bars were invalid", ErrNoDataForSymbol, sym, len(bars))
		}
		if stream.Dropped() > 0 {
			log.Warnf(common.Data, "%v %d of %d bars dropped", sym, stream.Dropped(), len(bars))
		}
		b.data.SetDataForSymbol(sym, stream)
	}
	return nil
}

// generateSignals runs the strategy once per symbol over the whole series.
// A strategy failure is fatal since the replay would have no decisions
func (b *BackTest) generateSignals() error {
	for _, sym := range b.data.Symbols() {
		stream, err := b.data.GetDataForSymbol(sym)
		if err != nil {
			return err
		}
		bars := stream.GetStream()
		sigs, err := b.Strategy.GenerateSignals(sym, bars)
		if err != nil {
			return fmt.Errorf("strategy %v %v: %w", b.Strategy.Name(), sym, err)
		}
		if len(sigs) != len(bars) {
			return fmt.Errorf("%w %v returned %d signals for %d bars", errSignalCountInvalid, sym, len(sigs), len(bars))
		}
		b.signals[sym] = sigs
	}
	return nil
}

// precomputedSignal returns the signal computed for the bar the symbol's
// stream has just advanced to
func (b *BackTest) precomputedSignal(bar *kline.Kline) (*signal.Signal, error) {
	stream, err := b.data.GetDataForSymbol(bar.Symbol)
	if err != nil {
		return nil, err
	}
	idx := stream.Offset() - 1
	sigs := b.signals[bar.Symbol]
	if idx < 0 || idx >= len(sigs) {
		return nil, fmt.Errorf("%w %v no signal at bar %d", errSignalCountInvalid, bar.Symbol, idx)
	}
	return sigs[idx], nil
}

// timestamps returns the sorted union of bar times across all symbols
func (b *BackTest) timestamps() []time.Time {
	seen := make(map[int64]time.Time)
	for _, sym := range b.data.Symbols() {
		stream, err := b.data.GetDataForSymbol(sym)
		if err != nil {
			continue
		}
		bars := stream.GetStream()
		for i := range bars {
			seen[bars[i].Time.UnixNano()] = bars[i].Time
		}
	}
	resp := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		resp = append(resp, t)
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Before(resp[j]) })
	return resp
}

// advance moves every symbol with a bar at t forward by one bar. Symbols
// without a bar at t keep their last price
func (b *BackTest) advance(t time.Time) ([]*kline.Kline, error) {
	var bars []*kline.Kline
	for _, sym := range b.data.Symbols() {
		stream, err := b.data.GetDataForSymbol(sym)
		if err != nil {
			return nil, err
		}
		upcoming := stream.List()
		if len(upcoming) == 0 || !upcoming[0].Time.Equal(t) {
			continue
		}
		bar, ok := stream.Next()
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
