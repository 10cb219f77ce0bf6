package engine

import (
	"context"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/backtester/report"
	"github.com/thrasher-corp/papertrader/log"
)

// NewPaperTrader returns a paper trader polling source every settings.Interval.
// A zero interval uses DefaultInterval
func NewPaperTrader(settings Settings, c Components, source data.LatestBarSource) (*PaperTrader, error) {
	if source == nil {
		return nil, errNilSource
	}
	if settings.Interval == 0 {
		settings.Interval = DefaultInterval
	}
	if settings.Interval < 0 {
		return nil, errInvalidInterval
	}
	cr, err := newCore(settings, c)
	if err != nil {
		return nil, err
	}
	p := &PaperTrader{
		core:   cr,
		source: source,
		now:    time.Now,
	}
	for _, sym := range cr.settings.Symbols {
		cr.data.SetDataForSymbol(sym, data.NewBase(sym))
	}
	p.signalFor = p.Strategy.OnBar
	return p, nil
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. Cancellation is observed between cycles, a cycle in progress
// always completes. The session summary is returned on exit
func (p *PaperTrader) Run(ctx context.Context) (*report.Bundle, error) {
	start := p.now().UTC()
	log.Infof(common.PaperTrader, "paper trading %v on %v every %v", p.Strategy.Name(), p.settings.Symbols, p.settings.Interval)
	ticker := time.NewTicker(p.settings.Interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			break
		}
		p.cycleOnce(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	log.Infof(common.PaperTrader, "paper trading stopped after %d cycles", p.cycle)
	return p.finish(report.ModePaper, start, p.now().UTC())
}

// cycleOnce fetches the latest bar of every symbol and runs one cycle. A
// symbol whose fetch fails is skipped for this cycle. A bar that is not newer
// than the last one seen only refreshes the symbol's price
func (p *PaperTrader) cycleOnce(ctx context.Context) {
	p.queue.Reset()
	var bars []*kline.Kline
	for _, sym := range p.settings.Symbols {
		bar, err := p.source.LatestBar(ctx, sym)
		if err != nil {
			log.Warnf(common.PaperTrader, "%v latest bar: %v", sym, err)
			continue
		}
		stream, err := p.data.GetDataForSymbol(sym)
		if err != nil {
			log.Error(common.PaperTrader, err)
			continue
		}
		if stream.AppendStream(bar) == 0 {
			if bar != nil && bar.Symbol == sym && bar.Validate() == nil {
				p.lastPrices[sym] = bar.Close
			}
			log.Debugf(common.PaperTrader, "%v no new bar", sym)
			continue
		}
		if next, ok := stream.Next(); ok {
			bars = append(bars, next)
		}
	}
	p.runCycle(ctx, bars, p.now().UTC())
}
