package engine

import (
	"context"
	"fmt"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/config"
	"github.com/thrasher-corp/papertrader/backtester/data"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/api"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/csv"
	dbloader "github.com/thrasher-corp/papertrader/backtester/data/kline/database"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/live"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/alpaca"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio/size"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/log"
)

// NewBacktestFromConfig builds a backtest from a validated config. db is
// only required when bars are read from the database
func NewBacktestFromConfig(cfg *config.Config, db *database.Instance) (*BackTest, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	log.Info(common.Backtester, "loading config...")
	if err := cfg.ValidateBacktest(); err != nil {
		return nil, err
	}
	cfg.PrintSetting()
	c, err := setupComponents(cfg, false)
	if err != nil {
		return nil, err
	}
	loader, err := setupLoader(cfg, db)
	if err != nil {
		return nil, err
	}
	return NewBacktest(Settings{
		Symbols:    cfg.Symbols,
		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		OrderStyle: orderStyle(cfg),
	}, c, loader)
}

// NewPaperTraderFromConfig builds a paper trader from a validated config. The
// returned shutdown func releases the latest bar feed and must be called once
// the trader has stopped
func NewPaperTraderFromConfig(ctx context.Context, cfg *config.Config, notifier monitor.Notifier) (*PaperTrader, func() error, error) {
	if cfg == nil {
		return nil, nil, errNilConfig
	}
	log.Info(common.PaperTrader, "loading config...")
	if err := cfg.ValidatePaper(); err != nil {
		return nil, nil, err
	}
	cfg.PrintSetting()
	c, err := setupComponents(cfg, cfg.Paper.UseAlpaca)
	if err != nil {
		return nil, nil, err
	}
	c.Notifier = notifier
	source, shutdown, err := setupLatestBarSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := NewPaperTrader(Settings{
		Symbols:    cfg.Symbols,
		Interval:   cfg.Paper.Interval,
		OrderStyle: orderStyle(cfg),
	}, c, source)
	if err != nil {
		if shutdownErr := shutdown(); shutdownErr != nil {
			log.Error(common.PaperTrader, shutdownErr)
		}
		return nil, nil, err
	}
	return p, shutdown, nil
}

func orderStyle(cfg *config.Config) OrderStyle {
	return OrderStyle{Type: order.Type(cfg.OrderStyle.Type), Offset: cfg.OrderStyle.Offset}
}

// setupComponents wires the strategy, sizing, risk, portfolio, broker and
// statistics from the config. useBroker selects the live broker over the
// virtual one
func setupComponents(cfg *config.Config, useBroker bool) (Components, error) {
	strat, err := strategies.LoadStrategyByName(cfg.Strategy.Name, cfg.Strategy.Settings)
	if err != nil {
		return Components{}, err
	}
	sizer, err := size.Setup(cfg.Risk.MaxPositionSize, cfg.Risk.MaxLossPerTrade, cfg.Risk.StopLoss)
	if err != nil {
		return Components{}, err
	}
	rm, err := risk.Setup(risk.Limits{
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxDrawdown:     cfg.Risk.MaxDrawdown,
		Slippage:        cfg.Slippage,
		Commission:      cfg.Commission,
	})
	if err != nil {
		return Components{}, err
	}
	p, err := portfolio.Setup(cfg.InitialCapital, sizer, rm)
	if err != nil {
		return Components{}, err
	}
	var ex exchange.Handler
	if useBroker {
		log.Warn(common.PaperTrader, "orders will be sent to the broker's paper trading account")
		ex, err = alpaca.Setup(&cfg.Paper.Alpaca)
	} else {
		ex, err = exchange.Setup(cfg.Slippage, cfg.Commission, p)
	}
	if err != nil {
		return Components{}, err
	}
	stats, err := statistics.NewStatistic(strat.Name(), cfg.Statistics)
	if err != nil {
		return Components{}, err
	}
	return Components{
		Strategy:  strat,
		Portfolio: p,
		Exchange:  ex,
		Risk:      rm,
		Statistic: stats,
	}, nil
}

func setupLoader(cfg *config.Config, db *database.Instance) (data.Loader, error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		return csv.NewLoader(cfg.Data.Directory)
	case config.SourceAPI:
		return api.New(&cfg.Data.API)
	case config.SourceDatabase:
		if !db.IsConnected() {
			return nil, fmt.Errorf("%w, bars cannot be read", database.ErrDatabaseSupportDisabled)
		}
		return dbloader.NewLoader(db)
	}
	return nil, fmt.Errorf("%w %q", errUnknownSource, cfg.Data.Source)
}

func setupLatestBarSource(ctx context.Context, cfg *config.Config) (data.LatestBarSource, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Data.Feed {
	case config.FeedREST:
		c, err := api.New(&cfg.Data.API)
		if err != nil {
			return nil, nil, err
		}
		return c, noop, nil
	case config.FeedStream:
		s, err := live.New(&cfg.Data.Stream)
		if err != nil {
			return nil, nil, err
		}
		if err = s.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return s, s.Shutdown, nil
	}
	return nil, nil, fmt.Errorf("%w %q", errUnknownSource, cfg.Data.Feed)
}
