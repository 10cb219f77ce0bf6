package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/config"
	"github.com/thrasher-corp/papertrader/backtester/engine"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/backtester/report"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/log"
	"github.com/thrasher-corp/papertrader/signaler"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

var errInvalidFlag = errors.New("invalid flag value")

func strategyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "the strategy to run, see the strategies command",
		},
		&cli.StringSliceFlag{
			Name:  "symbols",
			Usage: "comma separated tickers to trade, eg AAPL,MSFT",
		},
		&cli.StringFlag{
			Name:  "capital",
			Usage: "the starting cash balance",
		},
		&cli.StringFlag{
			Name:  "commission",
			Usage: "the commission charged per fill",
		},
		&cli.StringFlag{
			Name:  "commission-type",
			Usage: "flat or proportional",
		},
		&cli.StringFlag{
			Name:  "slippage",
			Usage: "the fraction market fills move against the order",
		},
		&cli.IntFlag{Name: "short-window", Usage: "sma short window"},
		&cli.IntFlag{Name: "long-window", Usage: "sma long window"},
		&cli.IntFlag{Name: "rsi-period", Usage: "rsi lookback"},
		&cli.Float64Flag{Name: "oversold", Usage: "rsi buy threshold"},
		&cli.Float64Flag{Name: "overbought", Usage: "rsi sell threshold"},
		&cli.IntFlag{Name: "bb-period", Usage: "bollinger lookback"},
		&cli.Float64Flag{Name: "bb-std", Usage: "bollinger band width in standard deviations"},
		&cli.StringFlag{Name: "bb-exit", Usage: "bollinger exit band, upper or mean"},
		&cli.IntFlag{Name: "macd-fast", Usage: "macd fast period"},
		&cli.IntFlag{Name: "macd-slow", Usage: "macd slow period"},
		&cli.IntFlag{Name: "macd-signal", Usage: "macd signal period"},
		&cli.StringFlag{Name: "script", Usage: "path of the tengo script run by the script strategy"},
	}
}

func newBacktestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "replays historical bars through a strategy and writes a report",
		Flags: append([]cli.Flag{
			&cli.TimestampFlag{
				Name:   "start",
				Usage:  "first day to replay, " + common.SimpleTimeFormat,
				Layout: common.SimpleTimeFormat,
			},
			&cli.TimestampFlag{
				Name:   "end",
				Usage:  "last day to replay, " + common.SimpleTimeFormat,
				Layout: common.SimpleTimeFormat,
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory of <SYMBOL>.csv bar files, selects the csv source",
			},
			&cli.StringFlag{
				Name:  "report-dir",
				Usage: "where reports are written",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "sqlite file the run is saved to",
			},
		}, strategyFlags()...),
		Action: runBacktest,
	}
}

func newPaperCommand() *cli.Command {
	return &cli.Command{
		Name:  "paper",
		Usage: "trades the latest bars on a timer until interrupted",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "time between trading cycles",
			},
			&cli.BoolFlag{
				Name:  "use-alpaca",
				Usage: "send orders to the broker's paper account instead of the virtual broker",
			},
			&cli.StringFlag{
				Name:  "feed",
				Usage: "latest bar feed, rest or stream",
			},
			&cli.StringFlag{
				Name:  "monitor-listen",
				Usage: "address to serve the monitor on, eg localhost:9050",
			},
			&cli.StringFlag{
				Name:  "report-dir",
				Usage: "where reports are written",
			},
		}, strategyFlags()...),
		Action: runPaper,
	}
}

var strategiesCommand = &cli.Command{
	Name:  "strategies",
	Usage: "lists the available strategies",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		for _, s := range strategies.GetStrategies() {
			fmt.Fprintf(w, "%v\t%v\n", s.Name(), s.Description())
		}
		return w.Flush()
	},
}

// loadConfig reads the config file then applies the command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("loglevel") {
		cfg.Logging.Level = c.String("loglevel")
	}
	if c.IsSet("logformat") {
		cfg.Logging.Format = c.String("logformat")
	}
	if c.IsSet("migration-dir") {
		cfg.Database.MigrationDir = c.String("migration-dir")
	}
	if err = log.SetupGlobalLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	if err = applyFlags(c, cfg); err != nil {
		return nil, err
	}
	cfg.Normalise()
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("symbols") {
		cfg.Symbols = c.StringSlice("symbols")
	}
	if c.IsSet("strategy") {
		name := strings.ToLower(c.String("strategy"))
		if name != cfg.Strategy.Name {
			cfg.Strategy.Settings = nil
		}
		cfg.Strategy.Name = name
	}
	for flag, dst := range map[string]*decimal.Decimal{
		"capital":    &cfg.InitialCapital,
		"commission": &cfg.Commission.Value,
		"slippage":   &cfg.Slippage,
	} {
		if !c.IsSet(flag) {
			continue
		}
		d, err := decimal.NewFromString(c.String(flag))
		if err != nil {
			return fmt.Errorf("%w --%v: %v", errInvalidFlag, flag, err)
		}
		*dst = d
	}
	if c.IsSet("commission-type") {
		t, err := fee.ParseType(c.String("commission-type"))
		if err != nil {
			return err
		}
		cfg.Commission.Type = t
	}
	applyStrategySettings(c, cfg)

	if c.IsSet("start") {
		cfg.StartDate = c.Timestamp("start").UTC()
	}
	if c.IsSet("end") {
		cfg.EndDate = c.Timestamp("end").UTC()
	}
	if c.IsSet("data-dir") {
		cfg.Data.Source = config.SourceCSV
		cfg.Data.Directory = c.String("data-dir")
	}
	if c.IsSet("report-dir") {
		cfg.Report.OutputDir = c.String("report-dir")
	}
	if c.IsSet("database") {
		cfg.Database.Enabled = true
		cfg.Database.Driver = database.DBSQLite3
		cfg.Database.Database = c.String("database")
		cfg.Report.SaveToDB = true
	}

	if c.IsSet("interval") {
		cfg.Paper.Interval = c.Duration("interval")
	}
	if c.IsSet("use-alpaca") {
		cfg.Paper.UseAlpaca = c.Bool("use-alpaca")
	}
	if c.IsSet("feed") {
		cfg.Data.Feed = c.String("feed")
	}
	if c.IsSet("monitor-listen") {
		cfg.Paper.MonitorListen = c.String("monitor-listen")
	}
	return nil
}

func applyStrategySettings(c *cli.Context, cfg *config.Config) {
	set := func(key string, value any) {
		if cfg.Strategy.Settings == nil {
			cfg.Strategy.Settings = make(map[string]any)
		}
		cfg.Strategy.Settings[key] = value
	}
	for _, name := range []string{"short-window", "long-window", "rsi-period", "bb-period", "macd-fast", "macd-slow", "macd-signal"} {
		if c.IsSet(name) {
			set(name, c.Int(name))
		}
	}
	for _, name := range []string{"oversold", "overbought", "bb-std"} {
		if c.IsSet(name) {
			set(name, c.Float64(name))
		}
	}
	if c.IsSet("bb-exit") {
		set("bb-exit", strings.ToLower(c.String("bb-exit")))
	}
	if c.IsSet("script") {
		set("script-file", c.String("script"))
	}
}

func runBacktest(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := signaler.WithInterrupt(c.Context)
	defer cancel()

	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	bt, err := engine.NewBacktestFromConfig(cfg, db)
	if err != nil {
		return err
	}
	b, err := bt.Run(ctx)
	if err != nil {
		return err
	}
	return writeResults(c, cfg, b, db)
}

func runPaper(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := signaler.WithInterrupt(c.Context)
	defer cancel()

	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	m := monitor.New(cfg.Paper.Thresholds, cfg.Paper.QueueSize)
	if err = m.Start(); err != nil {
		return err
	}
	if cfg.Paper.MonitorListen != "" {
		var srv *monitor.Server
		srv, err = monitor.NewServer(m)
		if err != nil {
			return stopMonitor(m, err)
		}
		if err = srv.Start(cfg.Paper.MonitorListen); err != nil {
			return stopMonitor(m, err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(common.Monitor, err)
			}
		}()
	}

	p, shutdown, err := engine.NewPaperTraderFromConfig(ctx, cfg, m)
	if err != nil {
		return stopMonitor(m, err)
	}
	log.Infof(common.PaperTrader, "paper trading %v every %v, interrupt to stop", strings.Join(cfg.Symbols, ", "), cfg.Paper.Interval)
	b, runErr := p.Run(ctx)
	if err = shutdown(); err != nil {
		log.Error(common.PaperTrader, err)
	}
	if err = stopMonitor(m, runErr); err != nil {
		return err
	}
	if cfg.Paper.MetricsFile != "" {
		if err = m.Collector.SaveJSON(cfg.Paper.MetricsFile); err != nil {
			log.Error(common.Monitor, err)
		}
	}
	return writeResults(c, cfg, b, db)
}

// stopMonitor drains the monitor and returns cause, or the stop error when
// there is no cause
func stopMonitor(m *monitor.Monitor, cause error) error {
	if err := m.Stop(); err != nil {
		if cause != nil {
			log.Error(common.Monitor, err)
			return cause
		}
		return err
	}
	return cause
}

func connectDatabase(ctx context.Context, cfg *config.Config) (*database.Instance, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	return database.Connect(ctx, &cfg.Database)
}

func closeDatabase(db *database.Instance) {
	if !db.IsConnected() {
		return
	}
	if err := db.CloseConnection(); err != nil {
		log.Error(common.Database, err)
	}
}

func writeResults(c *cli.Context, cfg *config.Config, b *report.Bundle, db *database.Instance) error {
	if err := b.WriteText(c.App.Writer); err != nil {
		return err
	}
	files, err := b.Generate(cfg.Report.OutputDir)
	if err != nil {
		return err
	}
	for i := range files {
		log.Infof(common.Report, "wrote %v", files[i])
	}
	if cfg.Report.SaveToDB {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Context), shutdownTimeout)
		defer cancel()
		if err = b.Save(ctx, db); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
	}
	return nil
}
