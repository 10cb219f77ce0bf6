package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/api"
	"github.com/thrasher-corp/papertrader/backtester/data/kline/live"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/alpaca"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/fee"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/monitor"
	"github.com/thrasher-corp/papertrader/log"
)

// credentialEnv maps config keys to the plain environment variables brokers
// document, normally supplied through a .env file
var credentialEnv = map[string]string{
	"paper.alpaca.api-key":    "ALPACA_API_KEY",
	"paper.alpaca.api-secret": "ALPACA_SECRET_KEY",
	"paper.alpaca.base-url":   "ALPACA_BASE_URL",
	"data.api.api-key":        "ALPACA_API_KEY",
	"data.api.api-secret":     "ALPACA_SECRET_KEY",
	"data.stream.api-key":     "ALPACA_API_KEY",
	"data.stream.api-secret":  "ALPACA_SECRET_KEY",
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// Load reads .env, then the config file at path, then PAPERTRADER_ prefixed
// environment overrides, on top of the defaults. An empty path searches the
// working directory for papertrader.{json,yaml,toml} and carries on without
// one when none exists
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("papertrader")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"start-date", "end-date"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		log.Debugf(common.Config, "no config file found, using defaults and environment")
	} else {
		log.Infof(common.Config, "loaded config file %v", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeHookFunc(common.SimpleTimeFormat),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.Normalise()
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{})
	v.SetDefault("strategy.name", "sma")
	v.SetDefault("initial-capital", "100000")
	v.SetDefault("commission.type", string(fee.Flat))
	v.SetDefault("commission.value", "0")
	v.SetDefault("slippage", "0.001")
	v.SetDefault("risk.max-position-size", "0.10")
	v.SetDefault("risk.max-drawdown", "0.20")
	v.SetDefault("risk.max-loss-per-trade", "0.02")
	v.SetDefault("risk.stop-loss", "0.02")
	v.SetDefault("order-style.type", string(order.Market))
	v.SetDefault("order-style.offset", "0")
	v.SetDefault("statistics.risk-free-rate", 0.02)
	v.SetDefault("statistics.periods-per-year", 252.0)
	v.SetDefault("statistics.confidence", 0.95)

	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.directory", "data")
	v.SetDefault("data.feed", FeedREST)
	v.SetDefault("data.api.base-url", api.DefaultBaseURL)
	v.SetDefault("data.api.timeframe", api.DefaultTimeframe)
	v.SetDefault("data.api.timeout", alpaca.DefaultTimeout)
	v.SetDefault("data.api.requests-per-minute", api.DefaultRequestsPerMinute)
	v.SetDefault("data.api.cache-directory", "")
	v.SetDefault("data.stream.url", live.DefaultURL)
	v.SetDefault("data.stream.handshake-timeout", live.DefaultHandshakeTimeout)

	v.SetDefault("paper.interval", 60*time.Second)
	v.SetDefault("paper.use-alpaca", false)
	v.SetDefault("paper.alpaca.base-url", alpaca.DefaultBaseURL)
	v.SetDefault("paper.alpaca.timeout", alpaca.DefaultTimeout)
	v.SetDefault("paper.alpaca.requests-per-minute", alpaca.DefaultRequestsPerMinute)
	v.SetDefault("paper.monitor-listen", "")
	v.SetDefault("paper.thresholds.max-drawdown", "0.20")
	v.SetDefault("paper.thresholds.max-position-size", "0.10")
	v.SetDefault("paper.thresholds.min-cash-percent", "0.05")
	v.SetDefault("paper.queue-size", monitor.DefaultQueueSize)
	v.SetDefault("paper.metrics-file", "")

	v.SetDefault("report.output-dir", "results")
	v.SetDefault("report.save-to-database", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.database", "papertrader.db")

	logging := log.GenDefaultSettings()
	v.SetDefault("logging.enabled", logging.Enabled)
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.output", logging.Output)
	v.SetDefault("logging.format", logging.Format)
}

// decimalHook decodes strings and numbers into decimals without passing
// through a float where the source is text
func decimalHook(from, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch d := data.(type) {
	case string:
		if d == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(d))
	case float64:
		return decimal.NewFromFloat(d), nil
	case float32:
		return decimal.NewFromFloat32(d), nil
	case int:
		return decimal.NewFromInt(int64(d)), nil
	case int64:
		return decimal.NewFromInt(d), nil
	case int32:
		return decimal.NewFromInt32(d), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(d), 0), nil
	}
	return data, nil
}

// Normalise canonicalises symbol, strategy and source spellings. Call it again
// after changing a loaded config
func (c *Config) Normalise() {
	for i := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(c.Symbols[i]))
	}
	c.Strategy.Name = strings.ToLower(strings.TrimSpace(c.Strategy.Name))
	c.OrderStyle.Type = strings.ToUpper(strings.TrimSpace(c.OrderStyle.Type))
	c.Data.Source = strings.ToLower(c.Data.Source)
	c.Data.Feed = strings.ToLower(c.Data.Feed)
	c.Data.Stream.Symbols = c.Symbols
	if c.Paper.Alpaca.Commission.Type == "" {
		c.Paper.Alpaca.Commission = c.Commission
	}
}

// Validate checks every setting shared by both modes
func (c *Config) Validate() error {
	if c == nil {
		return common.ErrNilArguments
	}
	for _, validate := range []func() error{
		c.validateSymbols,
		c.validateStrategy,
		c.validateCosts,
		c.validateRisk,
		c.validateOrderStyle,
		c.Statistics.Validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBacktest checks the settings a historical replay needs
func (c *Config) ValidateBacktest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := ValidateDates(c.StartDate, c.EndDate); err != nil {
		return err
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Directory == "" {
			return errNoDataDirectory
		}
	case SourceAPI:
	case SourceDatabase:
		if !c.Database.Enabled {
			return errNoDatabase
		}
	default:
		return fmt.Errorf("%w %q", errUnknownSource, c.Data.Source)
	}
	return nil
}

// ValidatePaper checks the settings the paper trading loop needs
func (c *Config) ValidatePaper() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Paper.Interval <= 0 {
		return fmt.Errorf("%w, received %v", errInvalidInterval, c.Paper.Interval)
	}
	if c.Data.Feed != FeedREST && c.Data.Feed != FeedStream {
		return fmt.Errorf("%w %q", errUnknownFeed, c.Data.Feed)
	}
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"max-drawdown":      c.Paper.Thresholds.MaxDrawdown,
		"max-position-size": c.Paper.Thresholds.MaxPositionSize,
		"min-cash-percent":  c.Paper.Thresholds.MinCashPercent,
	} {
		if err := ValidatePercentage(v, decimal.Zero, one); err != nil {
			return fmt.Errorf("alert threshold %v: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateSymbols() error {
	if len(c.Symbols) == 0 {
		return errNoSymbols
	}
	return ValidateSymbols(c.Symbols)
}

func (c *Config) validateStrategy() error {
	if c.Strategy.Name == "" {
		return errNoStrategy
	}
	_, err := strategies.LoadStrategyByName(c.Strategy.Name, c.Strategy.Settings)
	return err
}

func (c *Config) validateCosts() error {
	if err := ValidateCapital(c.InitialCapital); err != nil {
		return err
	}
	if err := c.Commission.Validate(); err != nil {
		return err
	}
	return slippage.Validate(c.Slippage)
}

func (c *Config) validateRisk() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"max-position-size":  c.Risk.MaxPositionSize,
		"max-drawdown":       c.Risk.MaxDrawdown,
		"max-loss-per-trade": c.Risk.MaxLossPerTrade,
		"stop-loss":          c.Risk.StopLoss,
	} {
		if !v.IsPositive() || v.GreaterThan(one) {
			return fmt.Errorf("%w %v must be within (0, 1], received %v", ErrInvalidRiskLimit, name, v)
		}
	}
	return nil
}

func (c *Config) validateOrderStyle() error {
	switch order.Type(c.OrderStyle.Type) {
	case "", order.Market:
		return nil
	case order.Limit, order.Stop, order.StopLimit:
		if !c.OrderStyle.Offset.IsPositive() || c.OrderStyle.Offset.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w %v offset must be within (0, 1), received %v", errInvalidOrderType, c.OrderStyle.Type, c.OrderStyle.Offset)
		}
		return nil
	}
	return fmt.Errorf("%w %q", errInvalidOrderType, c.OrderStyle.Type)
}

// PrintSetting logs the settings in effect
func (c *Config) PrintSetting() {
	log.Info(common.Config, "------------------Run Settings-------------------------------")
	log.Infof(common.Config, "Symbols: %v", strings.Join(c.Symbols, ", "))
	if !c.StartDate.IsZero() {
		log.Infof(common.Config, "Period: %v to %v", c.StartDate.Format(common.SimpleTimeFormat), c.EndDate.Format(common.SimpleTimeFormat))
	}
	log.Infof(common.Config, "Strategy: %v", c.Strategy.Name)
	if len(c.Strategy.Settings) > 0 {
		for k, v := range c.Strategy.Settings {
			log.Infof(common.Config, "  %v: %v", k, v)
		}
	} else {
		log.Info(common.Config, "  custom settings: unset")
	}
	log.Info(common.Config, "------------------Cost Settings------------------------------")
	log.Infof(common.Config, "Initial capital: %v", c.InitialCapital.StringFixed(2))
	log.Infof(common.Config, "Commission: %v %v", c.Commission.Type, c.Commission.Value)
	log.Infof(common.Config, "Slippage: %v", c.Slippage)
	log.Info(common.Config, "------------------Risk Settings------------------------------")
	log.Infof(common.Config, "Max position size: %v", c.Risk.MaxPositionSize)
	log.Infof(common.Config, "Max drawdown: %v", c.Risk.MaxDrawdown)
	log.Infof(common.Config, "Max loss per trade: %v", c.Risk.MaxLossPerTrade)
	log.Infof(common.Config, "Stop loss: %v", c.Risk.StopLoss)
	if c.OrderStyle.Type != "" && c.OrderStyle.Type != string(order.Market) {
		log.Infof(common.Config, "Order style: %v offset %v", c.OrderStyle.Type, c.OrderStyle.Offset)
	}
	log.Info(common.Config, "------------------Data Settings------------------------------")
	log.Infof(common.Config, "Source: %v", c.Data.Source)
	if c.Data.Source == SourceCSV {
		log.Infof(common.Config, "Directory: %v", c.Data.Directory)
	}
	log.Infof(common.Config, "Live feed: %v", c.Data.Feed)
}
