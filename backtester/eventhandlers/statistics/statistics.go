package statistics

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/fill"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/order"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/signal"
	"github.com/thrasher-corp/papertrader/log"
)

// NewStatistic returns a statistic ready to record a run
func NewStatistic(strategyName string, settings Settings) (*Statistic, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Statistic{
		StrategyName:     strategyName,
		Settings:         settings,
		SymbolStatistics: make(map[string]*SymbolStatistic),
	}, nil
}

// Reset returns the struct to defaults, keeping the strategy and settings
func (s *Statistic) Reset() {
	*s = Statistic{
		StrategyName:     s.StrategyName,
		Settings:         s.Settings,
		SymbolStatistics: make(map[string]*SymbolStatistic),
	}
}

// SetStrategyName sets the name for statistical identification
func (s *Statistic) SetStrategyName(name string) {
	s.StrategyName = name
}

// SetupEventForTime records a bar for its symbol
func (s *Statistic) SetupEventForTime(e common.DataEventHandler) error {
	if e == nil {
		return common.ErrNilEvent
	}
	if s.SymbolStatistics == nil {
		s.SymbolStatistics = make(map[string]*SymbolStatistic)
	}
	lookup, ok := s.SymbolStatistics[e.GetSymbol()]
	if !ok {
		lookup = &SymbolStatistic{Symbol: e.GetSymbol()}
		s.SymbolStatistics[e.GetSymbol()] = lookup
	}
	price := ValueAtTime{Time: e.GetTime(), Value: e.GetClosePrice(), Set: true}
	if !lookup.StartingClosePrice.Set {
		lookup.StartingClosePrice = price
	}
	lookup.EndingClosePrice = price
	if !lookup.LowestClosePrice.Set || price.Value.LessThan(lookup.LowestClosePrice.Value) {
		lookup.LowestClosePrice = price
	}
	if !lookup.HighestClosePrice.Set || price.Value.GreaterThan(lookup.HighestClosePrice.Value) {
		lookup.HighestClosePrice = price
	}
	lookup.Bars++

	if s.StartDate.IsZero() || e.GetTime().Before(s.StartDate) {
		s.StartDate = e.GetTime()
	}
	if e.GetTime().After(s.EndDate) {
		s.EndDate = e.GetTime()
	}
	return nil
}

// SetEventForOffset counts a signal, order or fill against its symbol
func (s *Statistic) SetEventForOffset(e common.EventHandler) error {
	if e == nil {
		return common.ErrNilEvent
	}
	lookup, ok := s.SymbolStatistics[e.GetSymbol()]
	if !ok {
		return fmt.Errorf("%w %v", errSymbolStatisticsUnset, e.GetSymbol())
	}
	switch ev := e.(type) {
	case *signal.Signal:
		switch ev.GetDirection() {
		case common.Buy, common.Sell:
			lookup.Signals++
		case common.CouldNotBuy, common.CouldNotSell:
			lookup.Signals++
			lookup.Rejections++
		}
	case *order.Order:
		switch ev.Side {
		case common.Buy:
			lookup.BuyOrders++
		case common.Sell:
			lookup.SellOrders++
		}
	case *fill.Fill:
		lookup.Fills++
		lookup.TotalFees = lookup.TotalFees.Add(ev.Commission)
	default:
		return fmt.Errorf("%w %T", common.ErrInvalidDataType, e)
	}
	return nil
}

// CalculateAllResults computes the run's metrics and totals
func (s *Statistic) CalculateAllResults(initialCapital decimal.Decimal, curve []portfolio.EquityPoint, trades []portfolio.Trade) error {
	log.Info(common.Statistics, "calculating results")
	m, err := CalculateMetrics(initialCapital, curve, trades, s.Settings)
	if err != nil {
		return err
	}
	s.Metrics = m
	s.InitialCapital = initialCapital
	s.FinalEquity = curve[len(curve)-1].TotalEquity
	s.TotalSignals, s.TotalRejections = 0, 0
	s.TotalBuyOrders, s.TotalSellOrders, s.TotalFills = 0, 0, 0
	for _, stats := range s.SymbolStatistics {
		stats.RealisedPNL = decimal.Zero
		if stats.StartingClosePrice.Value.IsPositive() {
			stats.MarketMovement = stats.EndingClosePrice.Value.Sub(stats.StartingClosePrice.Value).
				Div(stats.StartingClosePrice.Value).InexactFloat64()
		}
		s.TotalSignals += stats.Signals
		s.TotalRejections += stats.Rejections
		s.TotalBuyOrders += stats.BuyOrders
		s.TotalSellOrders += stats.SellOrders
		s.TotalFills += stats.Fills
	}
	for i := range trades {
		if stats, ok := s.SymbolStatistics[trades[i].Symbol]; ok {
			stats.RealisedPNL = stats.RealisedPNL.Add(trades[i].RealisedPNL)
		}
	}
	s.TotalOrders = s.TotalBuyOrders + s.TotalSellOrders
	return nil
}

// PrintTotalResults outputs all results to the log
func (s *Statistic) PrintTotalResults() {
	log.Info(common.Statistics, "------------------Strategy-----------------------------------")
	log.Infof(common.Statistics, "Strategy Name: %v", s.StrategyName)
	log.Infof(common.Statistics, "Period: %v to %v", s.StartDate.Format(common.SimpleTimeFormat), s.EndDate.Format(common.SimpleTimeFormat))
	log.Info(common.Statistics, "------------------Orders-------------------------------------")
	log.Infof(common.Statistics, "Total signals: %v", s.TotalSignals)
	log.Infof(common.Statistics, "Total rejections: %v", s.TotalRejections)
	log.Infof(common.Statistics, "Total buy orders: %v", s.TotalBuyOrders)
	log.Infof(common.Statistics, "Total sell orders: %v", s.TotalSellOrders)
	log.Infof(common.Statistics, "Total fills: %v", s.TotalFills)
	if s.Metrics == nil {
		return
	}
	m := s.Metrics
	log.Info(common.Statistics, "------------------Performance--------------------------------")
	log.Infof(common.Statistics, "Initial capital: $%v", s.InitialCapital.StringFixed(2))
	log.Infof(common.Statistics, "Final equity: $%v", s.FinalEquity.StringFixed(2))
	log.Infof(common.Statistics, "Total return: %.2f%%", m.TotalReturn*100)
	log.Infof(common.Statistics, "Annualised return: %.2f%%", m.AnnualisedReturn*100)
	log.Infof(common.Statistics, "Sharpe ratio: %.4f", m.SharpeRatio)
	log.Infof(common.Statistics, "Sortino ratio: %.4f", m.SortinoRatio)
	log.Infof(common.Statistics, "Calmar ratio: %.4f", m.CalmarRatio)
	log.Infof(common.Statistics, "VaR %.0f%%: %.4f%%", s.Settings.Confidence*100, m.ValueAtRisk*100)
	log.Infof(common.Statistics, "CVaR %.0f%%: %.4f%%", s.Settings.Confidence*100, m.ConditionalVaR*100)
	log.Info(common.Statistics, "------------------Biggest Drawdown---------------------------")
	log.Infof(common.Statistics, "Highest equity: $%v at %v", m.MaxDrawdown.Highest.Value.StringFixed(2), m.MaxDrawdown.Highest.Time)
	log.Infof(common.Statistics, "Lowest equity: $%v at %v", m.MaxDrawdown.Lowest.Value.StringFixed(2), m.MaxDrawdown.Lowest.Time)
	log.Infof(common.Statistics, "Calculated drawdown: %.2f%%", m.MaxDrawdown.DrawdownPercent*100)
	log.Infof(common.Statistics, "Longest drawdown: %v bars", m.MaxDrawdownDuration)
	log.Info(common.Statistics, "------------------Trades-------------------------------------")
	log.Infof(common.Statistics, "Closed trades: %v won %v lost %v", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	log.Infof(common.Statistics, "Win rate: %.2f%%", m.WinRate*100)
	log.Infof(common.Statistics, "Profit factor: %.2f", m.ProfitFactor)
	log.Infof(common.Statistics, "Average win: $%v average loss: $%v", m.AverageWin.StringFixed(2), m.AverageLoss.StringFixed(2))
}

// Serialise outputs the Statistic struct in json
func (s *Statistic) Serialise() (string, error) {
	resp, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return "", err
	}
	return string(resp), nil
}
