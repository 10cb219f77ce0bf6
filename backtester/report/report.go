package report

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/database/repository/run"
	"github.com/thrasher-corp/papertrader/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed tpl.gohtml
var reportTemplate string

var printer = message.NewPrinter(language.English)

// Generate writes the JSON bundle, the text summary and the HTML report to
// dir, returning the files written
func (b *Bundle) Generate(dir string) ([]string, error) {
	if b == nil {
		return nil, errNilBundle
	}
	if dir == "" {
		return nil, errNoOutputDir
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, err
	}
	base, err := common.GenerateFileName(b.fileStem(), "json")
	if err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(base, ".json")

	jsonPath := filepath.Join(dir, stem+".json")
	if err = b.WriteJSON(jsonPath); err != nil {
		return nil, err
	}
	textPath := filepath.Join(dir, stem+".txt")
	if err = writeFile(textPath, func(w io.Writer) error { return b.WriteText(w) }); err != nil {
		return nil, err
	}
	htmlPath := filepath.Join(dir, stem+".html")
	if err = writeFile(htmlPath, b.GenerateHTML); err != nil {
		return nil, err
	}
	log.Infof(common.Report, "report written to %v", dir)
	return []string{jsonPath, textPath, htmlPath}, nil
}

func (b *Bundle) fileStem() string {
	return fmt.Sprintf("%v-%v-%v", b.Mode, b.Strategy, b.GeneratedAt.UTC().Format("2006-01-02-15-04-05"))
}

// WriteJSON writes the bundle as indented JSON
func (b *Bundle) WriteJSON(path string) error {
	if b == nil {
		return errNilBundle
	}
	payload, err := json.MarshalIndent(b, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o640)
}

// WriteText writes the human readable summary
func (b *Bundle) WriteText(w io.Writer) error {
	if b == nil {
		return errNilBundle
	}
	_, err := io.WriteString(w, b.Text())
	return err
}

// Text renders the summary of the run
func (b *Bundle) Text() string {
	var sb strings.Builder
	line := strings.Repeat("=", 60)
	title := "BACKTEST RESULTS"
	if b.Mode == ModePaper {
		title = "PAPER TRADING SESSION ENDED"
	}
	sb.WriteString("\n" + line + "\n" + title + "\n" + line + "\n")
	sb.WriteString(printer.Sprintf("\nStrategy: %v\n", b.Strategy))
	sb.WriteString(printer.Sprintf("Symbols: %v\n", strings.Join(b.Symbols, ", ")))
	sb.WriteString(printer.Sprintf("Initial Capital: $%.2f\n", b.InitialCapital.InexactFloat64()))
	sb.WriteString(printer.Sprintf("Final Portfolio Value: $%.2f\n", b.FinalEquity.InexactFloat64()))

	var stats = b.Statistics
	if stats == nil || stats.Metrics == nil {
		sb.WriteString("\nNo metrics were calculated\n")
		sb.WriteString(line + "\n")
		return sb.String()
	}
	m := stats.Metrics
	sb.WriteString(printer.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	sb.WriteString("\nRisk-Adjusted Performance:\n")
	sb.WriteString(printer.Sprintf("  Sharpe Ratio: %.3f\n", m.SharpeRatio))
	sb.WriteString(printer.Sprintf("  Sortino Ratio: %.3f\n", m.SortinoRatio))
	sb.WriteString(printer.Sprintf("  Calmar Ratio: %.3f\n", m.CalmarRatio))
	sb.WriteString("\nDrawdown Analysis:\n")
	sb.WriteString(printer.Sprintf("  Max Drawdown: %.2f%%\n", m.MaxDrawdown.DrawdownPercent*100))
	sb.WriteString(printer.Sprintf("  Max Drawdown Duration: %d bars\n", m.MaxDrawdownDuration))
	sb.WriteString("\nTrading Statistics:\n")
	sb.WriteString(printer.Sprintf("  Total Trades: %d\n", m.TotalTrades))
	sb.WriteString(printer.Sprintf("  Winning Trades: %d\n", m.WinningTrades))
	sb.WriteString(printer.Sprintf("  Losing Trades: %d\n", m.LosingTrades))
	sb.WriteString(printer.Sprintf("  Win Rate: %.2f%%\n", m.WinRate*100))
	sb.WriteString(printer.Sprintf("  Average Win: $%.2f\n", m.AverageWin.InexactFloat64()))
	sb.WriteString(printer.Sprintf("  Average Loss: $%.2f\n", m.AverageLoss.InexactFloat64()))
	sb.WriteString(printer.Sprintf("  Profit Factor: %.2f\n", m.ProfitFactor))
	sb.WriteString("\nRisk Metrics:\n")
	sb.WriteString(printer.Sprintf("  Value at Risk (%.0f%%): %.4f\n", stats.Settings.Confidence*100, m.ValueAtRisk))
	sb.WriteString(printer.Sprintf("  Conditional VaR (%.0f%%): %.4f\n", stats.Settings.Confidence*100, m.ConditionalVaR))
	sb.WriteString(printer.Sprintf("\nPeriod: %v to %v, %d bars (%.2f years)\n",
		b.StartDate.Format(common.SimpleTimeFormat), b.EndDate.Format(common.SimpleTimeFormat), m.TradingPeriods, m.Years))
	if len(b.PendingOrders) > 0 {
		sb.WriteString(printer.Sprintf("Pending orders excluded from statistics: %d\n", len(b.PendingOrders)))
	}
	if b.StopReason != "" {
		sb.WriteString(printer.Sprintf("Trading stopped: %v\n", b.StopReason))
	}
	sb.WriteString(line + "\n")
	return sb.String()
}

// GenerateHTML renders the report template with equity and drawdown charts
func (b *Bundle) GenerateHTML(w io.Writer) error {
	if b == nil {
		return errNilBundle
	}
	equity, err := createEquityChart(b.EquityCurve)
	if err != nil {
		return err
	}
	drawdown, err := createDrawdownChart(b.EquityCurve)
	if err != nil {
		return err
	}
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"json": func(v any) (template.JS, error) {
			out, err := json.Marshal(v)
			return template.JS(out), err //nolint:gosec // chart data is encoded by encoding/json
		},
	}).Parse(reportTemplate)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, htmlData{
		Bundle:   b,
		Equity:   equity,
		Drawdown: drawdown,
		Text:     b.Text(),
	}); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Save stores the bundle in the run store
func (b *Bundle) Save(ctx context.Context, db *database.Instance) error {
	if b == nil {
		return errNilBundle
	}
	if !db.IsConnected() {
		return database.ErrDatabaseSupportDisabled
	}
	r := &run.Run{
		ID:             b.ID,
		Mode:           b.Mode,
		Strategy:       b.Strategy,
		Symbols:        b.Symbols,
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		InitialCapital: b.InitialCapital,
		FinalEquity:    b.FinalEquity,
	}
	if b.Statistics != nil {
		serialised, err := b.Statistics.Serialise()
		if err != nil {
			return err
		}
		r.Metrics = []byte(serialised)
		if m := b.Statistics.Metrics; m != nil {
			r.TotalReturn = m.TotalReturn
			r.SharpeRatio = m.SharpeRatio
			r.MaxDrawdown = m.MaxDrawdown.DrawdownPercent
		}
	}
	r.Trades = make([]run.Trade, len(b.Trades))
	for i := range b.Trades {
		r.Trades[i] = run.Trade{
			OrderID:     b.Trades[i].OrderID,
			Symbol:      b.Trades[i].Symbol,
			Side:        b.Trades[i].Side.String(),
			Quantity:    b.Trades[i].Quantity,
			Price:       b.Trades[i].Price,
			Commission:  b.Trades[i].Commission,
			RealisedPNL: b.Trades[i].RealisedPNL,
			Time:        b.Trades[i].Time,
		}
	}
	r.Equity = make([]run.EquityPoint, len(b.EquityCurve))
	for i := range b.EquityCurve {
		r.Equity[i] = run.EquityPoint{
			Time:           b.EquityCurve[i].Time,
			Cash:           b.EquityCurve[i].Cash,
			PositionsValue: b.EquityCurve[i].PositionsValue,
			TotalEquity:    b.EquityCurve[i].TotalEquity,
		}
	}
	if err := run.Insert(ctx, db, r); err != nil {
		return err
	}
	b.ID = r.ID
	log.Infof(common.Report, "run %v saved to the %v run store", b.ID, db.Driver())
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
