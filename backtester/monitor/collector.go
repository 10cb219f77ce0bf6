package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/papertrader/log"
)

// NewCollector returns a collector whose session starts now
func NewCollector() *Collector {
	return &Collector{sessionStart: time.Now().UTC()}
}

// Record flattens a cycle report into typed records
func (c *Collector) Record(r *CycleReport) {
	if r == nil {
		return
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.summary.Cycles++
	for i := range r.Signals {
		c.add(r.Time, RecordSignal, r.Signals[i])
		c.summary.Signals++
	}
	for i := range r.Orders {
		c.add(r.Time, RecordOrder, r.Orders[i])
		c.summary.Orders++
	}
	for i := range r.Fills {
		f := r.Fills[i]
		c.add(r.Time, RecordFill, f)
		switch f.Side {
		case common.Buy:
			c.summary.BuyFills++
		case common.Sell:
			c.summary.SellFills++
		}
		c.summary.TotalValueTraded = c.summary.TotalValueTraded.Add(f.Price.Mul(decimal.NewFromInt(f.Quantity)))
		c.summary.TotalCommissions = c.summary.TotalCommissions.Add(f.Commission)
	}
	for i := range r.Rejections {
		c.add(r.Time, RecordRejection, r.Rejections[i])
		c.summary.Rejections++
	}
	for i := range r.Errors {
		c.add(r.Time, RecordError, r.Errors[i])
		c.summary.Errors++
	}
	c.add(r.Time, RecordSnapshot, r.Equity)
	c.equity = append(c.equity, r.Equity)
	c.summary.LatestTotalEquity = r.Equity.TotalEquity
	c.latest = r
}

func (c *Collector) add(t time.Time, typ string, data any) {
	c.records = append(c.records, Record{Time: t, Type: typ, Data: data})
}

// Records returns the recorded entries, optionally only those of typ
func (c *Collector) Records(typ string) []Record {
	c.m.RLock()
	defer c.m.RUnlock()
	resp := make([]Record, 0, len(c.records))
	for i := range c.records {
		if typ != "" && c.records[i].Type != typ {
			continue
		}
		resp = append(resp, c.records[i])
	}
	return resp
}

// Latest returns the most recent cycle report or nil
func (c *Collector) Latest() *CycleReport {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.latest
}

// EquityCurve returns a copy of the recorded equity points
func (c *Collector) EquityCurve() []portfolio.EquityPoint {
	c.m.RLock()
	defer c.m.RUnlock()
	resp := make([]portfolio.EquityPoint, len(c.equity))
	copy(resp, c.equity)
	return resp
}

// Summary returns the running totals
func (c *Collector) Summary() Summary {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.summary
}

// SaveJSON writes the session to path as indented JSON
func (c *Collector) SaveJSON(path string) error {
	c.m.RLock()
	session := struct {
		SessionStart time.Time `json:"session-start"`
		SessionEnd   time.Time `json:"session-end"`
		Records      []Record  `json:"records"`
		Summary      Summary   `json:"summary"`
	}{
		SessionStart: c.sessionStart,
		SessionEnd:   time.Now().UTC(),
		Records:      c.records,
		Summary:      c.summary,
	}
	payload, err := json.MarshalIndent(session, "", "\t")
	c.m.RUnlock()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return err
	}
	if err = os.WriteFile(path, payload, 0o640); err != nil {
		return fmt.Errorf("could not write monitor session %v: %w", path, err)
	}
	log.Infof(common.Monitor, "monitor session saved to %v", path)
	return nil
}
