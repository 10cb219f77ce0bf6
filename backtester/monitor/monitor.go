package monitor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/log"
)

// New returns a monitor checking reports against thresholds. queueSize
// defaults to DefaultQueueSize
func New(thresholds Thresholds, queueSize int) *Monitor {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Monitor{
		Collector:  NewCollector(),
		Alerts:     NewAlerts(),
		thresholds: thresholds,
		queue:      make(chan *CycleReport, queueSize),
		active:     make(map[string]AlertLevel),
	}
}

// Start runs the worker that records queued reports
func (m *Monitor) Start() error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.started {
		return errAlreadyStarted
	}
	m.started = true
	m.wg.Add(1)
	go m.run(m.queue)
	return nil
}

// Stop processes what is still queued then stops the worker
func (m *Monitor) Stop() error {
	m.m.Lock()
	if !m.started {
		m.m.Unlock()
		return errNotStarted
	}
	m.started = false
	close(m.queue)
	m.m.Unlock()
	m.wg.Wait()
	m.m.Lock()
	m.queue = make(chan *CycleReport, cap(m.queue))
	m.m.Unlock()
	if d := m.dropped.Load(); d > 0 {
		log.Warnf(common.Monitor, "%d cycle reports were dropped while the monitor was busy", d)
	}
	return nil
}

// Notify queues r for the worker. It never blocks, a report is dropped when
// the queue is full or the monitor is stopped
func (m *Monitor) Notify(r *CycleReport) {
	if r == nil {
		return
	}
	m.m.Lock()
	defer m.m.Unlock()
	if !m.started {
		m.dropped.Add(1)
		return
	}
	select {
	case m.queue <- r:
	default:
		m.dropped.Add(1)
	}
}

// Dropped returns how many reports never reached the worker
func (m *Monitor) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Monitor) run(queue <-chan *CycleReport) {
	defer m.wg.Done()
	for r := range queue {
		m.process(r)
	}
}

func (m *Monitor) process(r *CycleReport) {
	m.Collector.Record(r)

	equity := r.Equity.TotalEquity
	m.transition("drawdown", drawdownCondition(r.Summary.Drawdown, m.thresholds.MaxDrawdown))
	m.transition("cash", cashCondition(r.Equity.Cash, equity, m.thresholds.MinCashPercent))
	for i := range r.Holdings {
		h := r.Holdings[i]
		value := h.LastPrice.Mul(decimal.NewFromInt(h.Quantity))
		m.transition("position:"+h.Symbol, positionCondition(h.Symbol, value, equity, m.thresholds.MaxPositionSize))
	}

	var stop *condition
	if r.StopTrading {
		stop = &condition{Critical, "trading stopped: " + r.StopReason, map[string]any{"reason": r.StopReason}}
	}
	m.transition("stop-trading", stop)

	if len(r.Errors) > 0 {
		m.Alerts.Raise(Error, fmt.Sprintf("cycle %d had %d errors: %v", r.Cycle, len(r.Errors), strings.Join(r.Errors, "; ")),
			map[string]any{"cycle": r.Cycle})
	}
}

// transition raises c when it is new or its level changed and forgets it
// once it clears
func (m *Monitor) transition(key string, c *condition) {
	if c == nil {
		delete(m.active, key)
		return
	}
	if m.active[key] == c.level {
		return
	}
	m.active[key] = c.level
	m.Alerts.Raise(c.level, c.message, c.details)
}
