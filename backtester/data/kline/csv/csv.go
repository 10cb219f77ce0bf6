package csv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/event"
	"github.com/thrasher-corp/papertrader/backtester/eventtypes/kline"
	"github.com/thrasher-corp/papertrader/log"
	"golang.org/x/sync/errgroup"
)

// Extension is appended to a symbol to find its bar file
const Extension = ".csv"

var (
	errDirectoryUnset  = errors.New("data directory unset")
	errNotADirectory   = errors.New("path is not a directory")
	errUnknownTimeText = errors.New("unrecognised timestamp")
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	common.SimpleTimeFormat,
}

// Row is a single line of a bar file
type Row struct {
	Timestamp string `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

// Loader reads one bar file per symbol from a directory
type Loader struct {
	Directory string
}

// NewLoader returns a loader reading <directory>/<SYMBOL>.csv
func NewLoader(directory string) (*Loader, error) {
	if directory == "" {
		return nil, errDirectoryUnset
	}
	info, err := os.Stat(directory)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w %v", errNotADirectory, directory)
	}
	return &Loader{Directory: directory}, nil
}

// FilePath returns where the bars of a symbol are stored
func FilePath(directory, symbol string) string {
	return filepath.Join(directory, strings.ToUpper(symbol)+Extension)
}

// Load reads every symbol's file concurrently. A missing or unreadable file
// fails the whole load
func (l *Loader) Load(ctx context.Context, symbols []string, start, end time.Time) (map[string][]*kline.Kline, error) {
	var m sync.Mutex
	resp := make(map[string][]*kline.Kline, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	for i := range symbols {
		symbol := symbols[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bars, err := LoadFile(FilePath(l.Directory, symbol), symbol, start, end)
			if err != nil {
				return err
			}
			m.Lock()
			resp[symbol] = bars
			m.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// LoadFile parses a bar file, keeping rows inside [start, end]. A zero start
// or end leaves that side of the range open. Rows that cannot be parsed are
// dropped with a warning
func LoadFile(path, symbol string, start, end time.Time) ([]*kline.Kline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*Row
	if err = gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("%v %w", path, err)
	}
	resp := make([]*kline.Kline, 0, len(rows))
	for i := range rows {
		k, err := rows[i].toKline(symbol)
		if err != nil {
			log.Warnf(common.Data, "%v row %v: %v", path, i+1, err)
			continue
		}
		if !start.IsZero() && k.Time.Before(start) {
			continue
		}
		if !end.IsZero() && k.Time.After(end) {
			continue
		}
		resp = append(resp, k)
	}
	log.Debugf(common.Data, "%v loaded %v of %v rows from %v", symbol, len(resp), len(rows), path)
	return resp, nil
}

// Save writes bars to a bar file, replacing any existing file
func Save(path string, bars []*kline.Kline) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]*Row, len(bars))
	for i := range bars {
		rows[i] = &Row{
			Timestamp: bars[i].Time.UTC().Format(time.RFC3339),
			Open:      bars[i].Open.String(),
			High:      bars[i].High.String(),
			Low:       bars[i].Low.String(),
			Close:     bars[i].Close.String(),
			Volume:    bars[i].Volume.String(),
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Row) toKline(symbol string) (*kline.Kline, error) {
	t, err := parseTime(r.Timestamp)
	if err != nil {
		return nil, err
	}
	k := &kline.Kline{Base: event.Base{Symbol: symbol, Time: t}}
	for _, field := range []struct {
		target *decimal.Decimal
		text   string
	}{
		{&k.Open, r.Open},
		{&k.High, r.High},
		{&k.Low, r.Low},
		{&k.Close, r.Close},
	} {
		if *field.target, err = decimal.NewFromString(strings.TrimSpace(field.text)); err != nil {
			return nil, err
		}
	}
	if v := strings.TrimSpace(r.Volume); v != "" {
		if k.Volume, err = decimal.NewFromString(v); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for i := range timeLayouts {
		if t, err := time.Parse(timeLayouts[i], s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w %q", errUnknownTimeText, s)
}
