package candle

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/log"
)

// Series returns the candles of a symbol between start and end inclusive,
// ordered by time
func Series(ctx context.Context, db *database.Instance, symbol string, start, end time.Time) (Item, error) {
	out := Item{Symbol: strings.ToUpper(symbol)}
	if symbol == "" || start.IsZero() || end.IsZero() {
		return out, errInvalidInput
	}
	if !db.IsConnected() {
		return out, database.ErrDatabaseSupportDisabled
	}
	query := db.Rebind(`SELECT timestamp, open, high, low, close, volume FROM candles
		WHERE symbol = ? AND timestamp BETWEEN ? AND ? ORDER BY timestamp`)
	db.Logf("SQL: %s", query)
	rows, err := db.SQL.QueryContext(ctx, query, out.Symbol, start.UTC(), end.UTC())
	if err != nil {
		return out, errors.Wrapf(err, "querying candles for %v", out.Symbol)
	}
	defer rows.Close()
	for rows.Next() {
		var c Candle
		if err = rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return out, errors.Wrap(err, "scanning candle")
		}
		c.Timestamp = c.Timestamp.UTC()
		out.Candles = append(out.Candles, c)
	}
	if err = rows.Err(); err != nil {
		return out, errors.Wrap(err, "reading candles")
	}
	if len(out.Candles) == 0 {
		return out, errors.Wrapf(ErrNoCandleDataFound, "%v %v-%v", out.Symbol,
			start.Format(common.SimpleTimeFormat), end.Format(common.SimpleTimeFormat))
	}
	return out, nil
}

// Insert stores the candles of the item. Candles already stored for the same
// symbol and timestamp are kept
func Insert(ctx context.Context, db *database.Instance, in *Item) (uint64, error) {
	if !db.IsConnected() {
		return 0, database.ErrDatabaseSupportDisabled
	}
	if in == nil || len(in.Candles) == 0 {
		return 0, errNoCandleData
	}
	if in.Symbol == "" {
		return 0, errInvalidInput
	}
	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning candle insert")
	}
	query := db.Rebind(`INSERT INTO candles (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (symbol, timestamp) DO NOTHING`)
	var totalInserted uint64
	for x := range in.Candles {
		c := &in.Candles[x]
		res, err := tx.ExecContext(ctx, query, strings.ToUpper(in.Symbol), c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			if errRB := tx.Rollback(); errRB != nil {
				log.Errorln(common.Database, errRB)
			}
			return 0, errors.Wrapf(err, "inserting candle %v %v", in.Symbol, c.Timestamp)
		}
		if n, err := res.RowsAffected(); err == nil {
			totalInserted += uint64(n)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing candles")
	}
	return totalInserted, nil
}
