package run

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/log"
)

// Insert stores the run with its trades and equity curve in one transaction.
// A run without an id is given a new one
func Insert(ctx context.Context, db *database.Instance, r *Run) error {
	if !db.IsConnected() {
		return database.ErrDatabaseSupportDisabled
	}
	if r == nil {
		return errNilRun
	}
	if r.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "generating run id")
		}
		r.ID = id.String()
	}
	if r.InsertedAt.IsZero() {
		r.InsertedAt = time.Now().UTC()
	}
	metrics := r.Metrics
	if len(metrics) == 0 {
		metrics = []byte("{}")
	}

	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning run insert")
	}
	if err = insertRun(ctx, db, tx, r, string(metrics)); err != nil {
		if errRB := tx.Rollback(); errRB != nil {
			log.Errorln(common.Database, errRB)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing run")
	}
	log.Infof(common.Database, "stored run %v with %v trades and %v equity points", r.ID, len(r.Trades), len(r.Equity))
	return nil
}

func insertRun(ctx context.Context, db *database.Instance, tx *sql.Tx, r *Run, metrics string) error {
	query := db.Rebind(`INSERT INTO runs (id, mode, strategy, symbols, start_date, end_date, initial_capital,
		final_equity, total_return, sharpe_ratio, max_drawdown, metrics, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	db.Logf("SQL: %s", query)
	if _, err := tx.ExecContext(ctx, query, r.ID, r.Mode, r.Strategy, strings.Join(r.Symbols, ","),
		r.StartDate.UTC(), r.EndDate.UTC(), r.InitialCapital, r.FinalEquity, r.TotalReturn,
		r.SharpeRatio, r.MaxDrawdown, metrics, r.InsertedAt.UTC()); err != nil {
		return errors.Wrapf(err, "inserting run %v", r.ID)
	}

	query = db.Rebind(`INSERT INTO run_trades (run_id, order_id, symbol, side, quantity, price, commission, realised_pnl, traded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for x := range r.Trades {
		t := &r.Trades[x]
		if _, err := tx.ExecContext(ctx, query, r.ID, t.OrderID, t.Symbol, t.Side, t.Quantity,
			t.Price, t.Commission, t.RealisedPNL, t.Time.UTC()); err != nil {
			return errors.Wrapf(err, "inserting trade %v", t.OrderID)
		}
	}

	query = db.Rebind(`INSERT INTO run_equity (run_id, at, cash, positions_value, total_equity) VALUES (?, ?, ?, ?, ?)`)
	for x := range r.Equity {
		e := &r.Equity[x]
		if _, err := tx.ExecContext(ctx, query, r.ID, e.Time.UTC(), e.Cash, e.PositionsValue, e.TotalEquity); err != nil {
			return errors.Wrapf(err, "inserting equity point %v", e.Time)
		}
	}
	return nil
}

// GetByID loads a run with its trades and equity curve
func GetByID(ctx context.Context, db *database.Instance, id string) (*Run, error) {
	if !db.IsConnected() {
		return nil, database.ErrDatabaseSupportDisabled
	}
	if id == "" {
		return nil, errNoRunID
	}
	r, err := scanRun(db.SQL.QueryRowContext(ctx, db.Rebind(selectRun+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.SQL.QueryContext(ctx, db.Rebind(`SELECT order_id, symbol, side, quantity, price, commission, realised_pnl, traded_at
		FROM run_trades WHERE run_id = ? ORDER BY id`), id)
	if err != nil {
		return nil, errors.Wrap(err, "querying trades")
	}
	defer rows.Close()
	for rows.Next() {
		var t Trade
		if err = rows.Scan(&t.OrderID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.Commission, &t.RealisedPNL, &t.Time); err != nil {
			return nil, errors.Wrap(err, "scanning trade")
		}
		t.Time = t.Time.UTC()
		r.Trades = append(r.Trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading trades")
	}

	equity, err := db.SQL.QueryContext(ctx, db.Rebind(`SELECT at, cash, positions_value, total_equity
		FROM run_equity WHERE run_id = ? ORDER BY at`), id)
	if err != nil {
		return nil, errors.Wrap(err, "querying equity")
	}
	defer equity.Close()
	for equity.Next() {
		var e EquityPoint
		if err = equity.Scan(&e.Time, &e.Cash, &e.PositionsValue, &e.TotalEquity); err != nil {
			return nil, errors.Wrap(err, "scanning equity point")
		}
		e.Time = e.Time.UTC()
		r.Equity = append(r.Equity, e)
	}
	return r, errors.Wrap(equity.Err(), "reading equity")
}

// List returns the most recent runs without their trades or equity
func List(ctx context.Context, db *database.Instance, limit int) ([]*Run, error) {
	if !db.IsConnected() {
		return nil, database.ErrDatabaseSupportDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.SQL.QueryContext(ctx, db.Rebind(selectRun+` ORDER BY inserted_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()
	var resp []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		resp = append(resp, r)
	}
	return resp, errors.Wrap(rows.Err(), "reading runs")
}

const selectRun = `SELECT id, mode, strategy, symbols, start_date, end_date, initial_capital, final_equity,
	total_return, sharpe_ratio, max_drawdown, metrics, inserted_at FROM runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var symbols string
	var metrics []byte
	err := row.Scan(&r.ID, &r.Mode, &r.Strategy, &symbols, &r.StartDate, &r.EndDate, &r.InitialCapital,
		&r.FinalEquity, &r.TotalReturn, &r.SharpeRatio, &r.MaxDrawdown, &metrics, &r.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scanning run")
	}
	if symbols != "" {
		r.Symbols = strings.Split(symbols, ",")
	}
	r.Metrics = metrics
	r.StartDate = r.StartDate.UTC()
	r.EndDate = r.EndDate.UTC()
	r.InsertedAt = r.InsertedAt.UTC()
	return &r, nil
}
