package candle

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/thrasher-corp/papertrader/database/drivers"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func connect(t *testing.T) *database.Instance {
	t.Helper()
	db, err := database.Connect(context.Background(), &database.Config{
		Enabled:           true,
		Driver:            database.DBSQLite3,
		MigrationDir:      filepath.Join("..", "..", "migrations"),
		ConnectionDetails: drivers.ConnectionDetails{Database: filepath.Join(t.TempDir(), "candles.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.CloseConnection()) })
	return db
}

func candles(closes ...string) []Candle {
	resp := make([]Candle, len(closes))
	for i := range closes {
		c := decimal.RequireFromString(closes[i])
		resp[i] = Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c.Add(decimal.NewFromInt(1)),
			Low:       c.Sub(decimal.NewFromInt(1)),
			Close:     c,
			Volume:    decimal.NewFromInt(int64(100 * (i + 1))),
		}
	}
	return resp
}

func TestInsertAndSeries(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()

	_, err := Insert(ctx, db, nil)
	assert.ErrorIs(t, err, errNoCandleData)
	_, err = Insert(ctx, db, &Item{Candles: candles("1")})
	assert.ErrorIs(t, err, errInvalidInput)

	n, err := Insert(ctx, db, &Item{Symbol: "aapl", Candles: candles("100.5", "101.25", "99.75")})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	n, err = Insert(ctx, db, &Item{Symbol: "AAPL", Candles: candles("1", "2", "3", "104")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "stored timestamps are kept")

	item, err := Series(ctx, db, "AAPL", start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, item.Candles, 3)
	assert.Equal(t, "AAPL", item.Symbol)
	assert.Equal(t, start, item.Candles[0].Timestamp)
	assert.Equal(t, "101.25", item.Candles[1].Close.String())
	assert.Equal(t, "300", item.Candles[2].Volume.String())

	item, err = Series(ctx, db, "AAPL", start.AddDate(0, 0, 3), start.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, item.Candles, 1)
	assert.Equal(t, "104", item.Candles[0].Close.String())

	_, err = Series(ctx, db, "MSFT", start, start.AddDate(0, 0, 10))
	assert.ErrorIs(t, err, ErrNoCandleDataFound)
	_, err = Series(ctx, db, "", start, start)
	assert.ErrorIs(t, err, errInvalidInput)
}

func TestDisconnected(t *testing.T) {
	t.Parallel()
	_, err := Series(context.Background(), nil, "AAPL", start, start)
	assert.ErrorIs(t, err, database.ErrDatabaseSupportDisabled)
	_, err = Insert(context.Background(), &database.Instance{}, &Item{Symbol: "AAPL", Candles: candles("1")})
	assert.ErrorIs(t, err, database.ErrDatabaseSupportDisabled)
}
