package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/database/drivers"
)

// ErrNoDatabaseProvided is returned when the file name is empty
var ErrNoDatabaseProvided = errors.New("no database provided")

// Connect opens a connection to the sqlite database file, creating its
// directory when needed
func Connect(details *drivers.ConnectionDetails) (*sql.DB, error) {
	if details == nil || details.Database == "" {
		return nil, ErrNoDatabaseProvided
	}
	if dir := filepath.Dir(details.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}
	dbConn, err := sql.Open("sqlite3", details.Database+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", details.Database)
	}
	dbConn.SetMaxOpenConns(1)
	return dbConn, nil
}
