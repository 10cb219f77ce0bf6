package postgres

import (
	"database/sql"
	"fmt"
	"time"

	// import postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/database/drivers"
)

// ErrNoDatabaseProvided is returned when the database name is empty
var ErrNoDatabaseProvided = errors.New("no database provided")

// DSN builds the connection string for the details
func DSN(details *drivers.ConnectionDetails) string {
	sslMode := details.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		details.Host,
		details.Port,
		details.Username,
		details.Password,
		details.Database,
		sslMode)
}

// Connect establishes a connection pool to the database
func Connect(details *drivers.ConnectionDetails) (*sql.DB, error) {
	if details == nil || details.Database == "" {
		return nil, ErrNoDatabaseProvided
	}
	dbConn, err := sql.Open("postgres", DSN(details))
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	if err = dbConn.Ping(); err != nil {
		dbConn.Close()
		return nil, errors.Wrapf(err, "pinging postgres at %v:%v", details.Host, details.Port)
	}
	dbConn.SetMaxOpenConns(2)
	dbConn.SetMaxIdleConns(1)
	dbConn.SetConnMaxLifetime(time.Hour)
	return dbConn, nil
}
