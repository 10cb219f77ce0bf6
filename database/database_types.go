package database

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/database/drivers"
)

// Supported drivers
const (
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

var (
	// ErrDatabaseSupportDisabled is returned when the store is switched off
	ErrDatabaseSupportDisabled = errors.New("database support disabled")
	// ErrFailedToConnect is returned when the driver could not connect
	ErrFailedToConnect = errors.New("database failed to connect")

	errNilInstance       = errors.New("database instance is nil")
	errNilConfig         = errors.New("received nil database config")
	errNilSQL            = errors.New("database SQL connection is nil")
	errUnsupportedDriver = errors.New("unsupported database driver")

	errMigrationDirNotFound = errors.New("migration folder not found")
)

// Config holds all database configurable options including enable/disabled & DSN settings
type Config struct {
	Enabled                   bool   `json:"enabled" mapstructure:"enabled"`
	Verbose                   bool   `json:"verbose" mapstructure:"verbose"`
	Driver                    string `json:"driver" mapstructure:"driver"`
	MigrationDir              string `json:"migration-dir" mapstructure:"migration-dir"`
	drivers.ConnectionDetails `mapstructure:",squash"`
}

// Instance holds the run result connection
type Instance struct {
	SQL       *sql.DB
	config    *Config
	connected bool
	m         sync.RWMutex
}
