package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/database/drivers/postgres"
	sqlite "github.com/thrasher-corp/papertrader/database/drivers/sqlite3"
	"github.com/thrasher-corp/papertrader/log"
)

// Connect opens the configured driver and migrates the schema
func Connect(ctx context.Context, cfg *Config) (*Instance, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if !cfg.Enabled {
		return nil, ErrDatabaseSupportDisabled
	}
	i := &Instance{}
	if err := i.SetConfig(cfg); err != nil {
		return nil, err
	}
	var con *sql.DB
	var err error
	switch cfg.Driver {
	case DBSQLite3:
		con, err = sqlite.Connect(&cfg.ConnectionDetails)
	case DBPostgreSQL:
		con, err = postgres.Connect(&cfg.ConnectionDetails)
	default:
		return nil, errors.Wrap(errUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(ErrFailedToConnect, err.Error())
	}
	if err = con.PingContext(ctx); err != nil {
		con.Close()
		return nil, errors.Wrap(ErrFailedToConnect, err.Error())
	}
	i.SQL = con
	if err = Migrate(i); err != nil {
		con.Close()
		return nil, err
	}
	i.SetConnected(true)
	log.Infof(common.Database, "connected to %v database %v", cfg.Driver, cfg.Database)
	return i, nil
}

// SetConfig safely sets the database instance's config
func (i *Instance) SetConfig(cfg *Config) error {
	if i == nil {
		return errNilInstance
	}
	if cfg == nil {
		return errNilConfig
	}
	i.m.Lock()
	i.config = cfg
	i.m.Unlock()
	return nil
}

// SetConnected safely sets the database instance's connected status
func (i *Instance) SetConnected(v bool) {
	i.m.Lock()
	i.connected = v
	i.m.Unlock()
}

// CloseConnection safely disconnects the database instance
func (i *Instance) CloseConnection() error {
	if i == nil {
		return errNilInstance
	}
	i.m.Lock()
	defer i.m.Unlock()
	if i.SQL == nil {
		return errNilSQL
	}
	i.connected = false
	return i.SQL.Close()
}

// IsConnected safely checks the SQL connection status
func (i *Instance) IsConnected() bool {
	if i == nil {
		return false
	}
	i.m.RLock()
	defer i.m.RUnlock()
	return i.connected
}

// GetConfig safely returns a copy of the config
func (i *Instance) GetConfig() *Config {
	i.m.RLock()
	defer i.m.RUnlock()
	cpy := *i.config
	return &cpy
}

// Driver returns the SQL dialect in use
func (i *Instance) Driver() string {
	i.m.RLock()
	defer i.m.RUnlock()
	if i.config == nil {
		return ""
	}
	return i.config.Driver
}

// Ping pings the database
func (i *Instance) Ping() error {
	if i == nil {
		return errNilInstance
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return errNilSQL
	}
	return i.SQL.Ping()
}

// Rebind converts ? placeholders to the dialect of the instance
func (i *Instance) Rebind(query string) string {
	if i.Driver() != DBPostgreSQL {
		return query
	}
	var sb strings.Builder
	n := 1
	for _, r := range query {
		if r == '?' {
			sb.WriteString("$" + strconv.Itoa(n))
			n++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Logf writes a query to the database sub logger when verbose
func (i *Instance) Logf(format string, args ...interface{}) {
	i.m.RLock()
	verbose := i.config != nil && i.config.Verbose
	i.m.RUnlock()
	if verbose {
		log.Debugf(common.Database, format, args...)
	}
}
