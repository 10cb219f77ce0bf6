package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/thrasher-corp/goose"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/log"
)

// MigrationDir is the folder of goose migrations used when the config does
// not name one. Each migration is a folder holding one SQL file per dialect
var MigrationDir = filepath.Join("database", "migrations")

// Migrate brings the schema up to the latest goose migration for the
// instance's dialect
func Migrate(i *Instance) error {
	if i == nil {
		return errNilInstance
	}
	if i.SQL == nil {
		return errNilSQL
	}
	dir := i.MigrationDir()
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrap(errMigrationDirNotFound, err.Error())
	}
	driver := i.Driver()
	i.Logf("running %v migrations from %v", driver, dir)
	if err := goose.Run("up", i.SQL, driver, dir, ""); err != nil {
		return errors.Wrapf(err, "migrating %v", dir)
	}
	log.Debugf(common.Database, "%v schema migrated from %v", driver, dir)
	return nil
}

// MigrationDir returns the configured migration folder or the default
func (i *Instance) MigrationDir() string {
	i.m.RLock()
	defer i.m.RUnlock()
	if i.config == nil || i.config.MigrationDir == "" {
		return MigrationDir
	}
	return i.config.MigrationDir
}
