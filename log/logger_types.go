package log

import (
	"errors"
	"sync"
)

const (
	timestampFormat = "02/01/2006 15:04:05"
	// DefaultLevels are the levels enabled for a freshly registered sub logger
	DefaultLevels = "INFO|WARN|ERROR"
	// AllLevels enables every level on a sub logger
	AllLevels = "INFO|DEBUG|WARN|ERROR"

	subLoggerField = "sublogger"
)

var (
	// ErrSubLoggerAlreadyRegistered is returned when a sub logger name is reused
	ErrSubLoggerAlreadyRegistered = errors.New("sub logger already registered")
	// ErrSubLoggerNotFound is returned when configuring an unknown sub logger
	ErrSubLoggerNotFound = errors.New("sub logger not found")

	errEmptyLoggerName       = errors.New("cannot have empty logger name")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
	errUnhandledFormat       = errors.New("unhandled log format")

	base = newBase()
	// global is used when a nil sub logger is supplied
	global = &SubLogger{
		name:   "LOG",
		levels: splitLevel(DefaultLevels),
	}
	subLoggers = map[string]*SubLogger{}
	mu         sync.RWMutex
)

// Config holds the logger settings loaded from the application config
type Config struct {
	Enabled    bool              `mapstructure:"enabled" json:"enabled"`
	Level      string            `mapstructure:"level" json:"level"`
	Output     string            `mapstructure:"output" json:"output"`
	Format     string            `mapstructure:"format" json:"format"`
	SubLoggers []SubLoggerConfig `mapstructure:"subloggers" json:"subloggers,omitempty"`
}

// SubLoggerConfig overrides the enabled levels of a single sub logger
type SubLoggerConfig struct {
	Name  string `mapstructure:"name" json:"name"`
	Level string `mapstructure:"level" json:"level"`
}

// Levels flags for each sub logger type
type Levels struct {
	Info, Debug, Warn, Error bool
}
