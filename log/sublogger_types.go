package log

import "github.com/sirupsen/logrus"

// SubLogger is a named logging channel with its own enabled levels. All sub
// loggers share the same logrus sink.
type SubLogger struct {
	name   string
	levels Levels
}

// Name returns the sub logger's registered name
func (sl *SubLogger) Name() string {
	if sl == nil {
		return global.name
	}
	return sl.name
}

// entry returns a logrus entry when the level is enabled for the sub logger
// and nil otherwise
func (sl *SubLogger) entry(level logrus.Level) *logrus.Entry {
	if sl == nil {
		sl = global
	}
	var enabled bool
	switch level {
	case logrus.InfoLevel:
		enabled = sl.levels.Info
	case logrus.DebugLevel:
		enabled = sl.levels.Debug
	case logrus.WarnLevel:
		enabled = sl.levels.Warn
	case logrus.ErrorLevel:
		enabled = sl.levels.Error
	}
	if !enabled {
		return nil
	}
	return base.WithField(subLoggerField, sl.name)
}
