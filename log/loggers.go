package log

import (
	"github.com/sirupsen/logrus"
)

// Info takes a pointer subLogger struct and string and logs at info level
func Info(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.InfoLevel); e != nil {
		e.Info(data)
	}
}

// Infoln takes a pointer subLogger struct and interface and logs at info level
func Infoln(sl *SubLogger, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.InfoLevel); e != nil {
		e.Infoln(v...)
	}
}

// Infof takes a pointer subLogger struct, string and interface formats and logs at info level
func Infof(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.InfoLevel); e != nil {
		e.Infof(data, v...)
	}
}

// Debug takes a pointer subLogger struct and string and logs at debug level
func Debug(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.DebugLevel); e != nil {
		e.Debug(data)
	}
}

// Debugf takes a pointer subLogger struct, string and interface formats and logs at debug level
func Debugf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.DebugLevel); e != nil {
		e.Debugf(data, v...)
	}
}

// Warn takes a pointer subLogger struct & string and logs at warn level
func Warn(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.WarnLevel); e != nil {
		e.Warn(data)
	}
}

// Warnf takes a pointer subLogger struct, string and interface formats and logs at warn level
func Warnf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.WarnLevel); e != nil {
		e.Warnf(data, v...)
	}
}

// Error takes a pointer subLogger struct & error and logs at error level
func Error(sl *SubLogger, err error) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.ErrorLevel); e != nil {
		e.WithError(err).Error()
	}
}

// Errorln takes a pointer subLogger struct, string & interface formats and logs at error level
func Errorln(sl *SubLogger, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.ErrorLevel); e != nil {
		e.Errorln(v...)
	}
}

// Errorf takes a pointer subLogger struct, string and interface formats and logs at error level
func Errorf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.ErrorLevel); e != nil {
		e.Errorf(data, v...)
	}
}

// WithFields logs a structured message at info level with the supplied fields
func WithFields(sl *SubLogger, fields map[string]interface{}, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if e := sl.entry(logrus.InfoLevel); e != nil {
		e.WithFields(fields).Info(data)
	}
}
