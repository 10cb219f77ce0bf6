package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	// level gating is done per sub logger
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})
	return l
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	return Config{
		Enabled: true,
		Level:   DefaultLevels,
		Output:  "console",
		Format:  "text",
	}
}

// NewSubLogger registers a new sub logger with the default levels enabled
func NewSubLogger(name string) (*SubLogger, error) {
	if name == "" {
		return nil, errEmptyLoggerName
	}
	name = strings.ToUpper(name)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := subLoggers[name]; ok {
		return nil, fmt.Errorf("%w %v", ErrSubLoggerAlreadyRegistered, name)
	}
	sl := &SubLogger{
		name:   name,
		levels: splitLevel(DefaultLevels),
	}
	subLoggers[name] = sl
	return sl, nil
}

// SetOutput redirects every sub logger to the supplied writer
func SetOutput(w io.Writer) {
	mu.Lock()
	base.SetOutput(w)
	mu.Unlock()
}

// SetupGlobalLogger applies the config to the shared sink and all registered
// sub loggers
func SetupGlobalLogger(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if !cfg.Enabled {
		base.SetOutput(io.Discard)
		return nil
	}
	w, err := getWriter(cfg.Output)
	if err != nil {
		return err
	}
	base.SetOutput(w)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("%w: %s", errUnhandledFormat, cfg.Format)
	}

	levels := cfg.Level
	if levels == "" {
		levels = DefaultLevels
	}
	global.levels = splitLevel(levels)
	for _, sl := range subLoggers {
		sl.levels = splitLevel(levels)
	}
	for i := range cfg.SubLoggers {
		sl, ok := subLoggers[strings.ToUpper(cfg.SubLoggers[i].Name)]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSubLoggerNotFound, cfg.SubLoggers[i].Name)
		}
		sl.levels = splitLevel(cfg.SubLoggers[i].Level)
	}
	return nil
}

func getWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout", "console":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, output)
	}
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(strings.ToUpper(level), "|")
	for x := range enabledLevels {
		switch enabledLevels[x] {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}
