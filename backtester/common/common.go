package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/thrasher-corp/papertrader/log"
)

var (
	errCannotGenerateFileName = errors.New("cannot generate filename")
	fileNameSanitiser         = regexp.MustCompile(`[^a-z0-9_-]`)
)

// CanTransact checks whether a direction results in an order being placed
func CanTransact(d Direction) bool {
	return d == Buy || d == Sell
}

// String implements the stringer interface
func (d Direction) String() string {
	return string(d)
}

// GenerateFileName will convert a proposed filename into something that is more
// OS friendly
func GenerateFileName(fileName, extension string) (string, error) {
	if fileName == "" || extension == "" {
		return "", fmt.Errorf("%w missing filename or extension", errCannotGenerateFileName)
	}
	fileName = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(fileName)), " ", "_")
	fileName = fileNameSanitiser.ReplaceAllString(fileName, "")
	extension = fileNameSanitiser.ReplaceAllString(strings.ToLower(extension), "")
	if fileName == "" || extension == "" {
		return "", fmt.Errorf("%w nothing left after sanitising", errCannotGenerateFileName)
	}
	return fileName + "." + extension, nil
}

// RegisterBacktesterSubLoggers sets up all custom Backtester sub loggers
func RegisterBacktesterSubLoggers() error {
	var err error
	for _, sl := range []struct {
		target **log.SubLogger
		name   string
	}{
		{&Backtester, "Backtester"},
		{&PaperTrader, "PaperTrader"},
		{&Strategy, "Strategy"},
		{&Risk, "Risk"},
		{&Portfolio, "Portfolio"},
		{&Exchange, "Exchange"},
		{&Statistics, "Statistics"},
		{&Data, "Data"},
		{&Monitor, "Monitor"},
		{&Config, "Config"},
		{&Report, "Report"},
		{&Database, "Database"},
	} {
		*sl.target, err = log.NewSubLogger(sl.name)
		if err != nil {
			return err
		}
	}
	return nil
}
