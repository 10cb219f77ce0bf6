package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubLogger(t *testing.T) {
	_, err := NewSubLogger("")
	assert.ErrorIs(t, err, errEmptyLoggerName)

	sl, err := NewSubLogger("registertest")
	require.NoError(t, err)
	assert.Equal(t, "REGISTERTEST", sl.Name())

	_, err = NewSubLogger("REGISTERTEST")
	assert.ErrorIs(t, err, ErrSubLoggerAlreadyRegistered)
}

func TestLevelsAndOutput(t *testing.T) {
	sl, err := NewSubLogger("leveltest")
	require.NoError(t, err)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Infof(sl, "hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
	assert.Contains(t, buf.String(), "LEVELTEST")

	buf.Reset()
	Debugf(sl, "hidden %d", 1)
	assert.Empty(t, buf.String(), "debug is disabled by default")

	buf.Reset()
	Error(sl, errors.New("kaboom"))
	assert.Contains(t, buf.String(), "kaboom")

	buf.Reset()
	Warn(nil, "nil sub logger falls back to global")
	assert.Contains(t, buf.String(), "falls back")
}

func TestSetupGlobalLogger(t *testing.T) {
	sl, err := NewSubLogger("setuptest")
	require.NoError(t, err)
	defer func() {
		cfg := GenDefaultSettings()
		require.NoError(t, SetupGlobalLogger(&cfg))
	}()

	err = SetupGlobalLogger(&Config{Enabled: true, Output: "pigeon"})
	assert.ErrorIs(t, err, errUnhandledOutputWriter)

	err = SetupGlobalLogger(&Config{Enabled: true, Format: "xml"})
	assert.ErrorIs(t, err, errUnhandledFormat)

	err = SetupGlobalLogger(&Config{
		Enabled:    true,
		Level:      "ERROR",
		SubLoggers: []SubLoggerConfig{{Name: "unknown", Level: "INFO"}},
	})
	assert.ErrorIs(t, err, ErrSubLoggerNotFound)

	err = SetupGlobalLogger(&Config{
		Enabled:    true,
		Level:      "ERROR",
		Format:     "json",
		SubLoggers: []SubLoggerConfig{{Name: "setuptest", Level: AllLevels}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Debugf(sl, "visible %v", true)
	assert.Contains(t, buf.String(), `"msg":"visible true"`)
	assert.Contains(t, buf.String(), `"sublogger":"SETUPTEST"`)
}

func TestSplitLevel(t *testing.T) {
	l := splitLevel("info|warn")
	assert.True(t, l.Info)
	assert.True(t, l.Warn)
	assert.False(t, l.Debug)
	assert.False(t, l.Error)
}
