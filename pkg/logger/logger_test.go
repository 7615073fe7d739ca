package logger

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesTimestampedLevelTaggedLines(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ble-*.log")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())

	l := New(Config{Level: "debug", File: path})
	l.Info("hello %s", "world")
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := string(data)
	require.Contains(t, line, "[INFO] hello world")

	// Sanity check the timestamp prefix layout.
	require.True(t, len(line) > len("2006-01-02 15:04:05"))
	_, err = time.Parse("2006-01-02 15:04:05", line[:19])
	require.NoError(t, err)
}

func TestLoggerDropsBelowMinLevel(t *testing.T) {
	path := t.TempDir() + "/ble.log"
	l := New(Config{Level: "warn", File: path})
	l.Debug("should not appear")
	l.Info("also should not appear")
	l.Warn("should appear")
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "should not appear")
	require.Contains(t, string(data), "should appear")
}
