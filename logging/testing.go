package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a Debug+ logger that writes through `tb.Log`.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also keeps every entry in memory.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	logger := newLogger("", DEBUG, false)
	logger.AddAppender(testAppender{tb})
	core, logs := observer.New(zapcore.DebugLevel)
	logger.AddAppender(core)
	return logger, logs
}

// testAppender logs through `tb.Log` so lines stay with their test when tests run in parallel.
type testAppender struct {
	tb testing.TB
}

func (a testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	a.tb.Helper()
	line, err := formatLine(entry, fields)
	a.tb.Log(line)
	return err
}

func (a testAppender) Sync() error {
	return nil
}
