// Package logging contains the zap-backed loggers shared by the planner, the navigation service
// and the command line tools.
package logging

import "context"

// Logger writes structured log lines to its appenders.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebugw also logs below the logger's level when ctx came from EnableDebugMode.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	SetLevel(level Level)
	GetLevel() Level
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	Sync() error
}

// NewBlankLogger returns a Debug+ logger, with times in UTC, that has no appenders yet.
func NewBlankLogger(name string) Logger {
	return newLogger(name, DEBUG, true)
}
