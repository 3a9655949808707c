package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// frames between runtime.Caller in write and the caller of a Logger method.
const callerSkip = 2

type logger struct {
	name      string
	level     AtomicLevel
	utc       bool
	appenders []Appender
}

func newLogger(name string, level Level, utc bool) *logger {
	return &logger{name: name, level: NewAtomicLevelAt(level), utc: utc}
}

func (l *logger) AddAppender(appender Appender) {
	l.appenders = append(l.appenders, appender)
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

// Sublogger shares the appenders. Its level starts as a copy of l's.
func (l *logger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &logger{name: name, level: NewAtomicLevelAt(l.GetLevel()), utc: l.utc, appenders: l.appenders}
}

func (l *logger) Sync() error {
	var errs error
	for _, appender := range l.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.write(DEBUG, false, msg, keysAndValues)
}

func (l *logger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	id := debugID(ctx)
	if id != "" {
		keysAndValues = append(keysAndValues, "debug_id", id)
	}
	l.write(DEBUG, id != "", msg, keysAndValues)
}

func (l *logger) Infow(msg string, keysAndValues ...interface{}) {
	l.write(INFO, false, msg, keysAndValues)
}

func (l *logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.write(WARN, false, msg, keysAndValues)
}

func (l *logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.write(ERROR, false, msg, keysAndValues)
}

func (l *logger) write(level Level, force bool, msg string, keysAndValues []interface{}) {
	if !force && level < l.GetLevel() {
		return
	}
	entry := zapcore.Entry{
		LoggerName: l.name,
		Level:      level.AsZap(),
		Message:    msg,
		Time:       time.Now(),
		Caller:     zapcore.NewEntryCaller(runtime.Caller(callerSkip)),
	}
	if l.utc {
		entry.Time = entry.Time.UTC()
	}
	fields := toFields(keysAndValues)
	for _, appender := range l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// toFields pairs keys with the values after them. A trailing key gets an error value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
