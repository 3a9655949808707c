package logging

import (
	"regexp"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry tracks named loggers so their levels can be reconfigured from pattern configs.
type Registry struct {
	mu        sync.RWMutex
	loggers   map[string]Logger
	logConfig []LoggerPatternConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

// GetOrRegister returns the logger already registered under `name`, or registers `logger` and
// applies any matching pattern to it.
func (lr *Registry) GetOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}

	lr.loggers[name] = logger
	for _, lpc := range lr.logConfig {
		if !ValidatePattern(lpc.Pattern) {
			continue
		}
		if matched, err := regexp.MatchString(buildRegexFromPattern(lpc.Pattern), name); err == nil && matched {
			if level, err := LevelFromString(lpc.Level); err == nil {
				logger.SetLevel(level)
			}
		}
	}
	return logger
}

// LoggerNamed returns the registered logger with the given name.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Names returns the sorted registered logger names.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateConfig applies the patterns to every registered logger. Loggers matching no pattern are
// reset to INFO. Later patterns win over earlier ones. Invalid patterns are skipped with a warning.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, warnLogger Logger) error {
	lr.mu.Lock()
	lr.logConfig = logConfig
	lr.mu.Unlock()

	names := lr.Names()
	applied := make(map[string]Level)
	for _, lpc := range logConfig {
		if !ValidatePattern(lpc.Pattern) {
			warnLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}

		r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil {
			return err
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return errors.Wrapf(err, "pattern %q", lpc.Pattern)
		}
		for _, name := range names {
			if r.MatchString(name) {
				applied[name] = level
			}
		}
	}

	lr.mu.RLock()
	defer lr.mu.RUnlock()
	for _, name := range names {
		level, ok := applied[name]
		if !ok {
			level = INFO
		}
		lr.loggers[name].SetLevel(level)
	}
	return nil
}
