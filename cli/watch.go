package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/latticeplanner/logging"
)

// WatchAction replans a context dump every time it is written, until interrupted.
func WatchAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one context file")
	}
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	space, err := cfg.ActionSpace()
	if err != nil {
		return err
	}

	file := c.Args().First()
	w := c.App.Writer
	replan := func(ctx context.Context) {
		result, err := replayContext(ctx, cfg, space, file, 0, logger)
		if err != nil {
			printf(w, "%s: %v", file, err)
			return
		}
		printf(w, "%s: goal %d, cost %.4f, %d actions, %d expansions in %v",
			file, result.GoalID, result.Cost, result.Plan.Size(), result.Expansions, result.Duration)
	}
	replan(c.Context)
	return watchFile(c.Context, file, logger, replan)
}

// watchDebounce coalesces the bursts of events a single save produces.
const watchDebounce = 100 * time.Millisecond

// watchFile calls onChange whenever `file` is written or replaced, until ctx is done. The parent
// directory is watched so that editors replacing the file are noticed too.
func watchFile(ctx context.Context, file string, logger logging.Logger, onChange func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnw("failed to close file watcher", "error", err)
		}
	}()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watching %s", file)
	}

	debounced := debounce.New(watchDebounce)
	for {
		select {
		case <-ctx.Done():
			// drop any pending call
			debounced(func() {})
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("file watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logger.Debugw("context file changed", "file", file, "op", event.Op.String())
			debounced(func() { onChange(ctx) })
		}
	}
}
