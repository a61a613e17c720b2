package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/logging"
)

// A single save can arrive as several events.
const reloadDebounce = 50 * time.Millisecond

// Watch calls onChange with the newly read settings every time filePath is written. Files that
// fail to load are logged and skipped. onChange runs on its own goroutine once writes settle. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, filePath string, logger logging.Logger, onChange func(*Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot create settings watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Debugw("failed to close settings watcher", "error", err)
		}
	}()

	// Editors often replace the file instead of writing it, so watch the directory.
	target := filepath.Clean(filePath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", filePath)
	}

	reload := debounce.New(reloadDebounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload(func() {
				if ctx.Err() != nil {
					return
				}
				settings, err := Read(target, logger)
				if err != nil {
					logger.Warnw("ignoring invalid robot settings", "path", target, "error", err)
					return
				}
				logger.Infow("reloaded robot settings", "path", target)
				onChange(settings)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorw("settings watcher error", "error", err)
		}
	}
}
