package gateway

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/careboard-ai/careboard/slogger"
)

const reloadDebounce = 500 * time.Millisecond

// WatchConfig watches the agents config file and invokes reload after it
// changes, debounced against editor write bursts. Blocks until ctx is
// cancelled. Reload failures are logged and the previous roster stays in
// effect.
func WatchConfig(ctx context.Context, path string, logger slogger.Logger, reload func() error) error {
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops the
	// watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(path)
	logger.Info("watching agents config", "path", path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-fire:
			if err := reload(); err != nil {
				logger.Error("agents config reload failed", "error", err)
				continue
			}
			logger.Info("agents config reloaded", "path", path)
		}
	}
}
