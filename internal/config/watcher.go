package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"oauthprompt/pkg/logging"
)

// DefaultDebounceInterval is the time to wait before reloading after the
// configuration file changed.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watch reloads the configuration in configPath whenever config.yaml changes
// and passes every valid result to onChange. Invalid files are logged and
// skipped. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, configPath string, onChange func(Config)) error {
	return watch(ctx, configPath, DefaultDebounceInterval, onChange)
}

func watch(ctx context.Context, configPath string, debounce time.Duration, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files by rename, so the directory is watched
	// rather than the file itself.
	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", configPath, err)
	}
	logging.Info("Config", "Watching %s for changes", FilePath(configPath))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		cfg, err := LoadConfig(configPath)
		if err == nil {
			err = cfg.Validate(FilePath(configPath))
		}
		if err != nil {
			logging.Warn("Config", "Ignoring invalid configuration change: %v", err)
			return
		}
		logging.Info("Config", "Configuration reloaded")
		onChange(cfg)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("Config", "Config file changed: %s", event.Op)

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if ctx.Err() == nil {
					reload()
				}
			})
			timerMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Config", err, "fsnotify error")
		}
	}
}
