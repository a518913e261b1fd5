package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/rohc-go/compressor/internal/logger"
)

// Watch re-reads configPath on every write event and pushes a
// validated copy down the returned channel (SPEC_FULL §A.3). The
// compressor never hot-swaps its live context table from this; callers
// apply only the not-yet-committed tunables (IRTimeout, FOTimeout,
// OARepetitions) that spec §3 treats as global config rather than
// per-context state. Stop watching by canceling done.
func Watch(configPath string, done <-chan struct{}) (<-chan *Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, err
	}

	updates := make(chan *Config, 1)
	go func() {
		defer watcher.Close()
		defer close(updates)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(configPath)
				if err != nil {
					logger.Warn("config reload failed", "path", configPath, "error", err)
					continue
				}
				select {
				case updates <- cfg:
				default:
					// drop stale pending update, keep the latest on next loop
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()
	return updates, nil
}
