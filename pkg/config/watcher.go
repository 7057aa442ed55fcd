package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file whenever it changes on disk, gated
// behind the CLI's --watch flag (SPEC_FULL.md §4.12). A failed reload
// (malformed JSON, a field that fails validate) is logged and the
// previously loaded Config is kept, matching spec.md §7's "configuration
// errors never mutate a live session's last-known-good state".
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	onLoad  func(*Config)
}

// NewWatcher starts watching path's containing directory (editors commonly
// replace a file via rename rather than in-place write, which fsnotify only
// observes reliably at the directory level) and invokes onLoad with every
// successfully parsed Config, starting with the current contents of path.
func NewWatcher(path string, logger *slog.Logger, onLoad func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := dirOf(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw, logger: logger, onLoad: onLoad}

	if cfg, err := Load(path); err != nil {
		logger.Warn("config: initial load failed", "path", path, "err", err)
	} else {
		onLoad(cfg)
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config: reload failed, keeping previous config", "path", w.path, "err", err)
				continue
			}
			w.logger.Info("config: reloaded", "path", w.path)
			w.onLoad(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config: watcher error", "err", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
