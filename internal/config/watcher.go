package config

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Watcher re-reads the config file when its modification time changes.
type Watcher struct {
	path    string
	mu      sync.Mutex
	current *Config
	modTime time.Time
}

// NewWatcher loads and validates the initial config.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Watcher{path: path, current: cfg}
	if fi, err := os.Stat(path); err == nil {
		w.modTime = fi.ModTime()
	}
	return w, nil
}

// Current returns the last good config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reload re-reads the file if it changed since the last successful load.
// On a parse or validation error the previous config stays active and the error is returned.
func (w *Watcher) Reload() (*Config, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fi, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return w.current, false, nil
		}
		return w.current, false, fmt.Errorf("stat config: %w", err)
	}
	if !fi.ModTime().After(w.modTime) {
		return w.current, false, nil
	}

	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	// remember the mtime either way so a broken file is not re-parsed every tick
	w.modTime = fi.ModTime()
	if err != nil {
		return w.current, false, fmt.Errorf("reload config: %w", err)
	}
	w.current = cfg
	return cfg, true, nil
}
