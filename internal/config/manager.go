package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager serves the current configuration to long-running commands and
// hot-reloads it when the file on disk changes.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		log.Printf("config: validation warning: %v", err)
	}

	return &Manager{config: config}, nil
}

// GetConfig returns a copy, so callers cannot mutate the shared state.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// StartWatching reloads the configuration whenever the file changes on
// disk. The watch is on the directory: editors that replace the file via
// rename would otherwise detach a file-level watch.
func (m *Manager) StartWatching(ctx context.Context) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	m.watcher = watcher
	m.wg.Add(1)
	go m.watchLoop(ctx, filepath.Base(configPath))

	log.Printf("config: watching %s", configPath)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context, configFileName string) {
	defer m.wg.Done()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			// chmod and remove churn is not a content change
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				log.Printf("config: %s changed, reloading", event.Name)
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// reload swaps in the new configuration only if it loads and validates;
// a broken file on disk keeps the last good config active.
func (m *Manager) reload() {
	newConfig, err := Load()
	if err != nil {
		log.Printf("config: reload failed: %v", err)
		return
	}

	if err := newConfig.Validate(); err != nil {
		log.Printf("config: reload rejected: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	log.Printf("config: reloaded")
}
