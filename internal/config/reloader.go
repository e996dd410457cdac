package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of writes vault-agent makes when re-rendering a secret.
const reloadDebounce = 500 * time.Millisecond

// TokenChangeCallback is called with the new Discord token after it rotates
type TokenChangeCallback func(newToken string)

// Reloader watches the secrets directory and swaps the in-memory config when it changes
type Reloader struct {
	config    atomic.Pointer[Config]
	loader    *VaultLoader
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	mu        sync.Mutex
	callbacks []TokenChangeCallback
}

// NewReloader creates a new config reloader
func NewReloader(initialConfig *Config, loader *VaultLoader) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	r := &Reloader{
		loader:  loader,
		watcher: watcher,
		stopCh:  make(chan struct{}),
	}
	r.config.Store(initialConfig)

	return r, nil
}

// GetConfig returns the current configuration atomically
func (r *Reloader) GetConfig() *Config {
	return r.config.Load()
}

// OnTokenChange registers a callback to be called when the Discord token changes
func (r *Reloader) OnTokenChange(callback TokenChangeCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// Start begins watching for configuration changes
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.watcher.Add(r.loader.SecretsDir()); err != nil {
		return fmt.Errorf("failed to watch secrets directory: %w", err)
	}

	go r.watchLoop(ctx)
	slog.Info("Config reloader started", "secrets_dir", r.loader.SecretsDir())
	return nil
}

// Stop stops watching for configuration changes
func (r *Reloader) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stopCh)
		err = r.watcher.Close()
	})
	return err
}

func (r *Reloader) watchLoop(ctx context.Context) {
	debounceTimer := time.NewTimer(reloadDebounce)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()
	needsReload := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				slog.Debug("Secret file changed", "file", event.Name, "op", event.Op)
				needsReload = true
				debounceTimer.Reset(reloadDebounce)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-debounceTimer.C:
			if needsReload {
				if err := r.reload(); err != nil {
					slog.Error("Failed to reload configuration", "error", err)
				}
				needsReload = false
			}
		}
	}
}

// reload re-reads the configuration and keeps the old one when the new one is invalid.
func (r *Reloader) reload() error {
	newConfig, err := LoadFrom(r.loader)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	oldConfig := r.config.Swap(newConfig)
	r.applyChanges(oldConfig, newConfig)

	slog.Info("Configuration reloaded")
	return nil
}

// applyChanges logs what changed and notifies token listeners.
// Only the token is applied live; other keys take effect on restart.
func (r *Reloader) applyChanges(old, new *Config) {
	if old.PubSubTopic != new.PubSubTopic {
		slog.Warn("Config changed, restart required", "key", "PUBSUB_TOPIC", "old", old.PubSubTopic, "new", new.PubSubTopic)
	}
	if old.OrderingKey != new.OrderingKey {
		slog.Warn("Config changed, restart required", "key", "PUBSUB_ORDERING_KEY")
	}
	if old.DiscordToken == new.DiscordToken {
		return
	}

	slog.Info("Config changed", "key", "DISCORD_TOKEN")
	r.mu.Lock()
	callbacks := append([]TokenChangeCallback(nil), r.callbacks...)
	r.mu.Unlock()
	for _, callback := range callbacks {
		callback(new.DiscordToken)
	}
}
