package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/osaurus-ai/osaurus/internal/installer"
	"github.com/osaurus-ai/osaurus/internal/plugin"
)

// PluginWatcher watches the tools root itself (not recursively) and
// reconciles the loader's live-plugin table against the filesystem when
// entries there change, so an install or upgrade, which stages its files
// in the root, takes effect without a process restart. A rollback only
// repoints a `current` symlink inside a plugin directory, which this
// watch does not see; the ReconcileScheduler's periodic pass picks it
// up. Grounded on the teacher's
// internal/skills/manager.go debounced fsnotify watch loop, redirected
// from skill-source directories to the plugin tools root (spec §9
// "Plugin directory hot-reload").
type PluginWatcher struct {
	store    *installer.Store
	loader   *plugin.Loader
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	loaded  map[string]string // plugin_id -> version currently loaded
}

func NewPluginWatcher(store *installer.Store, loader *plugin.Loader, logger *slog.Logger) *PluginWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginWatcher{
		store:    store,
		loader:   loader,
		logger:   logger.With("component", "lifecycle.reload"),
		debounce: 250 * time.Millisecond,
		loaded:   make(map[string]string),
	}
}

// Start reconciles once synchronously (so plugins already installed at
// boot are loaded before the first request), then watches the tools
// root in the background until ctx is done.
func (w *PluginWatcher) Start(ctx context.Context) error {
	w.Reconcile()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.store.ToolsRoot); err != nil {
		watcher.Close()
		return err
	}
	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	go w.watchLoop(ctx, watcher)
	return nil
}

func (w *PluginWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	scheduleReconcile := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.Reconcile)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReconcile()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("plugin directory watch error", "error", err)
		}
	}
}

// Reconcile loads any plugin whose `current` version differs from what
// the loader currently has live, and unloads plugins no longer present
// on disk. Safe to call concurrently with itself; the inner mutex
// serializes reconciliation passes.
func (w *PluginWatcher) Reconcile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	onDisk := make(map[string]string)
	for _, pluginID := range w.store.ListPlugins() {
		version, ok := w.store.Current(pluginID)
		if !ok {
			continue
		}
		onDisk[pluginID] = version
	}

	for pluginID, version := range onDisk {
		if loadedVersion, ok := w.loaded[pluginID]; ok && loadedVersion == version {
			continue
		}
		if _, ok := w.loaded[pluginID]; ok {
			if err := w.loader.Unload(pluginID); err != nil {
				w.logger.Warn("failed to unload stale plugin version", "plugin_id", pluginID, "error", err)
				continue
			}
			delete(w.loaded, pluginID)
		}
		libPath, err := w.store.DylibPath(pluginID, version)
		if err != nil {
			w.logger.Warn("failed to resolve plugin library path", "plugin_id", pluginID, "version", version, "error", err)
			continue
		}
		if _, err := w.loader.Load(libPath); err != nil {
			w.logger.Warn("failed to load plugin", "plugin_id", pluginID, "version", version, "error", err)
			continue
		}
		w.loaded[pluginID] = version
		w.logger.Info("plugin loaded", "plugin_id", pluginID, "version", version)
	}

	for pluginID := range w.loaded {
		if _, ok := onDisk[pluginID]; !ok {
			if err := w.loader.Unload(pluginID); err != nil {
				w.logger.Warn("failed to unload removed plugin", "plugin_id", pluginID, "error", err)
				continue
			}
			delete(w.loaded, pluginID)
			w.logger.Info("plugin unloaded", "plugin_id", pluginID)
		}
	}
}

// Close stops the background watch goroutine.
func (w *PluginWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
