package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/metrics"
	"github.com/osaurus-ai/osaurus/internal/registry"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// nativePlugin is the surface Loader needs from a loaded shared library.
// *nativeHandle (abi_unix.go/abi_windows.go) implements it; tests inject
// a fake so the loader's registration/unload bookkeeping is verifiable
// without a real .so on disk.
type nativePlugin interface {
	getManifest() (string, error)
	invoke(typ, id, payload string) (string, error)
	close() error
}

// loadNativeFunc is overridden in tests.
var loadNativeFunc = func(path string) (nativePlugin, error) {
	return loadNative(path)
}

// loadedPlugin is one entry in the loader's live-plugin table (spec
// §4.D step 6): the native handle plus the tool names it registered, so
// unload can reverse the registration order cleanly.
type loadedPlugin struct {
	path      string
	manifest  Manifest
	native    nativePlugin
	toolNames []string
}

// Loader owns the live-plugin table and mediates between the tool
// registry and the native vtable calls in abi_unix.go/abi_windows.go.
type Loader struct {
	mu      sync.Mutex
	plugins map[string]*loadedPlugin
	reg     *registry.Registry
	diag    *diagnosticsRing
	metrics *metrics.Metrics
}

func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{
		plugins: make(map[string]*loadedPlugin),
		reg:     reg,
		diag:    newDiagnosticsRing(),
	}
}

// SetMetrics attaches the Prometheus collectors load/unload outcomes are
// reported to. A nil Loader.metrics (the zero value) is a valid no-op
// state for callers that don't wire metrics, e.g. unit tests.
func (l *Loader) SetMetrics(m *metrics.Metrics) { l.metrics = m }

// Load opens the shared library at path, resolves osaurus_plugin_entry,
// initializes the plugin, reads its manifest, and registers one tool
// handler per declared tool. On any failure after the native handle is
// open, it is closed again before returning (spec: unload must not leave
// dangling tool registrations, and a failed load must not leak a handle).
func (l *Loader) Load(path string) (string, error) {
	native, err := loadNativeFunc(path)
	if err != nil {
		l.recordLoadFailure()
		return "", apperr.Wrap(apperr.PluginLoadFailed, "failed to load plugin", err)
	}

	manifestJSON, err := native.getManifest()
	if err != nil {
		native.close()
		l.recordLoadFailure()
		return "", apperr.Wrap(apperr.PluginLoadFailed, "failed to read plugin manifest", err)
	}
	manifest, err := ParseManifest([]byte(manifestJSON))
	if err != nil {
		native.close()
		l.recordLoadFailure()
		return "", apperr.Wrap(apperr.PluginLoadFailed, "failed to parse plugin manifest", err)
	}

	l.mu.Lock()
	if _, exists := l.plugins[manifest.PluginID]; exists {
		l.mu.Unlock()
		native.close()
		return "", apperr.New(apperr.DuplicateName, fmt.Sprintf("plugin already loaded: %s", manifest.PluginID))
	}
	l.mu.Unlock()

	lp := &loadedPlugin{path: path, manifest: manifest, native: native}
	for _, tool := range manifest.Capabilities.Tools {
		if err := l.registerTool(lp, tool); err != nil {
			l.unregisterTools(lp)
			native.close()
			l.recordLoadFailure()
			return "", apperr.Wrap(apperr.PluginLoadFailed, fmt.Sprintf("failed to register tool %s", tool.ID), err)
		}
	}

	l.mu.Lock()
	l.plugins[manifest.PluginID] = lp
	l.mu.Unlock()
	if l.metrics != nil {
		l.metrics.PluginLoadSuccess.Inc()
	}
	return manifest.PluginID, nil
}

func (l *Loader) recordLoadFailure() {
	if l.metrics != nil {
		l.metrics.PluginLoadFailures.Inc()
	}
}

func (l *Loader) registerTool(lp *loadedPlugin, tool ToolDecl) error {
	params, err := wire.ParseValue(tool.Parameters)
	if err != nil {
		return err
	}
	policy := wire.PolicyAuto
	switch tool.PermissionPolicy {
	case "ask":
		policy = wire.PolicyAsk
	case "deny":
		policy = wire.PolicyDeny
	}

	spec := wire.ToolSpec{
		Name:        tool.ID,
		Description: tool.Description,
		Parameters:  params,
		Policy:      policy,
		Provenance: wire.Provenance{
			Kind:     wire.ProvenanceExternalPlugin,
			PluginID: lp.manifest.PluginID,
			Version:  lp.manifest.Version,
		},
	}

	toolID := tool.ID
	handler := func(ctx context.Context, cc registry.CallerContext, argumentsJSON string) ([]byte, error) {
		result, err := lp.native.invoke("tool", toolID, argumentsJSON)
		if err != nil {
			l.diag.record(lp.manifest.PluginID, err.Error())
			return nil, apperr.Wrap(apperr.UpstreamFailure, fmt.Sprintf("plugin tool %s failed", toolID), err)
		}
		return []byte(result), nil
	}

	if err := l.reg.Register(spec, handler); err != nil {
		return err
	}
	lp.toolNames = append(lp.toolNames, tool.ID)
	return nil
}

func (l *Loader) unregisterTools(lp *loadedPlugin) {
	for i := len(lp.toolNames) - 1; i >= 0; i-- {
		l.reg.Unregister(lp.toolNames[i])
	}
	lp.toolNames = nil
}

// Unload unregisters a plugin's tools (reverse order), destroys its
// context, and closes its handle.
func (l *Loader) Unload(pluginID string) error {
	l.mu.Lock()
	lp, ok := l.plugins[pluginID]
	if ok {
		delete(l.plugins, pluginID)
	}
	l.mu.Unlock()
	if !ok {
		return apperr.New(apperr.SpecNotFound, fmt.Sprintf("plugin not loaded: %s", pluginID))
	}

	l.unregisterTools(lp)
	if err := lp.native.close(); err != nil {
		l.diag.record(pluginID, err.Error())
		return apperr.Wrap(apperr.Internal, "failed to close plugin handle", err)
	}
	return nil
}

// Loaded returns the plugin IDs currently loaded.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.plugins))
	for id := range l.plugins {
		ids = append(ids, id)
	}
	return ids
}

// Diagnostics returns a snapshot of recent plugin failures.
func (l *Loader) Diagnostics() []Diagnostic {
	return l.diag.Snapshot()
}
