// Package plugin implements the C-ABI external plugin loader (spec §4.D,
// §6): shared libraries exporting a single `osaurus_plugin_entry()`
// symbol that returns a vtable of five function pointers. Loading goes
// through cgo's dlopen/dlsym rather than Go's native `plugin` package,
// because the native package requires the plugin to be built with the
// exact same Go toolchain version as the host (see DESIGN.md) — the
// spec's ABI is meant to be stable across languages and Go releases.
package plugin

import "encoding/json"

// Manifest is the JSON a plugin's get_manifest() call returns.
type Manifest struct {
	PluginID     string       `json:"plugin_id"`
	Version      string       `json:"version"`
	Description  string       `json:"description,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

type Capabilities struct {
	Tools []ToolDecl `json:"tools"`
}

// ToolDecl is one tool a plugin declares in its manifest.
type ToolDecl struct {
	ID               string          `json:"id"`
	Description      string          `json:"description,omitempty"`
	Parameters       json.RawMessage `json:"parameters"`
	Requirements     json.RawMessage `json:"requirements,omitempty"`
	PermissionPolicy string          `json:"permission_policy,omitempty"`
}

func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
