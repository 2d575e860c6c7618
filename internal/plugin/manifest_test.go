package plugin

import "testing"

func TestParseManifest(t *testing.T) {
	data := []byte(`{
		"plugin_id": "echo",
		"version": "1.0.0",
		"capabilities": {
			"tools": [{"id":"echo.say","parameters":{"type":"object"},"permission_policy":"auto"}]
		}
	}`)
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.PluginID != "echo" || m.Version != "1.0.0" {
		t.Fatalf("manifest = %+v", m)
	}
	if len(m.Capabilities.Tools) != 1 || m.Capabilities.Tools[0].ID != "echo.say" {
		t.Fatalf("tools = %+v", m.Capabilities.Tools)
	}
}

func TestParseManifestInvalidJSON(t *testing.T) {
	if _, err := ParseManifest([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDiagnosticsRingTrimsToCapacity(t *testing.T) {
	r := newDiagnosticsRing()
	for i := 0; i < maxDiagnostics+50; i++ {
		r.record("plugin-a", "failure")
	}
	snap := r.Snapshot()
	if len(snap) != maxDiagnostics {
		t.Fatalf("len(snapshot) = %d, want %d", len(snap), maxDiagnostics)
	}
}
