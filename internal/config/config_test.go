package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := "server:\n  host: 0.0.0.0\n  port: 9999\ncors:\n  allow_origins: [\"*\"]\n"
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9999 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if len(cfg.CORS.AllowOrigins) != 1 || cfg.CORS.AllowOrigins[0] != "*" {
		t.Fatalf("cors = %+v", cfg.CORS)
	}
	if cfg.Request.NonStreamTimeout == 0 {
		t.Fatalf("expected default non-stream timeout to survive partial YAML")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Server != want.Server {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
}

func TestEnvOverridesApply(t *testing.T) {
	t.Setenv("OSAURUS_PORT", "4242")
	t.Setenv("OSAURUS_EXPOSE", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4242 {
		t.Fatalf("port = %d, want 4242", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("host = %q, want 0.0.0.0", cfg.Server.Host)
	}
}

func TestEnvOverrideOTLPEndpoint(t *testing.T) {
	t.Setenv("OSAURUS_OTLP_ENDPOINT", "collector:4317")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracing.OTLPEndpoint != "collector:4317" {
		t.Fatalf("otlp endpoint = %q, want collector:4317", cfg.Tracing.OTLPEndpoint)
	}
}

func TestDefaultReconcileSchedule(t *testing.T) {
	cfg := Default()
	if cfg.Tools.ReconcileSchedule == "" {
		t.Fatalf("expected a non-empty default reconcile schedule")
	}
}

func TestEnvOverrideReconcileSchedule(t *testing.T) {
	t.Setenv("OSAURUS_TOOLS_RECONCILE_SCHEDULE", "@every 1m")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools.ReconcileSchedule != "@every 1m" {
		t.Fatalf("reconcile schedule = %q, want @every 1m", cfg.Tools.ReconcileSchedule)
	}
}
