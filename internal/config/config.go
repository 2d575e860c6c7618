// Package config loads the gateway's configuration from a YAML file
// with environment-variable overrides, narrowed from the teacher's
// internal/config.Config (a much larger, multi-subsystem struct) down
// to the fields this core actually needs: listen address, CORS
// allow-list, tools root, plugin index URL, trusted signing keys, and
// per-request timeout default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	CORS    CORSConfig    `yaml:"cors"`
	Tools   ToolsConfig   `yaml:"tools"`
	Request RequestConfig `yaml:"request"`
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig controls OpenTelemetry span export. An empty OTLPEndpoint
// keeps spans in-process without exporting them anywhere.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// ServerConfig controls listener binding.
type ServerConfig struct {
	// Host is the bind address. Defaults to 127.0.0.1; set to 0.0.0.0
	// to expose the gateway to the network (spec §4.I).
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CORSConfig is the configured allow-list; empty disables CORS entirely.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// ToolsConfig configures the external plugin store and central index.
type ToolsConfig struct {
	// Root is the tools-root directory (spec §3's `<app-support>/Tools`).
	Root string `yaml:"root"`
	// IndexURL is the central plugin index base URL.
	IndexURL string `yaml:"index_url"`
	// TrustedKeys maps a signature scheme name to a base64 Ed25519
	// public key, supplementing keys carried in individual plugin specs.
	TrustedKeys map[string]string `yaml:"trusted_keys"`
	// ReconcileSchedule is a robfig/cron expression (or "@every 5m"
	// style descriptor) on which a fallback plugin-directory
	// reconciliation and a checksum verify pass run, as a backstop to
	// fsnotify-driven hot reload (internal/lifecycle.ReconcileScheduler).
	// Empty disables the schedule.
	ReconcileSchedule string `yaml:"reconcile_schedule"`
}

// RequestConfig controls default request-handling timeouts.
type RequestConfig struct {
	// NonStreamTimeout bounds a non-streaming request (spec §5: 30s default).
	NonStreamTimeout time.Duration `yaml:"non_stream_timeout"`
}

// Default returns the zero-config default: loopback-only on port 1337,
// no CORS, tools rooted under the OS user-config directory.
func Default() Config {
	root, err := os.UserConfigDir()
	if err != nil {
		root = "."
	}
	return Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 1337},
		Tools: ToolsConfig{
			Root:              root + "/osaurus/Tools",
			IndexURL:          "https://plugins.osaurus.dev",
			ReconcileSchedule: "@every 5m",
		},
		Request: RequestConfig{NonStreamTimeout: 30 * time.Second},
	}
}

// Load reads a YAML config file (if path is non-empty and exists) over
// Default(), then applies environment-variable overrides, mirroring the
// teacher's layered-file + env approach in internal/config/config.go.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments (containers, launchd
// plists) override the handful of settings operators most commonly need
// to change without editing the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OSAURUS_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OSAURUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OSAURUS_EXPOSE"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Server.Host = "0.0.0.0"
	}
	if v := os.Getenv("OSAURUS_CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("OSAURUS_TOOLS_ROOT"); v != "" {
		cfg.Tools.Root = v
	}
	if v := os.Getenv("OSAURUS_TOOLS_INDEX_URL"); v != "" {
		cfg.Tools.IndexURL = v
	}
	if v := os.Getenv("OSAURUS_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.OTLPEndpoint = v
	}
	if v := os.Getenv("OSAURUS_TOOLS_RECONCILE_SCHEDULE"); v != "" {
		cfg.Tools.ReconcileSchedule = v
	}
}
