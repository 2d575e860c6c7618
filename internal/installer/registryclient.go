package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// RegistryClient fetches plugin specs from a central index and caches
// the last-fetched copy to <app-support>/PluginSpecs/<plugin_id>.json
// (spec §3), grounded on the teacher's internal/marketplace/registry.go
// TTL-cached HTTP client, narrowed to this spec's one-spec-per-plugin-id
// index layout.
type RegistryClient struct {
	IndexURL   string
	SpecsDir   string
	HTTPClient *http.Client
	Logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedSpec
	ttl   time.Duration
}

type cachedSpec struct {
	spec   *PluginSpec
	fetched time.Time
}

const maxArtifactBytes = 100 * 1024 * 1024 // mirrors the teacher's 100MB download cap

func NewRegistryClient(indexURL, specsDir string, logger *slog.Logger) *RegistryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryClient{
		IndexURL:   indexURL,
		SpecsDir:   specsDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger.With("component", "installer.registry"),
		cache:      make(map[string]cachedSpec),
		ttl:        15 * time.Minute,
	}
}

// FetchSpec fetches <IndexURL>/<plugin_id>.json, serving a TTL-cached
// in-memory copy when fresh, and writes the successfully fetched spec
// to SpecsDir for offline reference.
func (c *RegistryClient) FetchSpec(ctx context.Context, pluginID string) (*PluginSpec, error) {
	c.mu.Lock()
	if cs, ok := c.cache[pluginID]; ok && time.Since(cs.fetched) < c.ttl {
		c.mu.Unlock()
		return cs.spec, nil
	}
	c.mu.Unlock()

	specURL, err := url.JoinPath(c.IndexURL, pluginID+".json")
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "invalid registry index URL", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "build registry request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, fmt.Sprintf("fetch plugin spec for %s", pluginID), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.SpecNotFound, fmt.Sprintf("registry returned %d for %s", resp.StatusCode, pluginID))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "read plugin spec body", err)
	}

	var spec PluginSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "parse plugin spec", err)
	}
	if spec.PluginID == "" {
		spec.PluginID = pluginID
	}

	c.mu.Lock()
	c.cache[pluginID] = cachedSpec{spec: &spec, fetched: time.Now()}
	c.mu.Unlock()

	if c.SpecsDir != "" {
		if err := os.MkdirAll(c.SpecsDir, 0o755); err == nil {
			cachePath := filepath.Join(c.SpecsDir, pluginID+".json")
			if err := os.WriteFile(cachePath, data, 0o644); err != nil {
				c.Logger.Warn("failed to cache plugin spec", "id", pluginID, "error", err)
			}
		}
	}

	return &spec, nil
}

// DownloadArtifact streams an artifact URL fully into memory, bounded
// by maxArtifactBytes.
func (c *RegistryClient) DownloadArtifact(ctx context.Context, artifactURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "build artifact request", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.SpecNotFound, "download artifact", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.SpecNotFound, fmt.Sprintf("artifact download returned %d", resp.StatusCode))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
}
