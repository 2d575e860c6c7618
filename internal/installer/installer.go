package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/metrics"
	"github.com/osaurus-ai/osaurus/internal/semver"
)

// Installer implements the resolve/download/verify/extract/install flow
// of spec §4.E, grounded on the teacher's internal/marketplace/installer.go
// (atomic staging, rollback-on-failure) and verification.go/registry.go
// for the verify and fetch steps respectively.
type Installer struct {
	Store       *Store
	Registry    *RegistryClient
	Verifier    *Verifier
	HostVersion semver.Version
	Logger      *slog.Logger
	Metrics     *metrics.Metrics

	// TrustedKeys supplements a spec's own PublicKeys with operator-pinned
	// keys from configuration (spec §4.E step 3), for signing keys that
	// predate or sit outside the central index entry.
	TrustedKeys map[string]string
}

func New(store *Store, registry *RegistryClient, verifier *Verifier, hostVersion semver.Version, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{Store: store, Registry: registry, Verifier: verifier, HostVersion: hostVersion, Logger: logger.With("component", "installer"), Metrics: metrics.New()}
}

func (ins *Installer) recordOutcome(operation string, err error) {
	if ins.Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	ins.Metrics.InstallOutcomes.WithLabelValues(operation, result).Inc()
}

// Install resolves, downloads, verifies, and installs one plugin
// version, then flips `current` to it (spec §4.E "Resolution algorithm"
// and "Acquire and verify").
func (ins *Installer) Install(ctx context.Context, pluginID, preferredVersion string) (_ Receipt, err error) {
	defer func() { ins.recordOutcome("install", err) }()

	spec, err := ins.Registry.FetchSpec(ctx, pluginID)
	if err != nil {
		return Receipt{}, err
	}

	entry, err := ins.resolveVersion(spec, preferredVersion)
	if err != nil {
		return Receipt{}, err
	}

	artifact, ok := entry.ArtifactFor(runtime.GOOS, runtime.GOARCH)
	if !ok {
		err = apperr.New(apperr.NoMatchingArtifact, fmt.Sprintf("no artifact for %s/%s in %s@%s", runtime.GOOS, runtime.GOARCH, pluginID, entry.Version))
		return Receipt{}, err
	}

	var receipt Receipt
	receipt, err = ins.installArtifact(ctx, pluginID, entry.Version, artifact, ins.mergedPublicKeys(spec.PublicKeys))
	return receipt, err
}

// mergedPublicKeys lets an operator-configured trusted key serve a spec
// that declares no key for a scheme, without overriding one the spec
// does declare.
func (ins *Installer) mergedPublicKeys(specKeys map[string]string) map[string]string {
	if len(ins.TrustedKeys) == 0 {
		return specKeys
	}
	merged := make(map[string]string, len(specKeys)+len(ins.TrustedKeys))
	for scheme, key := range ins.TrustedKeys {
		merged[scheme] = key
	}
	for scheme, key := range specKeys {
		merged[scheme] = key
	}
	return merged
}

// resolveVersion implements spec §4.E steps 1-4: filter by min host
// version, sort descending, select exact-or-highest.
func (ins *Installer) resolveVersion(spec *PluginSpec, preferredVersion string) (VersionEntry, error) {
	var candidates []VersionEntry
	for _, v := range spec.Versions {
		if v.Requires != nil && v.Requires.MinHostVersion != "" {
			min, err := semver.Parse(v.Requires.MinHostVersion)
			if err == nil && !semver.SatisfiesMin(ins.HostVersion, min) {
				continue
			}
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return VersionEntry{}, apperr.New(apperr.SpecNotFound, fmt.Sprintf("no compatible version for plugin %s", spec.PluginID))
	}

	parsed := make([]semver.Version, len(candidates))
	for i, c := range candidates {
		v, err := semver.Parse(c.Version)
		if err != nil {
			return VersionEntry{}, apperr.Wrap(apperr.SpecNotFound, fmt.Sprintf("invalid version %q in spec", c.Version), err)
		}
		parsed[i] = v
	}
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && parsed[order[j]].Compare(parsed[order[j-1]]) > 0; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	if preferredVersion != "" {
		for _, idx := range order {
			if candidates[idx].Version == preferredVersion {
				return candidates[idx], nil
			}
		}
		return VersionEntry{}, apperr.New(apperr.SpecNotFound, fmt.Sprintf("version %s not found or incompatible for %s", preferredVersion, spec.PluginID))
	}
	return candidates[order[0]], nil
}

// installArtifact implements spec §4.E "Acquire and verify" steps 1-7,
// with rollback to "not present" on any failure after the copy step.
func (ins *Installer) installArtifact(ctx context.Context, pluginID, version string, artifact Artifact, publicKeys map[string]string) (Receipt, error) {
	data, err := ins.Registry.DownloadArtifact(ctx, artifact.URL)
	if err != nil {
		return Receipt{}, err
	}

	if err := ins.Verifier.VerifyChecksum(data, artifact.SHA256); err != nil {
		return Receipt{}, err
	}
	if err := ins.Verifier.VerifySignature(data, artifact.Signature, publicKeys); err != nil {
		return Receipt{}, err
	}

	stageDir, err := os.MkdirTemp(ins.Store.ToolsRoot, ".install-")
	if err != nil {
		return Receipt{}, apperr.Wrap(apperr.Internal, "create staging directory", err)
	}
	defer os.RemoveAll(stageDir)

	libPath, err := extractSingleLibrary(stageDir, data)
	if err != nil {
		return Receipt{}, err
	}

	versionDir := ins.Store.VersionDir(pluginID, version)
	if err := os.RemoveAll(versionDir); err != nil {
		return Receipt{}, apperr.Wrap(apperr.Internal, "clear partial version directory", err)
	}
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return Receipt{}, apperr.Wrap(apperr.Internal, "create version directory", err)
	}

	dylibName := pluginID + libExtension(runtime.GOOS)
	installed, err := copyFile(libPath, versionDir, dylibName)
	if err != nil {
		os.RemoveAll(versionDir)
		return Receipt{}, apperr.Wrap(apperr.Internal, "install plugin library", err)
	}
	clearQuarantine(installed)

	dylibSHA, err := fileSHA256(installed)
	if err != nil {
		os.RemoveAll(versionDir)
		return Receipt{}, apperr.Wrap(apperr.Internal, "checksum installed library", err)
	}

	receipt := Receipt{
		PluginID:          pluginID,
		Version:           version,
		InstalledAt:       time.Now(),
		DylibFilename:     dylibName,
		DylibSHA256:       dylibSHA,
		Platform:          runtime.GOOS,
		Arch:              runtime.GOARCH,
		ArtifactURL:       artifact.URL,
		ArtifactSHA256:    artifact.SHA256,
		ArtifactSignature: artifact.Signature,
	}
	if err := ins.Store.WriteReceipt(receipt); err != nil {
		os.RemoveAll(versionDir)
		return Receipt{}, apperr.Wrap(apperr.Internal, "write receipt", err)
	}

	if err := ins.Store.SetCurrent(pluginID, version); err != nil {
		os.RemoveAll(versionDir)
		return Receipt{}, apperr.Wrap(apperr.Internal, "update current symlink", err)
	}

	ins.Logger.Info("plugin installed", "plugin_id", pluginID, "version", version)
	return receipt, nil
}

// Upgrade upgrades one plugin id to its latest compatible version, or
// every installed plugin if pluginID is empty.
func (ins *Installer) Upgrade(ctx context.Context, pluginID string) ([]Receipt, error) {
	if pluginID != "" {
		r, err := ins.Install(ctx, pluginID, "")
		if err != nil {
			return nil, err
		}
		return []Receipt{r}, nil
	}

	var results []Receipt
	var firstErr error
	for _, id := range ins.Store.ListPlugins() {
		r, err := ins.Install(ctx, id, "")
		if err != nil {
			ins.Logger.Warn("upgrade failed", "plugin_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Rollback flips `current` to the next-most-recent installed version
// (spec §4.E "Rollback"). It never deletes the version rolled away from.
func (ins *Installer) Rollback(pluginID string) (_ Receipt, err error) {
	defer func() { ins.recordOutcome("rollback", err) }()

	versions := ins.Store.InstalledVersions(pluginID)
	if len(versions) < 2 {
		err = apperr.New(apperr.NoPreviousVersion, fmt.Sprintf("plugin %s has fewer than two installed versions", pluginID))
		return Receipt{}, err
	}
	target := versions[1].String()
	if err = ins.Store.SetCurrent(pluginID, target); err != nil {
		err = apperr.Wrap(apperr.Internal, "update current symlink", err)
		return Receipt{}, err
	}
	var receipt Receipt
	receipt, err = ins.Store.ReadReceipt(pluginID, target)
	return receipt, err
}

// Uninstall removes a plugin. target may be a plugin_id, a directory
// name under the tools root, or a filesystem path to a plugin
// directory — the installer resolves all three to a plugin id.
func (ins *Installer) Uninstall(target string) error {
	pluginID := resolveUninstallTarget(ins.Store.ToolsRoot, target)
	if len(ins.Store.InstalledVersions(pluginID)) == 0 {
		if _, ok := ins.Store.Current(pluginID); !ok {
			return apperr.New(apperr.SpecNotFound, fmt.Sprintf("plugin not installed: %s", pluginID))
		}
	}
	if err := ins.Store.RemovePlugin(pluginID); err != nil {
		return apperr.Wrap(apperr.Internal, "remove plugin directory", err)
	}
	ins.Logger.Info("plugin uninstalled", "plugin_id", pluginID)
	return nil
}

// Verify recomputes the dylib SHA-256 for every installed receipt and
// reports per-version OK/FAIL (spec §4.E "verify").
func (ins *Installer) Verify() []VerifyResult {
	var results []VerifyResult
	for _, pluginID := range ins.Store.ListPlugins() {
		for _, v := range ins.Store.InstalledVersions(pluginID) {
			version := v.String()
			r, err := ins.Store.ReadReceipt(pluginID, version)
			if err != nil {
				results = append(results, VerifyResult{PluginID: pluginID, Version: version, Error: err})
				continue
			}
			libPath, err := ins.Store.DylibPath(pluginID, version)
			if err != nil {
				results = append(results, VerifyResult{PluginID: pluginID, Version: version, Error: err})
				continue
			}
			sum, err := fileSHA256(libPath)
			if err != nil {
				results = append(results, VerifyResult{PluginID: pluginID, Version: version, Error: err})
				continue
			}
			ok := sum == r.DylibSHA256
			var verr error
			if !ok {
				verr = apperr.New(apperr.ChecksumMismatch, fmt.Sprintf("installed dylib sha256 %s does not match receipt %s", sum, r.DylibSHA256))
			}
			results = append(results, VerifyResult{PluginID: pluginID, Version: version, OK: ok, Error: verr})
		}
	}
	return results
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
