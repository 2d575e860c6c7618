// Package installer implements the plugin installer (spec §4.E, §6):
// resolving a plugin spec from a central index, downloading and
// verifying an artifact, unpacking it, and recording an authoritative
// on-disk receipt. Grounded on the teacher's internal/marketplace
// package (installer.go, verification.go, registry.go, store.go),
// reworked for this spec's multi-version-per-plugin model and
// file-system-only state (see DESIGN.md Open Questions #2, #3).
package installer

import (
	"encoding/json"
	"time"
)

// Artifact is one platform-specific build of a plugin version.
type Artifact struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	URL       string `json:"url"`
	SHA256    string `json:"sha256"`
	Size      int64  `json:"size,omitempty"`
	Signature string `json:"signature,omitempty"` // base64 Ed25519 detached signature
}

// VersionRequirements gates a version on host compatibility.
type VersionRequirements struct {
	MinHostVersion string `json:"min_host_version,omitempty"`
}

// VersionEntry is one published version of a plugin.
type VersionEntry struct {
	Version   string               `json:"version"`
	Artifacts []Artifact           `json:"artifacts"`
	Requires  *VersionRequirements `json:"requires,omitempty"`
}

// PluginSpec is one entry in the central plugin index (spec §3).
type PluginSpec struct {
	PluginID    string            `json:"plugin_id"`
	Description string            `json:"description,omitempty"`
	Versions    []VersionEntry    `json:"versions"`
	PublicKeys  map[string]string `json:"public_keys,omitempty"` // scheme -> base64 key
}

// VersionFor returns the VersionEntry matching version, if any.
func (s *PluginSpec) VersionFor(version string) (VersionEntry, bool) {
	for _, v := range s.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// ArtifactFor returns the artifact matching (os, arch) within a version entry.
func (v VersionEntry) ArtifactFor(goos, arch string) (Artifact, bool) {
	for _, a := range v.Artifacts {
		if a.OS == goos && a.Arch == arch {
			return a, true
		}
	}
	return Artifact{}, false
}

// Receipt is the authoritative on-disk record of one installed plugin
// version (spec §3). It is the sole source of truth: install/list/
// rollback/verify all derive state from receipts on disk.
type Receipt struct {
	PluginID          string    `json:"plugin_id"`
	Version           string    `json:"version"`
	InstalledAt       time.Time `json:"installed_at"`
	DylibFilename     string    `json:"dylib_filename"`
	DylibSHA256       string    `json:"dylib_sha256"`
	Platform          string    `json:"platform"`
	Arch              string    `json:"arch"`
	ArtifactURL       string    `json:"artifact_url"`
	ArtifactSHA256    string    `json:"artifact_sha256"`
	ArtifactSignature string    `json:"artifact_signature,omitempty"`
}

func (r Receipt) marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// VerifyResult is one per-version outcome of Installer.Verify.
type VerifyResult struct {
	PluginID string
	Version  string
	OK       bool
	Error    error
}
