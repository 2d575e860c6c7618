package installer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/semver"
)

const currentLinkName = "current"
const receiptFilename = "receipt.json"

// Store mediates every read/write of the on-disk plugin layout (spec
// §3): `<tools-root>/<plugin_id>/<semver>/{receipt.json,<lib>}` plus a
// `current` symlink. It carries no parallel index — every operation
// re-derives state from the filesystem, per DESIGN.md Open Question #2.
// Grounded on the teacher's internal/marketplace/store.go path
// sanitization and corrupted-file recovery idiom.
type Store struct {
	ToolsRoot string
	logger    *slog.Logger
}

func NewStore(toolsRoot string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(toolsRoot, 0o755); err != nil {
		logger.Warn("failed to create tools root", "path", toolsRoot, "error", err)
	}
	return &Store{ToolsRoot: toolsRoot, logger: logger.With("component", "installer.store")}
}

// PluginDir returns <tools-root>/<plugin_id>.
func (s *Store) PluginDir(pluginID string) string {
	return filepath.Join(s.ToolsRoot, sanitizeID(pluginID))
}

// VersionDir returns <tools-root>/<plugin_id>/<version>.
func (s *Store) VersionDir(pluginID, version string) string {
	return filepath.Join(s.PluginDir(pluginID), version)
}

func (s *Store) currentLinkPath(pluginID string) string {
	return filepath.Join(s.PluginDir(pluginID), currentLinkName)
}

func (s *Store) receiptPath(pluginID, version string) string {
	return filepath.Join(s.VersionDir(pluginID, version), receiptFilename)
}

// ReadReceipt reads and parses one version's receipt. A corrupted file
// is treated as "not present" rather than fatal, mirroring the
// teacher's backup-and-recreate resilience: it is moved aside so a
// reinstall is not blocked by a half-written file.
func (s *Store) ReadReceipt(pluginID, version string) (Receipt, error) {
	data, err := os.ReadFile(s.receiptPath(pluginID, version))
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		backup := s.receiptPath(pluginID, version) + ".corrupt-" + time.Now().Format("20060102-150405")
		if renameErr := os.Rename(s.receiptPath(pluginID, version), backup); renameErr != nil {
			s.logger.Warn("failed to quarantine corrupt receipt", "path", s.receiptPath(pluginID, version), "error", renameErr)
		} else {
			s.logger.Warn("quarantined corrupt receipt", "backup", backup)
		}
		return Receipt{}, fmt.Errorf("corrupt receipt: %w", err)
	}
	return r, nil
}

// WriteReceipt writes a version's receipt atomically (temp-file + rename).
func (s *Store) WriteReceipt(r Receipt) error {
	dir := s.VersionDir(r.PluginID, r.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create version dir: %w", err)
	}
	data, err := r.marshal()
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".receipt-*.json")
	if err != nil {
		return fmt.Errorf("create temp receipt: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp receipt: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp receipt: %w", err)
	}
	if err := os.Rename(tmpPath, s.receiptPath(r.PluginID, r.Version)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt into place: %w", err)
	}
	return nil
}

// InstalledVersions lists the versions of pluginID that have a valid
// receipt on disk, sorted descending by SemVer. Directories without a
// readable receipt are skipped (partially installed or corrupt).
func (s *Store) InstalledVersions(pluginID string) []semver.Version {
	entries, err := os.ReadDir(s.PluginDir(pluginID))
	if err != nil {
		return nil
	}
	var versions []semver.Version
	for _, e := range entries {
		if !e.IsDir() || e.Name() == currentLinkName {
			continue
		}
		if _, err := s.ReadReceipt(pluginID, e.Name()); err != nil {
			continue
		}
		v, err := semver.Parse(e.Name())
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	semver.SortDescending(versions)
	return versions
}

// ListPlugins returns every plugin_id with at least one entry under
// the tools root.
func (s *Store) ListPlugins() []string {
	entries, err := os.ReadDir(s.ToolsRoot)
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// Current resolves the `current` symlink to a version string. Returns
// false if no plugin, no symlink, or a symlink to a version without a
// valid receipt (spec invariant: `current` always points to an
// existing version directory with a valid receipt.json).
func (s *Store) Current(pluginID string) (string, bool) {
	target, err := os.Readlink(s.currentLinkPath(pluginID))
	if err != nil {
		return "", false
	}
	version := filepath.Base(target)
	if _, err := s.ReadReceipt(pluginID, version); err != nil {
		return "", false
	}
	return version, true
}

// SetCurrent atomically repoints the `current` symlink at version
// (remove-then-create, per spec §4.E step 7).
func (s *Store) SetCurrent(pluginID, version string) error {
	link := s.currentLinkPath(pluginID)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing current symlink: %w", err)
	}
	if err := os.Symlink(version, link); err != nil {
		return fmt.Errorf("create current symlink: %w", err)
	}
	return nil
}

// RemoveVersion deletes a version directory entirely.
func (s *Store) RemoveVersion(pluginID, version string) error {
	return os.RemoveAll(s.VersionDir(pluginID, version))
}

// RemovePlugin deletes every version of a plugin and its directory.
func (s *Store) RemovePlugin(pluginID string) error {
	return os.RemoveAll(s.PluginDir(pluginID))
}

// DylibPath returns the path to the given version's shared library,
// resolving that version's receipt for its filename.
func (s *Store) DylibPath(pluginID, version string) (string, error) {
	r, err := s.ReadReceipt(pluginID, version)
	if err != nil {
		return "", apperr.Wrap(apperr.SpecNotFound, "no receipt for installed version", err)
	}
	return filepath.Join(s.VersionDir(pluginID, version), r.DylibFilename), nil
}

// sanitizeID strips path-traversal-hostile characters from a plugin id
// before it is used as a directory name, grounded on the teacher's
// store.sanitizeID.
func sanitizeID(id string) string {
	clean := filepath.Base(filepath.Clean(id))
	if clean == "." || clean == ".." || clean == "" {
		return "invalid-plugin-id"
	}
	return clean
}
