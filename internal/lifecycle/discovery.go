package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiscoveryRecord is the JSON payload written to the port file so other
// local processes (a CLI, a UI) can find the running instance without
// scanning ports. Grounded on the teacher's lockPayload in
// internal/gateway/singleton_lock.go, repurposed from a mutual-exclusion
// lock into a plain discovery record (spec §4.I: "a port file /
// discovery record").
type DiscoveryRecord struct {
	PID       int    `json:"pid"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	StartedAt string `json:"started_at"`
}

// discoveryPath returns the well-known port-file location under dir
// (typically the OS user-config/state directory).
func discoveryPath(dir string) string {
	return filepath.Join(dir, "osaurus.port.json")
}

// writeDiscoveryRecord writes the record atomically (temp file + rename),
// the same idiom the teacher uses for its lock payload and the installer
// uses for receipts.
func writeDiscoveryRecord(dir string, rec DiscoveryRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create discovery dir: %w", err)
	}
	path := discoveryPath(dir)
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal discovery record: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".osaurus.port-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp discovery record: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp discovery record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp discovery record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename discovery record into place: %w", err)
	}
	return path, nil
}

// ReadDiscoveryRecord reads the port file written by a running instance.
func ReadDiscoveryRecord(dir string) (DiscoveryRecord, error) {
	data, err := os.ReadFile(discoveryPath(dir))
	if err != nil {
		return DiscoveryRecord{}, err
	}
	var rec DiscoveryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DiscoveryRecord{}, fmt.Errorf("parse discovery record: %w", err)
	}
	return rec, nil
}

// removeDiscoveryRecord deletes the port file on graceful shutdown so a
// stale record never outlives its process.
func removeDiscoveryRecord(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newDiscoveryRecord(host string, port int) DiscoveryRecord {
	return DiscoveryRecord{
		PID:       os.Getpid(),
		Host:      host,
		Port:      port,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
