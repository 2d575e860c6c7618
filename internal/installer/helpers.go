package installer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// copyFile copies src into destDir under name, returning the new path.
func copyFile(src, destDir, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dest := filepath.Join(destDir, name)
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return dest, nil
}

// resolveUninstallTarget accepts a plugin_id, a bare directory name
// under toolsRoot, or a filesystem path to a plugin directory, and
// returns the plugin id to remove (spec §4.E: "target may be a
// plugin_id, a directory name, or a filesystem path").
func resolveUninstallTarget(toolsRoot, target string) string {
	if !strings.ContainsAny(target, `/\`) {
		return target
	}
	clean := filepath.Clean(target)
	rel, err := filepath.Rel(toolsRoot, clean)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(clean)
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	return parts[0]
}
