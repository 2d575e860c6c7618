package installer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// libExtension returns the platform shared-library suffix the archive
// extractor looks for, per spec §6's archive format note ("a single
// platform shared-library file at any depth").
func libExtension(goos string) string {
	switch goos {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// extractSingleLibrary unzips archiveData into destDir and returns the
// path to the one platform shared-library file found at any depth.
// Zero or more-than-one matches is a LayoutInvalid error. Path entries
// are sanitized against zip-slip.
func extractSingleLibrary(destDir string, archiveData []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archiveData), int64(len(archiveData)))
	if err != nil {
		return "", apperr.Wrap(apperr.LayoutInvalid, "not a valid zip archive", err)
	}

	ext := libExtension(runtime.GOOS)
	var found string
	var matches int

	for _, f := range zr.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			continue // zip-slip guard
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("create directory: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create parent directory: %w", err)
		}
		if err := extractOne(f, target); err != nil {
			return "", err
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ext) {
			matches++
			found = target
		}
	}

	if matches == 0 {
		return "", apperr.New(apperr.LayoutInvalid, fmt.Sprintf("archive contains no %s shared library", ext))
	}
	if matches > 1 {
		return "", apperr.New(apperr.LayoutInvalid, fmt.Sprintf("archive contains more than one %s shared library", ext))
	}
	return found, nil
}

func extractOne(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open file in zip: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create extracted file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract file: %w", err)
	}
	return nil
}

// clearQuarantine best-effort clears the macOS quarantine extended
// attribute on a freshly installed dylib; a no-op (and never fatal) on
// other platforms or when the attribute tool is unavailable.
func clearQuarantine(path string) {
	if runtime.GOOS != "darwin" {
		return
	}
	_ = exec.Command("xattr", "-d", "com.apple.quarantine", path).Run()
}
