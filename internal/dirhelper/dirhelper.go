package dirhelper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// EnsureDirectory creates path and any missing parents. It does nothing when
// the directory already exists.
func EnsureDirectory(fs afero.Fs, path string) error {
	if path == "" || path == "." {
		return nil
	}

	exists, err := afero.DirExists(fs, path)
	if err != nil {
		return fmt.Errorf("stat directory %s: %w", path, err)
	}
	if exists {
		return nil
	}

	if err := fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// NormalizePath accepts either slash style and returns a cleaned path using
// the host separator.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(path, `\`, "/")))
}
