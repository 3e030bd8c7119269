// Package pathutil converts between absolute and relative paths.
//
// The indexer stores and compares paths as absolute, normalized strings
// internally (§4.1) so that the same file is never recorded twice under
// two different spellings. User-facing query output, however, is more
// readable relative to the project root. This package is the conversion
// layer between the two representations.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to one relative to rootDir.
// Falls back to the original path if conversion fails, the path already
// is relative, or the path lies outside rootDir.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}
