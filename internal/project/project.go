// Package project locates and bootstraps the .yacbi directory that
// anchors one indexed project (spec §4.6/§8). Grounded on
// get_root_for_path in _examples/original_source/yacbi.py, generalized
// from a single .yacbi.db file to the .yacbi/ directory spec §6 names
// (index.db plus the optional config.json).
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the project marker directory, analogous to .git.
const DirName = ".yacbi"

// DBFileName is the SQLite database file inside DirName.
const DBFileName = "index.db"

// ConfigFileName is the optional configuration file inside DirName.
const ConfigFileName = "config.json"

// FindRoot walks up from path (or its containing directory, if path is
// itself a directory) looking for a .yacbi marker, matching
// get_root_for_path's walk-to-filesystem-root loop.
func FindRoot(path string) (string, error) {
	info, err := os.Stat(path)
	current := path
	if err == nil && !info.IsDir() {
		current = filepath.Dir(path)
	}
	current = filepath.Clean(current)

	for {
		marker := filepath.Join(current, DirName)
		if fi, err := os.Stat(marker); err == nil && fi.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no %s found above %s", DirName, path)
		}
		current = parent
	}
}

// Init creates a fresh .yacbi directory under root, ready for its
// first update run. It is an error for the directory to already exist.
func Init(root string) error {
	dir := filepath.Join(root, DirName)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%s already initialized", dir)
	}
	return os.MkdirAll(dir, 0o755)
}

// DBPath returns the SQLite database path for a project rooted at root.
func DBPath(root string) string {
	return filepath.Join(root, DirName, DBFileName)
}

// ConfigPath returns the config.json path for a project rooted at root.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, ConfigFileName)
}
