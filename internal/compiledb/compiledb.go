// Package compiledb loads a compile_commands.json compilation database
// (spec §4.2). Grounded on the original implementation's
// CompilationDatabase class (_examples/original_source/yacbi.py), which
// wraps libclang's own CompilationDatabase.fromDirectory; this port
// parses the JSON directly with encoding/json so the normalizer (which
// needs to run over the same argv either way) is the single source of
// path canonicalization instead of splitting it across two loaders.
package compiledb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	yerrors "github.com/kubinux/yacbi-go/internal/errors"
	"github.com/kubinux/yacbi-go/internal/normalizer"
)

// Command is one compile_commands.json entry, with File normalized to
// an absolute path (spec §4.1) and Arguments split into an argv slice
// regardless of whether the entry used "arguments" or "command".
type Command struct {
	File      string
	Directory string
	Arguments []string
}

// DB is an in-memory index of a compile_commands.json file, keyed by
// normalized file path.
type DB struct {
	byFile map[string]Command
}

type rawEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Command   string   `json:"command"`
}

// Load reads root/compile_commands.json. A missing or unparsable file
// is a *yerrors.ConfigError (spec §7's fatal configuration class).
func Load(root string) (*DB, error) {
	path := filepath.Join(root, "compile_commands.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, yerrors.NewConfigError(path, err)
	}

	var entries []rawEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, yerrors.NewConfigError(path, err)
	}

	db := &DB{byFile: make(map[string]Command, len(entries))}
	for _, e := range entries {
		argv := e.Arguments
		if len(argv) == 0 && e.Command != "" {
			argv = splitCommand(e.Command)
		}
		file := normalizer.Normalize(e.Directory, e.File)
		db.byFile[file] = Command{
			File:      file,
			Directory: e.Directory,
			Arguments: argv,
		}
	}
	return db, nil
}

// AllFiles returns every normalized source path named by the database,
// matching the original's get_all_files().
func (db *DB) AllFiles() map[string]bool {
	out := make(map[string]bool, len(db.byFile))
	for f := range db.byFile {
		out[f] = true
	}
	return out
}

// CommandFor returns the compile command for a normalized file path.
func (db *DB) CommandFor(file string) (Command, bool) {
	c, ok := db.byFile[file]
	return c, ok
}

// splitCommand is a minimal shell-word splitter for the legacy
// "command" string form (clang tooling accepts either "arguments" or
// "command"; quoting beyond simple whitespace-separated tokens is not
// produced by any generator in the wild for this field).
func splitCommand(cmd string) []string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:] // drop the compiler invocation itself
}
