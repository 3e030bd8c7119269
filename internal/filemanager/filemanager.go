// Package filemanager computes what an update run needs to (re)index
// and reclaims headers no longer reachable from any root (spec §4.4).
// Grounded on _get_adds_and_removes, _get_commands_for_updates and
// _remove_orphaned_includes in
// _examples/original_source/yacbi.py.
package filemanager

import (
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kubinux/yacbi-go/internal/store"
)

// Diff compares the compilation database's roots against the store's
// existing non-included files: Added are roots the store has never
// seen, Removed are previously-indexed roots the database no longer
// names (a rebuild of the build system, a deleted source file, …).
type Diff struct {
	Added   []string
	Removed []string
}

// ComputeDiff implements _get_adds_and_removes: only files with
// is_included = 0 participate, since included files (headers) are
// reconciled by RemoveOrphanedIncludes instead.
func ComputeDiff(existing []store.FileRow, compileDBFiles map[string]bool) Diff {
	dbRoots := make(map[string]bool)
	for _, f := range existing {
		if !f.IsIncluded {
			dbRoots[f.Path] = true
		}
	}

	var d Diff
	for path := range compileDBFiles {
		if !dbRoots[path] {
			d.Added = append(d.Added, path)
		}
	}
	for path := range dbRoots {
		if !compileDBFiles[path] {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}

// StaleFile is a previously indexed file (root or header) whose
// on-disk mtime requires it to be re-parsed this run.
type StaleFile struct {
	Path       string
	WorkingDir string
	Args       []string
	IsIncluded bool
}

// StaleExisting implements _get_commands_for_updates: every file row
// whose on-disk mtime is at or after its recorded last_update is
// re-queued, carrying its own stored argv as the Args fallback (spec
// §9: mtime == last_update is treated as stale, matching the
// original's ">=" comparison, since a sub-second modification landing
// in the same timestamp bucket should still trigger a re-index rather
// than being silently missed). A still-listed root's caller (the
// driver) prefers the compilation database's current entry over this
// fallback — only a header, or a root the database no longer lists,
// actually ends up reparsed with the stored Args (spec §4.4 item 2).
// Rows whose file has disappeared are left untouched here — removal
// only happens via ComputeDiff for roots or RemoveOrphanedIncludes for
// orphaned headers, exactly as in the original implementation.
func StaleExisting(existing []store.FileRow, argsByFileID map[int64][]string, statFn func(string) (time.Time, error)) []StaleFile {
	var out []StaleFile
	for _, f := range existing {
		mtime, err := statFn(f.Path)
		if err != nil {
			continue
		}
		if mtime.Before(f.LastUpdate) {
			continue
		}
		out = append(out, StaleFile{
			Path:       f.Path,
			WorkingDir: f.WorkingDir,
			Args:       argsByFileID[f.ID],
			IsIncluded: f.IsIncluded,
		})
	}
	return out
}

// Mtime is the default statFn for StaleExisting: the file's
// modification time via os.Stat.
func Mtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// IsInline reports whether path matches one of the configured
// inline_files glob patterns (spec §6): a header an including source
// always re-expands, so its own mtime should never promote it to a
// standalone update job the way an ordinary header's does. Patterns are
// shell-style over the whole path, so '*' also matches '/'; doublestar
// treats '/' as a separator, so both sides are matched with '/' replaced
// by a NUL byte, which cannot occur in a path.
func IsInline(patterns []string, path string) bool {
	flatPath := strings.ReplaceAll(path, "/", "\x00")
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(strings.ReplaceAll(pattern, "/", "\x00"), flatPath); ok {
			return true
		}
	}
	return false
}

// PartitionInline splits stale into ordinary files (kept to be
// requeued standalone) and inline headers (spec §4.4's
// inlines_to_update), which must never be parsed on their own: an
// inline header's content only makes sense as part of whoever includes
// it.
func PartitionInline(stale []StaleFile, patterns []string) (rest, inline []StaleFile) {
	if len(patterns) == 0 {
		return stale, nil
	}
	rest = stale[:0:0]
	for _, sf := range stale {
		if sf.IsIncluded && IsInline(patterns, sf.Path) {
			inline = append(inline, sf)
			continue
		}
		rest = append(rest, sf)
	}
	return rest, inline
}

// InlineTx is the store capability needed to resolve which file
// re-indexes an inline header in its place.
type InlineTx interface {
	IncludingFileRows(includedFileID int64) ([]store.FileRow, error)
}

// ResolveInlineHost picks the file that should be re-indexed instead of
// an inline header directly: the includer with the greatest
// last_update, tie-broken by the smallest id, so the choice is
// deterministic across runs (spec §4.4: "most recently updated wins,
// deterministic tiebreak on id").
func ResolveInlineHost(tx InlineTx, includedFileID int64) (store.FileRow, bool, error) {
	rows, err := tx.IncludingFileRows(includedFileID)
	if err != nil {
		return store.FileRow{}, false, err
	}
	if len(rows) == 0 {
		return store.FileRow{}, false, nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.LastUpdate.After(best.LastUpdate) {
			best = r
			continue
		}
		if r.LastUpdate.Equal(best.LastUpdate) && r.ID < best.ID {
			best = r
		}
	}
	return best, true, nil
}

// orphanTx is the subset of *store.Tx RemoveOrphanedIncludes needs,
// narrowed to keep this package's dependency on store minimal.
type orphanTx interface {
	IncludedFileIDs() ([]int64, error)
	DistinctIncludedTargets() ([]int64, error)
	DeleteFileByID(id int64) error
}

// RemoveOrphanedIncludes implements _remove_orphaned_includes: headers
// can themselves include other headers, so dropping one orphan can
// orphan another; the loop runs until a pass finds nothing left to
// remove (spec §4.4).
func RemoveOrphanedIncludes(tx orphanTx) error {
	for {
		includedIDs, err := tx.IncludedFileIDs()
		if err != nil {
			return err
		}
		if len(includedIDs) == 0 {
			return nil
		}
		targets, err := tx.DistinctIncludedTargets()
		if err != nil {
			return err
		}
		targetSet := make(map[int64]bool, len(targets))
		for _, id := range targets {
			targetSet[id] = true
		}

		var orphans []int64
		for _, id := range includedIDs {
			if !targetSet[id] {
				orphans = append(orphans, id)
			}
		}
		if len(orphans) == 0 {
			return nil
		}
		for _, id := range orphans {
			if err := tx.DeleteFileByID(id); err != nil {
				return err
			}
		}
	}
}
