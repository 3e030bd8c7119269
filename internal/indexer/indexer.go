// Package indexer runs one compile command through a Parser and turns
// its output into the store's domain types (spec §4.5). Grounded on
// _find_references / _filter_includes / _index_file in
// _examples/original_source/yacbi.py, reshaped around the Parser
// capability boundary instead of calling libclang directly.
package indexer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kubinux/yacbi-go/internal/debug"
	yerrors "github.com/kubinux/yacbi-go/internal/errors"
	"github.com/kubinux/yacbi-go/internal/parser"
	"github.com/kubinux/yacbi-go/internal/store"
)

// directIncludeDepth is the inclusion-stack depth libclang reports for
// a file included straight from the translation unit's main file; only
// edges at this depth are recorded directly (spec §4.5 — deeper
// transitive includes earn their own edges once the fixpoint promotes
// them to roots in their own right).
const directIncludeDepth = 1

// Job is one file queued for indexing: either a true compilation
// database root, or a header/inline file promoted to root by a prior
// pass's include discovery (spec §4.4's fixpoint).
type Job struct {
	Path       string
	WorkingDir string
	Args       []string
	HasX       bool
	// ForcedIncludes are -include targets (already absolute), recorded
	// as pseudo-edges at (0, 0) regardless of inclusion depth.
	ForcedIncludes []string
	IsIncluded     bool
}

// IncludeRef is one outbound include edge this file contributes,
// still addressed by path — the File Manager resolves Path to a file
// id once every job in this run's fixpoint has been indexed (spec
// §4.4 phase B).
type IncludeRef struct {
	Path   string
	Line   int
	Column int
}

// Result is one indexed file's contribution to the store, before the
// File Manager resolves Includes to file ids (spec §4.4 phase B).
type Result struct {
	Path       string
	WorkingDir string
	Args       []string
	HasX       bool
	IsIncluded bool
	Includes   []IncludeRef
	RefsByUSR  map[string]map[store.RefLocation]store.RefValue
	ErrorCount int
}

// IndexFile parses job through p and reduces the result to the shape
// the store needs.
func IndexFile(ctx context.Context, p parser.Parser, root string, job Job) (*Result, error) {
	parsed, err := p.Parse(ctx, job.Path, job.Args)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:       job.Path,
		WorkingDir: job.WorkingDir,
		Args:       job.Args,
		HasX:       job.HasX,
		IsIncluded: job.IsIncluded,
		RefsByUSR:  make(map[string]map[store.RefLocation]store.RefValue),
	}

	for _, d := range parsed.Diagnostics {
		if d.Severity >= parser.SeverityError {
			res.ErrorCount++
			perr := yerrors.NewParseError(d.File, d.Line, d.Column, severityLabel(d.Severity), d.Message, d.Option)
			debug.Report(perr.Error())
		}
	}

	for _, ref := range parsed.Refs {
		if ref.File != job.Path {
			continue
		}
		loc := store.RefLocation{Line: ref.Line, Column: ref.Column}
		val := store.RefValue{IsDefinition: ref.IsDefinition, Kind: ref.Kind}
		byLoc, ok := res.RefsByUSR[ref.USR]
		if !ok {
			res.RefsByUSR[ref.USR] = map[store.RefLocation]store.RefValue{loc: val}
			continue
		}
		if existing, ok := byLoc[loc]; !ok || existing.Less(val) {
			byLoc[loc] = val
		}
	}

	seen := make(map[string]bool)
	rootPrefix := root + string(filepath.Separator)
	for _, inc := range parsed.Includes {
		if inc.Depth != directIncludeDepth {
			continue
		}
		if !strings.HasPrefix(inc.IncludedPath, rootPrefix) {
			continue
		}
		if seen[inc.IncludedPath] {
			continue
		}
		seen[inc.IncludedPath] = true
		res.Includes = append(res.Includes, IncludeRef{Path: inc.IncludedPath, Line: inc.Line, Column: inc.Column})
	}
	if !job.IsIncluded {
		// Forced includes are only synthesized for the root index: a
		// header that inherited the same -include-bearing argv when it
		// was promoted to its own job must not re-synthesize the same
		// pseudo-edge (spec §4.5 item 5).
		for _, forced := range job.ForcedIncludes {
			if seen[forced] {
				continue
			}
			seen[forced] = true
			res.Includes = append(res.Includes, IncludeRef{Path: forced})
		}
	}

	return res, nil
}

func severityLabel(s parser.Severity) string {
	switch s {
	case parser.SeverityFatal:
		return "fatal error"
	case parser.SeverityError:
		return "error"
	case parser.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// NextChildArgs computes the argv a newly discovered include should be
// parsed with when it is first promoted to root: the original's
// _process_files prepends "-x c++" whenever the including file is
// itself a non-included C++ source that didn't already pass an
// explicit -x (spec §4.1/§4.5's "child args" upgrade).
func NextChildArgs(parentArgs []string, parentIsIncluded, parentHasX, parentIsCpp bool) (args []string, hasX bool) {
	if !parentIsIncluded && !parentHasX && parentIsCpp {
		upgraded := make([]string, 0, len(parentArgs)+2)
		upgraded = append(upgraded, "-x", "c++")
		upgraded = append(upgraded, parentArgs...)
		return upgraded, true
	}
	return parentArgs, parentHasX
}
